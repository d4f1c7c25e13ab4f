package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// The wire shapes below accept every alias the backend has used over time.
// Decoding resolves them once so the rest of the client sees one field each.

type wireMenuItem struct {
	ID       string          `json:"id"`
	LegacyID string          `json:"_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Recipe   string          `json:"recipe"`
	Discount float64         `json:"discount"`
}

func (m *MenuItem) UnmarshalJSON(b []byte) error {
	var w wireMenuItem
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = MenuItem{
		ID:       CanonicalID(w.ID, w.LegacyID),
		Name:     w.Name,
		Category: w.Category,
		Price:    w.Price,
		Image:    w.Image,
		Recipe:   w.Recipe,
		Discount: clampDiscount(w.Discount),
	}
	return nil
}

func clampDiscount(d float64) int {
	switch {
	case d < 0:
		return 0
	case d > 100:
		return 100
	}
	return int(d)
}

type wireCartEntry struct {
	ID         string          `json:"id"`
	LegacyID   string          `json:"_id"`
	MenuItemID string          `json:"menuItemId"`
	MenuID     string          `json:"menuId"`
	Email      string          `json:"email"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
}

func (e *CartEntry) UnmarshalJSON(b []byte) error {
	var w wireCartEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = CartEntry{
		ID:         CanonicalID(w.ID, w.LegacyID),
		MenuItemID: CanonicalID(w.MenuItemID, w.MenuID),
		Owner:      w.Email,
		Quantity:   w.Quantity,
		Price:      w.Price,
		Name:       w.Name,
		Image:      w.Image,
	}
	return nil
}

type wireLineItem struct {
	MenuItemID string          `json:"menuItemId"`
	MenuID     string          `json:"menuId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func (l *LineItem) UnmarshalJSON(b []byte) error {
	var w wireLineItem
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = LineItem{
		MenuItemID: CanonicalID(w.MenuItemID, w.MenuID),
		Name:       w.Name,
		Price:      w.Price,
		Quantity:   w.Quantity,
	}
	return nil
}

type wireOrder struct {
	ID           string           `json:"id"`
	LegacyID     string           `json:"_id"`
	UserID       string           `json:"userId"`
	Email        string           `json:"email"`
	CustomerName string           `json:"customerName"`
	Items        []LineItem       `json:"items"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
	Total        *decimal.Decimal `json:"total"`
	ShippingFee  decimal.Decimal  `json:"shippingFee"`
	Address      string           `json:"address"`
	Phone        string           `json:"phone"`
	Note         string           `json:"note"`
	Status       Status           `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func (o *Order) UnmarshalJSON(b []byte) error {
	var w wireOrder
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	total := decimal.Zero
	switch {
	case w.TotalAmount != nil:
		total = *w.TotalAmount
	case w.Total != nil:
		total = *w.Total
	}
	*o = Order{
		ID:           CanonicalID(w.ID, w.LegacyID),
		Owner:        CanonicalID(w.UserID, w.Email),
		CustomerName: w.CustomerName,
		Items:        w.Items,
		TotalAmount:  total,
		ShippingFee:  w.ShippingFee,
		Address:      w.Address,
		Phone:        w.Phone,
		Note:         w.Note,
		Status:       w.Status,
		CreatedAt:    w.CreatedAt,
	}
	return nil
}

type wireUser struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	var w wireUser
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*u = User{ID: CanonicalID(w.ID, w.LegacyID), Name: w.Name, Email: w.Email, Role: w.Role}
	return nil
}
