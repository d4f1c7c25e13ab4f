// Package model holds the storefront domain types as the client components
// see them. Inbound payloads are normalized while decoding: legacy `_id`
// fields collapse into ID and legacy status names into the closed Status set.
package model

import (
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Identity is the authenticated user as known to the identity manager.
type Identity struct {
	SubjectID     string
	DisplayName   string
	Token         string
	TokenIssuedAt time.Time
}

// MenuItem is a catalog entry. Read-only for customers.
type MenuItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Recipe   string          `json:"recipe"`
	Discount int             `json:"discount,omitempty"`
}

// CartEntry is one row of a subject's cart. Name, Price and Image are
// snapshots taken when the entry was added.
type CartEntry struct {
	ID         string          `json:"id"`
	MenuItemID string          `json:"menuItemId"`
	Owner      string          `json:"email"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
}

// LineTotal returns price × quantity.
func (e CartEntry) LineTotal() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// LineItem is the immutable copy of a cart entry stored on an order.
type LineItem struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Order is a submitted order. Only Status changes after creation.
type Order struct {
	ID           string          `json:"id"`
	Owner        string          `json:"userId"`
	CustomerName string          `json:"customerName"`
	Items        []LineItem      `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	ShippingFee  decimal.Decimal `json:"shippingFee"`
	Address      string          `json:"address"`
	Phone        string          `json:"phone"`
	Note         string          `json:"note"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// User is a storefront account as listed in the admin back-office.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, enum.UserRoleAdmin)
}

// Subtotal sums LineTotal over entries.
func Subtotal(entries []CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.LineTotal())
	}
	return total
}

// CanonicalID resolves the two identifier fields a payload may carry into the
// single id used internally. The current-format id wins when both are set.
func CanonicalID(id, legacyID string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return strings.TrimSpace(legacyID)
}
