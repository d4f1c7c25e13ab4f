package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CartItem struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Image      string         `json:"image"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
	CreatedAt  time.Time      `json:"created_at"`
}

type MenuItem struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Recipe    string         `json:"recipe"`
	Image     string         `json:"image"`
	Category  string         `json:"category"`
	Price     pgtype.Numeric `json:"price"`
	Discount  int32          `json:"discount"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID      `json:"id"`
	UserEmail     string         `json:"user_email"`
	CustomerName  string         `json:"customer_name"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
	ShippingFee   pgtype.Numeric `json:"shipping_fee"`
	Address       string         `json:"address"`
	Phone         string         `json:"phone"`
	Note          string         `json:"note"`
	PaymentMethod string         `json:"payment_method"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID string         `json:"menu_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

type User struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	PhotoUrl  pgtype.Text `json:"photo_url"`
	Role      string      `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}
