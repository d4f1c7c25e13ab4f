package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foodi-storefront/api/internal/database"
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// totalTolerance is the largest accepted difference between the submitted
// total and the one recomputed from the lines.
var totalTolerance = decimal.New(1, -2)

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidPrice         = errors.New("price must be >= 0")
	ErrMissingItemName      = errors.New("item name is required")
	ErrMissingEmail         = errors.New("email is required")
	ErrMissingCustomerName  = errors.New("customer name is required")
	ErrMissingPhone         = errors.New("phone is required")
	ErrMissingAddress       = errors.New("address is required")
	ErrInvalidShippingFee   = errors.New("shipping fee must be >= 0")
	ErrInvalidPaymentMethod = errors.New("only cash on delivery is accepted")
	ErrTotalMismatch        = errors.New("total does not match items and shipping fee")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the input for creating an order. Item prices are the
// cart snapshots, not the current menu prices.
type CreateOrderRequest struct {
	UserEmail     string
	CustomerName  string
	Address       string
	Phone         string
	Note          string
	PaymentMethod string
	ShippingFee   decimal.Decimal
	TotalAmount   decimal.Decimal
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line of the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Name       string
	Price      decimal.Decimal
	Quantity   int32
}

// CreateOrderResult is the created order with its lines.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates the request, recomputes the total and inserts the
// order with its lines in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	paymentMethod := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = enum.PaymentMethodCashOnDelivery
	}
	if paymentMethod != enum.PaymentMethodCashOnDelivery {
		return nil, ErrInvalidPaymentMethod
	}

	subtotal := decimal.Zero
	for _, item := range req.Items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	total := subtotal.Add(req.ShippingFee)
	if total.Sub(req.TotalAmount).Abs().GreaterThan(totalTolerance) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrTotalMismatch, req.TotalAmount.StringFixed(2), total.StringFixed(2))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserEmail:     strings.ToLower(req.UserEmail),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		TotalAmount:   decimalToNumeric(total),
		ShippingFee:   decimalToNumeric(req.ShippingFee),
		Address:       strings.TrimSpace(req.Address),
		Phone:         strings.TrimSpace(req.Phone),
		Note:          req.Note,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      decimalToNumeric(item.Price),
			Quantity:   item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item[%d]: %w", i, err)
		}
		items = append(items, created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

func validateOrder(req CreateOrderRequest) error {
	if strings.TrimSpace(req.UserEmail) == "" {
		return ErrMissingEmail
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return ErrMissingCustomerName
	}
	if strings.TrimSpace(req.Phone) == "" {
		return ErrMissingPhone
	}
	if strings.TrimSpace(req.Address) == "" {
		return ErrMissingAddress
	}
	if req.ShippingFee.IsNegative() {
		return ErrInvalidShippingFee
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item[%d]: %w", i, ErrMissingItemName)
		}
	}
	return nil
}

// IsValidationError reports whether err should be answered with 400.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyItems, ErrInvalidQuantity, ErrInvalidPrice, ErrMissingItemName,
		ErrMissingEmail, ErrMissingCustomerName, ErrMissingPhone, ErrMissingAddress,
		ErrInvalidShippingFee, ErrInvalidPaymentMethod, ErrTotalMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// --- Helpers ---

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
