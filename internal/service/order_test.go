package service

import (
	"context"
	"errors"
	"testing"

	"github.com/foodi-storefront/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = m.commitErr == nil
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx     pgx.Tx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	createOrderFn     func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}

// --- Test helpers ---

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestService(store *mockOrderStore) (*OrderService, *mockTxBeginner, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), pool, tx
}

// defaultStore echoes the inserted rows back, recording item params.
func defaultStore(items *[]database.CreateOrderItemParams) *mockOrderStore {
	return &mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            uuid.New(),
				UserEmail:     arg.UserEmail,
				CustomerName:  arg.CustomerName,
				TotalAmount:   arg.TotalAmount,
				ShippingFee:   arg.ShippingFee,
				Address:       arg.Address,
				Phone:         arg.Phone,
				Note:          arg.Note,
				PaymentMethod: arg.PaymentMethod,
				Status:        "pending",
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			if items != nil {
				*items = append(*items, arg)
			}
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				Name:       arg.Name,
				Price:      arg.Price,
				Quantity:   arg.Quantity,
			}, nil
		},
	}
}

// validRequest is the A=2×10, B=1×5 order shipped to hanoi (fee 1.5).
func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		UserEmail:    "Ann@Example.com",
		CustomerName: "Ann",
		Address:      "1 Trang Tien, Hoan Kiem, hanoi",
		Phone:        "0900000000",
		ShippingFee:  decimal.RequireFromString("1.5"),
		TotalAmount:  decimal.RequireFromString("26.5"),
		Items: []CreateOrderItemRequest{
			{MenuItemID: "a", Name: "Pho", Price: decimal.RequireFromString("10"), Quantity: 2},
			{MenuItemID: "b", Name: "Tea", Price: decimal.RequireFromString("5"), Quantity: 1},
		},
	}
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	var items []database.CreateOrderItemParams
	svc, _, tx := newTestService(defaultStore(&items))

	result, err := svc.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(result.Order.TotalAmount, "26.50") {
		t.Errorf("total: got %v, want 26.50", numericToDecimal(result.Order.TotalAmount))
	}
	if !numericEquals(result.Order.ShippingFee, "1.50") {
		t.Errorf("shipping fee: got %v, want 1.50", numericToDecimal(result.Order.ShippingFee))
	}
	if result.Order.UserEmail != "ann@example.com" {
		t.Errorf("email: got %q, want lowercased", result.Order.UserEmail)
	}
	if result.Order.PaymentMethod != "cod" {
		t.Errorf("payment method: got %q, want cod", result.Order.PaymentMethod)
	}
	if len(items) != 2 || len(result.Items) != 2 {
		t.Fatalf("items: got %d inserted, %d returned, want 2", len(items), len(result.Items))
	}
	for _, it := range items {
		if it.OrderID != result.Order.ID {
			t.Errorf("item %s: order id %s, want %s", it.Name, it.OrderID, result.Order.ID)
		}
	}
	if !tx.committed {
		t.Error("expected commit")
	}
}

func TestCreateOrder_TotalWithinTolerance(t *testing.T) {
	svc, _, _ := newTestService(defaultStore(nil))

	req := validRequest()
	req.TotalAmount = decimal.RequireFromString("26.51")

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Order.TotalAmount, "26.50") {
		t.Errorf("total: got %v, want recomputed 26.50", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_TotalMismatch(t *testing.T) {
	svc, pool, _ := newTestService(defaultStore(nil))

	req := validRequest()
	req.TotalAmount = decimal.RequireFromString("25")

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", err)
	}
	if pool.begins != 0 {
		t.Errorf("begins: got %d, want 0", pool.begins)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		want   error
	}{
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"negative price", func(r *CreateOrderRequest) { r.Items[1].Price = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"blank item name", func(r *CreateOrderRequest) { r.Items[0].Name = " " }, ErrMissingItemName},
		{"no email", func(r *CreateOrderRequest) { r.UserEmail = "" }, ErrMissingEmail},
		{"no name", func(r *CreateOrderRequest) { r.CustomerName = "" }, ErrMissingCustomerName},
		{"no phone", func(r *CreateOrderRequest) { r.Phone = "" }, ErrMissingPhone},
		{"no address", func(r *CreateOrderRequest) { r.Address = "" }, ErrMissingAddress},
		{"negative fee", func(r *CreateOrderRequest) { r.ShippingFee = decimal.NewFromInt(-1) }, ErrInvalidShippingFee},
		{"card payment", func(r *CreateOrderRequest) { r.PaymentMethod = "card" }, ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pool, _ := newTestService(defaultStore(nil))
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false", err)
			}
			if pool.begins != 0 {
				t.Errorf("begins: got %d, want 0", pool.begins)
			}
		})
	}
}

func TestCreateOrder_ItemInsertFails(t *testing.T) {
	store := defaultStore(nil)
	calls := 0
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		calls++
		if calls == 2 {
			return database.OrderItem{}, errors.New("disk full")
		}
		return database.OrderItem{ID: uuid.New()}, nil
	}
	svc, _, tx := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsValidationError(err) {
		t.Errorf("database failure reported as validation error: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit after a failed insert")
	}
}

func TestCreateOrder_BeginFails(t *testing.T) {
	svc, pool, _ := newTestService(defaultStore(nil))
	pool.err = errors.New("pool closed")

	if _, err := svc.CreateOrder(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateOrder_CommitFails(t *testing.T) {
	svc, _, tx := newTestService(defaultStore(nil))
	tx.commitErr = errors.New("serialization failure")

	if _, err := svc.CreateOrder(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
