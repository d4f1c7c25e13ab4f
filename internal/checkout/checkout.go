// Package checkout turns a cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Backend is satisfied by *apiclient.Secure.
type Backend interface {
	CreateOrder(ctx context.Context, req apiclient.CreateOrderRequest) (model.Order, error)
	DeleteCartEntry(ctx context.Context, id string) error
}

// Identity is satisfied by *identity.Manager.
type Identity interface {
	Subject() string
}

// CartReloader is satisfied by *cart.Store.
type CartReloader interface {
	List(ctx context.Context) ([]model.CartEntry, error)
}

// ShippingInfo is the checkout form.
type ShippingInfo struct {
	Email    string
	FullName string
	Phone    string
	Address  string
	District string
	Province string
	Note     string
}

// Missing lists the required fields left blank.
func (s ShippingInfo) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"email", s.Email},
		{"fullName", s.FullName},
		{"phone", s.Phone},
		{"address", s.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// FullAddress joins address, district and province, skipping blanks.
func (s ShippingInfo) FullAddress() string {
	var parts []string
	for _, p := range []string{s.Address, s.District, s.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Flat shipping fees by province key. Other provinces ship free.
var shippingFees = map[string]decimal.Decimal{
	"hanoi":     decimal.RequireFromString("1.5"),
	"hochiminh": decimal.NewFromInt(3),
}

// ShippingFee returns the flat fee for province.
func ShippingFee(province string) decimal.Decimal {
	if fee, ok := shippingFees[strings.ToLower(strings.TrimSpace(province))]; ok {
		return fee
	}
	return decimal.Zero
}

// Quote is the price preview shown before submission.
type Quote struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// CleanupFailure is a cart entry that could not be deleted after the order
// was placed.
type CleanupFailure struct {
	EntryID string
	Err     error
}

// Result is a placed order. CleanupFailures never invalidate the order.
type Result struct {
	Order           *model.Order
	CleanupFailures []CleanupFailure
}

// Engine submits orders.
type Engine struct {
	backend   Backend
	identity  Identity
	cart      CartReloader
	notifier  ui.Notifier
	navigator ui.Navigator
}

// NewEngine creates an Engine. cart may be nil.
func NewEngine(backend Backend, id Identity, cart CartReloader, notifier ui.Notifier, navigator ui.Navigator) *Engine {
	return &Engine{backend: backend, identity: id, cart: cart, notifier: notifier, navigator: navigator}
}

// Quote prices entries shipped according to info.
func (e *Engine) Quote(info ShippingInfo, entries []model.CartEntry) Quote {
	subtotal := model.Subtotal(entries)
	fee := ShippingFee(info.Province)
	return Quote{Subtotal: subtotal, ShippingFee: fee, Total: subtotal.Add(fee).Round(2)}
}

// Submit validates the form, places the order once and then empties the
// cart. A failed submission leaves the cart untouched.
func (e *Engine) Submit(ctx context.Context, info ShippingInfo, entries []model.CartEntry) (*Result, error) {
	if len(entries) == 0 {
		e.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Your cart is empty"})
		e.navigator.ToCart()
		return nil, apperr.ErrEmptyCart
	}
	if e.identity.Subject() == "" {
		e.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Please login to place an order"})
		e.navigator.ToLogin("checkout")
		return nil, fmt.Errorf("submit order: %w", apperr.ErrUnauthenticated)
	}
	if missing := info.Missing(); len(missing) > 0 {
		e.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Please fill in complete shipping information"})
		return nil, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), apperr.ErrIncompleteShippingInfo)
	}

	snapshot := make([]model.CartEntry, len(entries))
	copy(snapshot, entries)
	order := e.buildOrder(info, snapshot)

	placed, err := e.backend.CreateOrder(ctx, apiclient.CreateOrderRequest{
		UserID:        order.Owner,
		Email:         strings.TrimSpace(info.Email),
		CustomerName:  order.CustomerName,
		Items:         order.Items,
		TotalAmount:   order.TotalAmount,
		ShippingFee:   order.ShippingFee,
		Status:        order.Status,
		Address:       order.Address,
		Phone:         order.Phone,
		Note:          order.Note,
		PaymentMethod: enum.PaymentMethodCashOnDelivery,
	})
	if err != nil {
		log.Printf("ERROR: create order: %v", err)
		if !errors.Is(err, apperr.ErrSessionExpired) {
			e.notifier.Notify(ui.Notice{Level: ui.LevelError, Title: apperr.Message(err, "Failed to place order. Please try again.")})
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	merge(&order, placed)
	failures := e.cleanup(ctx, snapshot)
	if e.cart != nil {
		if _, err := e.cart.List(ctx); err != nil {
			log.Printf("WARN: reload cart after checkout: %v", err)
		}
	}

	e.notifier.Notify(ui.Notice{Level: ui.LevelSuccess, Title: "Order placed successfully!"})
	return &Result{Order: &order, CleanupFailures: failures}, nil
}

func (e *Engine) buildOrder(info ShippingInfo, entries []model.CartEntry) model.Order {
	items := make([]model.LineItem, len(entries))
	for i, c := range entries {
		items[i] = model.LineItem{MenuItemID: c.MenuItemID, Name: c.Name, Price: c.Price, Quantity: c.Quantity}
	}
	owner := e.identity.Subject()
	if owner == "" {
		owner = strings.TrimSpace(info.Email)
	}
	q := e.Quote(info, entries)
	return model.Order{
		Owner:        owner,
		CustomerName: strings.TrimSpace(info.FullName),
		Items:        items,
		TotalAmount:  q.Total,
		ShippingFee:  q.ShippingFee,
		Address:      info.FullAddress(),
		Phone:        strings.TrimSpace(info.Phone),
		Note:         strings.TrimSpace(info.Note),
		Status:       model.StatusPending,
	}
}

// merge takes the server-assigned fields from placed. Older backends answer
// with little more than the new id.
func merge(order *model.Order, placed model.Order) {
	order.ID = placed.ID
	order.CreatedAt = placed.CreatedAt
	if placed.Status != "" {
		order.Status = placed.Status
	}
	if len(placed.Items) > 0 {
		order.Items = placed.Items
		order.TotalAmount = placed.TotalAmount
		order.ShippingFee = placed.ShippingFee
	}
}

// cleanup deletes every ordered cart entry. Deletions run concurrently and
// one failure does not stop the others.
func (e *Engine) cleanup(ctx context.Context, entries []model.CartEntry) []CleanupFailure {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []CleanupFailure
	)
	for _, c := range entries {
		id := c.ID
		g.Go(func() error {
			if err := e.backend.DeleteCartEntry(ctx, id); err != nil {
				log.Printf("ERROR: remove ordered cart entry %s: %v", id, err)
				mu.Lock()
				failures = append(failures, CleanupFailure{EntryID: id, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}
