package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/shopspring/decimal"
)

// TokenSource yields the current bearer token. Satisfied by *identity.Manager.
type TokenSource interface {
	Token() (string, bool)
}

// AuthFailureHandler is told about every 401/403 and about every call made
// without a token. Satisfied by *session.Guard.
type AuthFailureHandler interface {
	Expire(ctx context.Context, reason string)
}

// Secure calls the bearer-authenticated endpoints. The token is read from the
// TokenSource on every call and never cached here.
type Secure struct {
	t         *transport
	tokens    TokenSource
	onFailure AuthFailureHandler
}

// Secure derives an authenticated client sharing p's transport.
func (p *Public) Secure(tokens TokenSource, onFailure AuthFailureHandler) *Secure {
	return &Secure{t: p.t, tokens: tokens, onFailure: onFailure}
}

func (s *Secure) do(ctx context.Context, req request, out interface{}) error {
	token, ok := s.tokens.Token()
	if !ok {
		if s.onFailure == nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, apperr.ErrUnauthenticated)
		}
		// A signed-in subject without a token gets the same treatment as
		// a rejected one.
		s.onFailure.Expire(ctx, "no token for "+req.method+" "+req.path)
		return fmt.Errorf("%s %s: %w", req.method, req.path, apperr.ErrSessionExpired)
	}
	req.token = token

	err := s.t.do(ctx, req, out)
	if err != nil && isAuthFailure(err) && s.onFailure != nil {
		s.onFailure.Expire(ctx, err.Error())
	}
	return err
}

// --- Cart ---

// AddCartEntryRequest is the body of POST /carts. Name, Price and Image are
// the snapshot stored with the entry.
type AddCartEntryRequest struct {
	MenuItemID string          `json:"menuItemId"`
	Email      string          `json:"email"`
	Quantity   int             `json:"quantity"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	Recipe     string          `json:"recipe"`
}

type updateCartRequest struct {
	Quantity   int    `json:"quantity"`
	Email      string `json:"email,omitempty"`
	MenuItemID string `json:"menuItemId,omitempty"`
}

// ListCart handles GET /carts?email=.
func (s *Secure) ListCart(ctx context.Context, email string) ([]model.CartEntry, error) {
	var entries []model.CartEntry
	err := s.do(ctx, request{
		method: http.MethodGet,
		path:   "/carts",
		query:  url.Values{"email": {email}},
	}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AddCartEntry handles POST /carts.
func (s *Secure) AddCartEntry(ctx context.Context, req AddCartEntryRequest) (model.CartEntry, error) {
	var entry model.CartEntry
	err := s.do(ctx, request{method: http.MethodPost, path: "/carts", body: req}, &entry)
	return entry, err
}

// SetCartQuantity handles PUT /carts/{id}.
func (s *Secure) SetCartQuantity(ctx context.Context, id string, quantity int, email string) (model.CartEntry, error) {
	var entry model.CartEntry
	err := s.do(ctx, request{
		method: http.MethodPut,
		path:   "/carts/" + escape(id),
		body:   updateCartRequest{Quantity: quantity, Email: email},
	}, &entry)
	return entry, err
}

// MergeCartQuantity handles PATCH /carts/{id}, used when re-adding an item
// that is already in the cart.
func (s *Secure) MergeCartQuantity(ctx context.Context, id, menuItemID string, quantity int) (model.CartEntry, error) {
	var entry model.CartEntry
	err := s.do(ctx, request{
		method: http.MethodPatch,
		path:   "/carts/" + escape(id),
		body:   updateCartRequest{Quantity: quantity, MenuItemID: menuItemID},
	}, &entry)
	return entry, err
}

// DeleteCartEntry handles DELETE /carts/{id}.
func (s *Secure) DeleteCartEntry(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/carts/" + escape(id)}, nil)
}

// --- Orders ---

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	UserID        string           `json:"userId"`
	Email         string           `json:"email"`
	CustomerName  string           `json:"customerName"`
	Items         []model.LineItem `json:"items"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
	ShippingFee   decimal.Decimal  `json:"shippingFee"`
	Status        model.Status     `json:"status"`
	Address       string           `json:"address"`
	Phone         string           `json:"phone"`
	Note          string           `json:"note"`
	PaymentMethod string           `json:"paymentMethod"`
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

// CreateOrder handles POST /orders.
func (s *Secure) CreateOrder(ctx context.Context, req CreateOrderRequest) (model.Order, error) {
	var order model.Order
	err := s.do(ctx, request{method: http.MethodPost, path: "/orders", body: req}, &order)
	return order, err
}

// ListOrders handles GET /orders. The server scopes the result to the
// caller unless the caller is an admin.
func (s *Secure) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := s.do(ctx, request{method: http.MethodGet, path: "/orders"}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder handles GET /orders/{id}.
func (s *Secure) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var order model.Order
	err := s.do(ctx, request{method: http.MethodGet, path: "/orders/" + escape(id)}, &order)
	return order, err
}

// UpdateOrderStatus handles PATCH /orders/{id}.
func (s *Secure) UpdateOrderStatus(ctx context.Context, id string, status model.Status) (model.Order, error) {
	var order model.Order
	err := s.do(ctx, request{
		method: http.MethodPatch,
		path:   "/orders/" + escape(id),
		body:   statusRequest{Status: status},
	}, &order)
	return order, err
}

// DeleteOrder handles DELETE /orders/{id}.
func (s *Secure) DeleteOrder(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/orders/" + escape(id)}, nil)
}

// --- Menu administration ---

// MenuItemRequest is the body of POST /menu and PUT /menu/{id}.
type MenuItemRequest struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Recipe   string          `json:"recipe"`
	Discount int             `json:"discount"`
}

// CreateMenuItem handles POST /menu.
func (s *Secure) CreateMenuItem(ctx context.Context, req MenuItemRequest) (model.MenuItem, error) {
	var item model.MenuItem
	err := s.do(ctx, request{method: http.MethodPost, path: "/menu", body: req}, &item)
	return item, err
}

// UpdateMenuItem handles PUT /menu/{id}.
func (s *Secure) UpdateMenuItem(ctx context.Context, id string, req MenuItemRequest) (model.MenuItem, error) {
	var item model.MenuItem
	err := s.do(ctx, request{method: http.MethodPut, path: "/menu/" + escape(id), body: req}, &item)
	return item, err
}

// DeleteMenuItem handles DELETE /menu/{id}.
func (s *Secure) DeleteMenuItem(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/menu/" + escape(id)}, nil)
}

// --- Users ---

type isAdminResponse struct {
	Admin bool `json:"admin"`
}

// UpdateProfileRequest is the body of PUT /users/update.
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// UpdateProfile handles PUT /users/update for the token's subject.
func (s *Secure) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (model.User, error) {
	var u model.User
	err := s.do(ctx, request{method: http.MethodPut, path: "/users/update", body: req}, &u)
	return u, err
}

// ListUsers handles GET /users.
func (s *Secure) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.do(ctx, request{method: http.MethodGet, path: "/users"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// IsAdmin handles GET /users/admin/{email}.
func (s *Secure) IsAdmin(ctx context.Context, email string) (bool, error) {
	var resp isAdminResponse
	if err := s.do(ctx, request{method: http.MethodGet, path: "/users/admin/" + escape(email)}, &resp); err != nil {
		return false, err
	}
	return resp.Admin, nil
}

// PromoteToAdmin handles PUT /users/admin/{id}.
func (s *Secure) PromoteToAdmin(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.do(ctx, request{method: http.MethodPut, path: "/users/admin/" + escape(id)}, &u)
	return u, err
}

// DeleteUser handles DELETE /users/{id}.
func (s *Secure) DeleteUser(ctx context.Context, id string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/users/" + escape(id)}, nil)
}
