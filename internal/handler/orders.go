package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/database"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOrdersByUser(ctx context.Context, email string) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers the customer order endpoints. The role on the
// claims must already be refreshed: admins see every order.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers status moderation and deletion.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/{id}", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	UserID        string                   `json:"userId"`
	Email         string                   `json:"email"`
	CustomerName  string                   `json:"customerName"`
	Items         []createOrderItemRequest `json:"items"`
	TotalAmount   decimal.Decimal          `json:"totalAmount"`
	ShippingFee   decimal.Decimal          `json:"shippingFee"`
	Status        string                   `json:"status"`
	Address       string                   `json:"address"`
	Phone         string                   `json:"phone"`
	Note          string                   `json:"note"`
	PaymentMethod string                   `json:"paymentMethod"`
}

type createOrderItemRequest struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        string              `json:"userId"`
	Email         string              `json:"email"`
	CustomerName  string              `json:"customerName"`
	Items         []orderItemResponse `json:"items"`
	TotalAmount   string              `json:"totalAmount"`
	ShippingFee   string              `json:"shippingFee"`
	Address       string              `json:"address"`
	Phone         string              `json:"phone"`
	Note          string              `json:"note"`
	PaymentMethod string              `json:"paymentMethod"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type orderItemResponse struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Quantity   int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		UserID:        o.UserEmail,
		Email:         o.UserEmail,
		CustomerName:  o.CustomerName,
		Items:         make([]orderItemResponse, len(items)),
		TotalAmount:   numericToString(o.TotalAmount),
		ShippingFee:   numericToString(o.ShippingFee),
		Address:       o.Address,
		Phone:         o.Phone,
		Note:          o.Note,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      numericToString(it.Price),
			Quantity:   it.Quantity,
		}
	}
	return resp
}

// --- Handlers ---

// Create handles POST /orders. The order always belongs to the caller and
// always starts pending.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	owner := model.CanonicalID(req.UserID, req.Email)
	if owner != "" && !strings.EqualFold(owner, claims.Email) {
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}
	if req.Status != "" {
		st, err := model.ParseStatus(req.Status)
		if err != nil || st != model.StatusPending {
			writeError(w, http.StatusBadRequest, "new orders must be pending")
			return
		}
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserEmail:     claims.Email,
		CustomerName:  req.CustomerName,
		Address:       req.Address,
		Phone:         req.Phone,
		Note:          req.Note,
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingFee,
		TotalAmount:   req.TotalAmount,
		Items:         items,
	})
	if err != nil {
		if service.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// List handles GET /orders: every order for admins, the caller's otherwise.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var (
		orders []database.Order
		err    error
	)
	if isAdmin(claims) {
		orders, err = h.store.ListOrders(r.Context())
	} else {
		orders, err = h.store.ListOrdersByUser(r.Context(), claims.Email)
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		resp[i] = toOrderResponse(o, items)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}. Other customers' orders answer 404.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	if !isAdmin(claims) && !strings.EqualFold(order.UserEmail, claims.Email) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// UpdateStatus handles PATCH /orders/{id}.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	next, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	current, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	if err := validateStatusTransition(model.Status(current.Status), next); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:       current.ID,
		Status:   string(next),
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The status changed between our read and write.
			writeError(w, http.StatusConflict, "order status changed, please retry")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), updated.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated, items))
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if _, err := h.store.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

// --- Helpers ---

func (h *OrderHandler) loadOrder(w http.ResponseWriter, r *http.Request) (database.Order, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return database.Order{}, false
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.Order{}, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return database.Order{}, false
	}
	return order, true
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next model.Status) error {
	if current.Terminal() {
		return fmt.Errorf("cannot transition from %s", current)
	}
	if !current.CanTransition(next) {
		return fmt.Errorf("cannot transition from %s to %s", current, next)
	}
	return nil
}
