package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartStore defines the database methods needed by cart handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CartStore interface {
	ListCartItems(ctx context.Context, email string) ([]database.CartItem, error)
	GetCartItem(ctx context.Context, id uuid.UUID) (database.CartItem, error)
	UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error)
	SetCartItemQuantity(ctx context.Context, arg database.SetCartItemQuantityParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// CartHandler handles the per-account cart. Every route needs a bearer token
// and only touches rows owned by the token's email.
type CartHandler struct {
	store CartStore
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(store CartStore) *CartHandler {
	return &CartHandler{store: store}
}

// RegisterRoutes registers cart endpoints: /carts
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Put("/{id}", h.SetQuantity)
	r.Patch("/{id}", h.SetQuantity)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Email      string `json:"email"`
	Quantity   int32  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity   int32  `json:"quantity"`
	Email      string `json:"email"`
	MenuItemID string `json:"menuItemId"`
}

type cartItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menuItemId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCartItemResponse(c database.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:         c.ID,
		MenuItemID: c.MenuItemID,
		Email:      c.Email,
		Name:       c.Name,
		Image:      c.Image,
		Price:      numericToString(c.Price),
		Quantity:   c.Quantity,
		CreatedAt:  c.CreatedAt,
	}
}

// --- Handlers ---

// List handles GET /carts?email=. The email must be the caller's.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !strings.EqualFold(email, claims.Email) {
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}

	items, err := h.store.ListCartItems(r.Context(), claims.Email)
	if err != nil {
		log.Printf("ERROR: list cart items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]cartItemResponse, len(items))
	for i, c := range items {
		resp[i] = toCartItemResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add handles POST /carts. Adding an item already in the cart grows the
// existing row. Name, price and image are taken from the menu.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != "" && !strings.EqualFold(strings.TrimSpace(req.Email), claims.Email) {
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menuItemId")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: get menu item for cart: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	entry, err := h.store.UpsertCartItem(r.Context(), database.UpsertCartItemParams{
		Email:      claims.Email,
		MenuItemID: item.ID,
		Name:       item.Name,
		Image:      item.Image,
		Price:      item.Price,
		Quantity:   req.Quantity,
	})
	if err != nil {
		log.Printf("ERROR: upsert cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCartItemResponse(entry))
}

// SetQuantity handles PUT and PATCH /carts/{id}. Both carry the absolute
// quantity; PATCH may name the menu item the row must hold.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	if req.Email != "" && !strings.EqualFold(strings.TrimSpace(req.Email), claims.Email) {
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}

	current, ok := h.ownedItem(w, r, claims.Email)
	if !ok {
		return
	}
	if req.MenuItemID != "" && req.MenuItemID != current.MenuItemID.String() {
		writeError(w, http.StatusBadRequest, "cart item holds a different menu item")
		return
	}

	entry, err := h.store.SetCartItemQuantity(r.Context(), database.SetCartItemQuantityParams{
		ID:       current.ID,
		Quantity: req.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		log.Printf("ERROR: set cart item quantity: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCartItemResponse(entry))
}

// Delete handles DELETE /carts/{id}.
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	current, ok := h.ownedItem(w, r, claims.Email)
	if !ok {
		return
	}

	if _, err := h.store.DeleteCartItem(r.Context(), current.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		log.Printf("ERROR: delete cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": current.ID.String()})
}

// ownedItem loads the row named by {id}. Rows of other accounts answer 404.
func (h *CartHandler) ownedItem(w http.ResponseWriter, r *http.Request, email string) (database.CartItem, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "cart item not found")
		return database.CartItem{}, false
	}

	item, err := h.store.GetCartItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cart item not found")
			return database.CartItem{}, false
		}
		log.Printf("ERROR: get cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return database.CartItem{}, false
	}
	if !strings.EqualFold(item.Email, email) {
		writeError(w, http.StatusNotFound, "cart item not found")
		return database.CartItem{}, false
	}
	return item, true
}
