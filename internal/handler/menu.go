package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/cache"
	"github.com/foodi-storefront/api/internal/database"
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	SearchMenuItems(ctx context.Context, query string) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MenuCache holds rendered menu bodies. Satisfied by *cache.RedisMenuCache
// and cache.Nop.
type MenuCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
	Invalidate(ctx context.Context, keys ...string)
}

// MenuHandler handles the public catalog and its admin maintenance.
type MenuHandler struct {
	store MenuStore
	cache MenuCache
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, c MenuCache) *MenuHandler {
	if c == nil {
		c = cache.Nop{}
	}
	return &MenuHandler{store: store, cache: c}
}

// RegisterRoutes registers the public menu endpoints: /menu
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers menu maintenance; mount behind the admin role.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Recipe   string          `json:"recipe"`
	Discount int32           `json:"discount"`
}

type menuItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     string    `json:"price"`
	Image     string    `json:"image"`
	Recipe    string    `json:"recipe"`
	Discount  int32     `json:"discount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:        m.ID,
		Name:      m.Name,
		Category:  m.Category,
		Price:     numericToString(m.Price),
		Image:     m.Image,
		Recipe:    m.Recipe,
		Discount:  m.Discount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toMenuItemResponses(items []database.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// --- Handlers ---

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.cache.Get(r.Context(), cache.MenuListKey); ok {
		writeRaw(w, http.StatusOK, body)
		return
	}

	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	body, err := json.Marshal(toMenuItemResponses(items))
	if err != nil {
		log.Printf("ERROR: encode menu: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.cache.Set(r.Context(), cache.MenuListKey, body)
	writeRaw(w, http.StatusOK, body)
}

// Search handles GET /menu/search?query=. An empty query lists everything.
func (h *MenuHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.List(w, r)
		return
	}

	items, err := h.store.SearchMenuItems(r.Context(), query)
	if err != nil {
		log.Printf("ERROR: search menu items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}

	key := cache.MenuItemKey(id.String())
	if body, ok := h.cache.Get(r.Context(), key); ok {
		writeRaw(w, http.StatusOK, body)
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	body, err := json.Marshal(toMenuItemResponse(item))
	if err != nil {
		log.Printf("ERROR: encode menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.cache.Set(r.Context(), key, body)
	writeRaw(w, http.StatusOK, body)
}

// Create handles POST /menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMenuItemRequest(w, r)
	if !ok {
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:     req.Name,
		Recipe:   req.Recipe,
		Image:    req.Image,
		Category: req.Category,
		Price:    decimalToNumeric(req.Price),
		Discount: req.Discount,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.cache.Invalidate(r.Context(), cache.MenuListKey)
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}
	req, ok := decodeMenuItemRequest(w, r)
	if !ok {
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:       id,
		Name:     req.Name,
		Recipe:   req.Recipe,
		Image:    req.Image,
		Category: req.Category,
		Price:    decimalToNumeric(req.Price),
		Discount: req.Discount,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.cache.Invalidate(r.Context(), cache.MenuListKey, cache.MenuItemKey(id.String()))
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete handles DELETE /menu/{id}. Cart rows referencing the item go with it;
// order lines keep their copy.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.cache.Invalidate(r.Context(), cache.MenuListKey, cache.MenuItemKey(id.String()))
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func decodeMenuItemRequest(w http.ResponseWriter, r *http.Request) (menuItemRequest, bool) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))

	switch {
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "name is required")
	case !enum.IsCategory(req.Category):
		writeError(w, http.StatusBadRequest, "invalid category")
	case req.Price.IsNegative():
		writeError(w, http.StatusBadRequest, "price must be >= 0")
	case req.Discount < 0 || req.Discount > 100:
		writeError(w, http.StatusBadRequest, "discount must be between 0 and 100")
	default:
		return req, true
	}
	return req, false
}
