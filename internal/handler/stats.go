package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/foodi-storefront/api/internal/database"
	"github.com/go-chi/chi/v5"
)

// StatsStore is satisfied by *database.Queries.
type StatsStore interface {
	GetAdminStats(ctx context.Context) (database.GetAdminStatsRow, error)
}

// StatsHandler serves the back-office dashboard counters.
type StatsHandler struct {
	store StatsStore
}

func NewStatsHandler(store StatsStore) *StatsHandler {
	return &StatsHandler{store: store}
}

// RegisterRoutes registers GET /admin/stats.
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Get)
}

type statsResponse struct {
	Users         int64 `json:"users"`
	MenuItems     int64 `json:"menuItems"`
	Orders        int64 `json:"orders"`
	PendingOrders int64 `json:"pendingOrders"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.GetAdminStats(r.Context())
	if err != nil {
		log.Printf("ERROR: admin stats: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Users:         row.Users,
		MenuItems:     row.MenuItems,
		Orders:        row.Orders,
		PendingOrders: row.PendingOrders,
	})
}
