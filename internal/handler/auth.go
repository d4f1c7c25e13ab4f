package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/auth"
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/foodi-storefront/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TokenStore defines the database methods needed by the token endpoint.
// Satisfied by *database.Queries; narrow interface for testability.
type TokenStore interface {
	GetUserRole(ctx context.Context, email string) (string, error)
}

// TokenHandler exchanges an identity-provider email for an API token.
type TokenHandler struct {
	store     TokenStore
	jwtSecret string
	ttl       time.Duration
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(store TokenStore, jwtSecret string, ttl time.Duration) *TokenHandler {
	return &TokenHandler{store: store, jwtSecret: jwtSecret, ttl: ttl}
}

// RegisterRoutes registers the token endpoint on the given Chi router.
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Post("/jwt", h.Issue)
}

type tokenRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Issue handles POST /jwt. Accounts that have not registered yet get the
// customer role.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	role, err := h.store.GetUserRole(r.Context(), email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: lookup role for token: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		role = enum.UserRoleCustomer
	}

	token, err := auth.GenerateToken(h.jwtSecret, email, role, h.ttl)
	if err != nil {
		log.Printf("ERROR: generate token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// --- Shared helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeError answers {"error": msg, "message": msg}; the storefront shows
// message to the user.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "message": msg})
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("ERROR: failed to write response: %v", err)
	}
}

// requireClaims writes 401 and returns false when the request carries no claims.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return claims, true
}

func isAdmin(claims *auth.Claims) bool {
	return claims != nil && strings.EqualFold(claims.Role, enum.UserRoleAdmin)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
