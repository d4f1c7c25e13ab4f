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
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserRole(ctx context.Context, email string) (string, error)
	ListUsers(ctx context.Context) ([]database.User, error)
	PromoteUser(ctx context.Context, id uuid.UUID) (database.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
}

// UserHandler handles account endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers the public registration endpoint: /users
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Register)
}

// RegisterSelfRoutes registers endpoints any signed-in user may call.
func (h *UserHandler) RegisterSelfRoutes(r chi.Router) {
	r.Put("/update", h.UpdateProfile)
	r.Get("/admin/{email}", h.IsAdmin)
}

// RegisterAdminRoutes registers the back-office endpoints.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/admin/{id}", h.Promote)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type registerUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhotoURL  *string   `json:"photoURL"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u database.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	if u.PhotoUrl.Valid {
		resp.PhotoURL = &u.PhotoUrl.String
	}
	return resp
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// --- Handlers ---

// Register handles POST /users. A second registration answers 409.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		PhotoUrl: optionalText(req.PhotoURL),
		Role:     enum.UserRoleCustomer,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// UpdateProfile handles PUT /users/update for the caller's own account.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := h.store.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		Email:    claims.Email,
		Name:     name,
		PhotoUrl: optionalText(req.PhotoURL),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: update profile: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// IsAdmin handles GET /users/admin/{email}. Callers may only ask about
// themselves.
func (h *UserHandler) IsAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !strings.EqualFold(chi.URLParam(r, "email"), claims.Email) {
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}

	role, err := h.store.GetUserRole(r.Context(), claims.Email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: lookup role: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"admin": strings.EqualFold(role, enum.UserRoleAdmin)})
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Promote handles PUT /users/admin/{id}. Promoting an admin is a no-op.
func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.store.PromoteUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: promote user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /users/{id}. Admins cannot delete themselves.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: get user for delete: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if strings.EqualFold(user.Email, claims.Email) {
		writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	if _, err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: delete user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}
