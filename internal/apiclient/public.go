package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
)

// Public calls the endpoints that need no credentials.
type Public struct {
	t *transport
}

// NewPublic creates a Public client rooted at baseURL (e.g.
// http://localhost:8080/api/v1). A zero timeout selects DefaultTimeout.
func NewPublic(baseURL string, timeout time.Duration) *Public {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Public{t: newTransport(baseURL, &http.Client{Timeout: timeout})}
}

// NewPublicWithClient is NewPublic with a caller-supplied http.Client.
func NewPublicWithClient(baseURL string, client *http.Client) *Public {
	return &Public{t: newTransport(baseURL, client)}
}

// ListMenu handles GET /menu.
func (p *Public) ListMenu(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem
	if err := p.t.do(ctx, request{method: http.MethodGet, path: "/menu"}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SearchMenu handles GET /menu/search?query=.
func (p *Public) SearchMenu(ctx context.Context, query string) ([]model.MenuItem, error) {
	var items []model.MenuItem
	err := p.t.do(ctx, request{
		method: http.MethodGet,
		path:   "/menu/search",
		query:  url.Values{"query": {query}},
	}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetMenuItem handles GET /menu/{id}.
func (p *Public) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	var item model.MenuItem
	err := p.t.do(ctx, request{method: http.MethodGet, path: "/menu/" + escape(id)}, &item)
	return item, err
}

type tokenRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken exchanges an authenticated email for a bearer token (POST /jwt).
func (p *Public) IssueToken(ctx context.Context, email string) (string, error) {
	var resp tokenResponse
	err := p.t.do(ctx, request{method: http.MethodPost, path: "/jwt", body: tokenRequest{Email: email}}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("POST /jwt: empty token: %w", apperr.ErrTokenIssuanceFailed)
	}
	return resp.Token, nil
}

// RegisterUserRequest is the profile created after sign-up.
type RegisterUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// RegisterUser handles POST /users. A duplicate account (409) counts as
// success: the profile the caller wanted already exists.
func (p *Public) RegisterUser(ctx context.Context, req RegisterUserRequest) error {
	err := p.t.do(ctx, request{method: http.MethodPost, path: "/users", body: req}, nil)
	if errors.Is(err, apperr.ErrConflict) {
		return nil
	}
	return err
}
