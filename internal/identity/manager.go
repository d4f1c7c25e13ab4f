// Package identity owns the storefront bearer token. Every other component
// reads the token through Manager.Token and never stores it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
)

// Issuer exchanges an authenticated email for a bearer token.
// Satisfied by *apiclient.Public.
type Issuer interface {
	IssueToken(ctx context.Context, email string) (string, error)
}

// AuthEventKind enumerates identity-provider state changes.
type AuthEventKind int

const (
	AuthLogin AuthEventKind = iota + 1
	AuthLogout
	AuthTokenSwap
)

func (k AuthEventKind) String() string {
	switch k {
	case AuthLogin:
		return "login"
	case AuthLogout:
		return "logout"
	case AuthTokenSwap:
		return "token-swap"
	}
	return fmt.Sprintf("AuthEventKind(%d)", int(k))
}

// AuthEvent is reported by the external identity provider.
type AuthEvent struct {
	Kind        AuthEventKind
	Email       string
	DisplayName string
}

// Manager holds the identity session and its token.
//
// State transitions (login, logout, refresh) run under the write lock, so a
// dependent calling Token while a transition is in progress waits for it to
// finish instead of racing it with a stale or missing token.
type Manager struct {
	mu         sync.RWMutex
	issuer     Issuer
	store      TokenStore
	now        func() time.Time
	identity   model.Identity
	signedIn   bool
	generation uint64
}

// NewManager creates a Manager persisting tokens in store.
func NewManager(issuer Issuer, store TokenStore) *Manager {
	return &Manager{issuer: issuer, store: store, now: time.Now}
}

// Token returns the current token, or false when none is held.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity.Token, m.identity.Token != ""
}

// Identity returns the signed-in identity, or false for a guest.
func (m *Manager) Identity() (model.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity, m.signedIn
}

// Subject returns the signed-in subject id, or "" for a guest.
func (m *Manager) Subject() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.signedIn {
		return ""
	}
	return m.identity.SubjectID
}

// SignedIn reports whether the identity provider has an authenticated user.
// A signed-in subject may still lack a token.
func (m *Manager) SignedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signedIn
}

// Generation identifies the current identity session. It changes on every
// login, logout and token swap.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Refresh issues a new token for email and persists it.
func (m *Manager) Refresh(ctx context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx, email)
}

// Clear removes any stored token. Calling it without a token is a no-op.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

// HandleAuthChange applies an identity-provider event. Login and token swap
// re-issue the token; logout clears it. The subject is recorded even when
// issuance fails, leaving a signed-in session without a token.
func (m *Manager) HandleAuthChange(ctx context.Context, ev AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	switch ev.Kind {
	case AuthLogin, AuthTokenSwap:
		if ev.Email == "" {
			return fmt.Errorf("%s without email: %w", ev.Kind, apperr.ErrValidationFailed)
		}
		m.signedIn = true
		m.identity = model.Identity{SubjectID: ev.Email, DisplayName: ev.DisplayName}
		if _, err := m.refreshLocked(ctx, ev.Email); err != nil {
			log.Printf("WARN: identity %s for %s: %v", ev.Kind, ev.Email, err)
			// A token left over from an earlier session must not outlive it.
			if cerr := m.clearLocked(ctx); cerr != nil {
				log.Printf("ERROR: clear stale token: %v", cerr)
			}
			return err
		}
		return nil
	case AuthLogout:
		m.signedIn = false
		err := m.clearLocked(ctx)
		m.identity = model.Identity{}
		return err
	}
	return fmt.Errorf("unknown auth event %v: %w", ev.Kind, apperr.ErrValidationFailed)
}

// Restore adopts a previously persisted token for a subject the identity
// provider reports as still signed in, without re-issuing it. It returns
// false when no token was stored. Expiry is discovered by the first 401/403.
func (m *Manager) Restore(ctx context.Context, email, displayName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load token: %w", err)
	}
	m.generation++
	m.signedIn = true
	m.identity = model.Identity{SubjectID: email, DisplayName: displayName}
	if token == "" {
		return false, nil
	}
	m.identity.Token = token
	return true, nil
}

func (m *Manager) refreshLocked(ctx context.Context, email string) (string, error) {
	token, err := m.issuer.IssueToken(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrTokenIssuanceFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", apperr.ErrTokenIssuanceFailed, err)
	}
	if err := m.store.Save(ctx, token); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	if m.identity.SubjectID != email {
		m.identity = model.Identity{SubjectID: email}
	}
	m.identity.Token = token
	m.identity.TokenIssuedAt = m.now()
	return token, nil
}

func (m *Manager) clearLocked(ctx context.Context) error {
	m.identity.Token = ""
	m.identity.TokenIssuedAt = time.Time{}
	if err := m.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
