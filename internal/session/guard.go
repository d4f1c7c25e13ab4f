// Package session handles a rejected or missing token: purge it, sign the
// subject out, show one notice and send the user to the login page.
package session

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/foodi-storefront/api/internal/identity"
	"github.com/foodi-storefront/api/internal/ui"
	"golang.org/x/sync/singleflight"
)

// Identity is the part of *identity.Manager the guard drives.
type Identity interface {
	Generation() uint64
	SignedIn() bool
	HandleAuthChange(ctx context.Context, ev identity.AuthEvent) error
}

// Guard runs the expiry sequence at most once per identity session.
// Concurrent callers share a single run and all return after it finishes.
type Guard struct {
	identity  Identity
	notifier  ui.Notifier
	navigator ui.Navigator

	group singleflight.Group

	mu       sync.Mutex
	fired    bool
	firedGen uint64
}

// NewGuard creates a Guard.
func NewGuard(id Identity, notifier ui.Notifier, navigator ui.Navigator) *Guard {
	return &Guard{identity: id, notifier: notifier, navigator: navigator}
}

// Expire forces re-authentication. It is a no-op for a guest and for a
// session that has already been expired.
func (g *Guard) Expire(ctx context.Context, reason string) {
	gen := g.identity.Generation()
	_, _, _ = g.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		g.expire(ctx, gen, reason)
		return nil, nil
	})
}

func (g *Guard) expire(ctx context.Context, gen uint64, reason string) {
	g.mu.Lock()
	if g.fired && g.firedGen == gen {
		g.mu.Unlock()
		return
	}
	if !g.identity.SignedIn() {
		g.mu.Unlock()
		return
	}
	g.fired, g.firedGen = true, gen
	g.mu.Unlock()

	log.Printf("WARN: session expired: %s", reason)
	if err := g.identity.HandleAuthChange(ctx, identity.AuthEvent{Kind: identity.AuthLogout}); err != nil {
		log.Printf("ERROR: forced logout: %v", err)
	}
	g.notifier.Notify(ui.Notice{
		Level: ui.LevelWarning,
		Title: "Session expired. Please login again.",
	})
	g.navigator.ToLogin("")
}
