// Package cart keeps the signed-in subject's cart. The mirror returned by
// Entries is updated optimistically; every mutation either lands on the
// server or is rolled back to the last confirmed value.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/shopspring/decimal"
)

// Backend is satisfied by *apiclient.Secure.
type Backend interface {
	ListCart(ctx context.Context, email string) ([]model.CartEntry, error)
	AddCartEntry(ctx context.Context, req apiclient.AddCartEntryRequest) (model.CartEntry, error)
	SetCartQuantity(ctx context.Context, id string, quantity int, email string) (model.CartEntry, error)
	MergeCartQuantity(ctx context.Context, id, menuItemID string, quantity int) (model.CartEntry, error)
	DeleteCartEntry(ctx context.Context, id string) error
}

// Identity is satisfied by *identity.Manager.
type Identity interface {
	Subject() string
	Token() (string, bool)
}

// Expirer is satisfied by *session.Guard.
type Expirer interface {
	Expire(ctx context.Context, reason string)
}

// EntryState tells whether an entry's mirrored value is server truth.
type EntryState int

const (
	Confirmed EntryState = iota
	Pending
)

func (s EntryState) String() string {
	if s == Pending {
		return "pending"
	}
	return "confirmed"
}

// AddRequest adds Quantity of Item. ReturnTo is where login should send the
// user back to when there is no session.
type AddRequest struct {
	Item     model.MenuItem
	Quantity int
	ReturnTo string
}

// Store is safe for concurrent use. Mutations of the same entry run one at a
// time in call order; mutations of different entries are independent.
type Store struct {
	backend   Backend
	identity  Identity
	expirer   Expirer
	notifier  ui.Notifier
	navigator ui.Navigator

	mu        sync.Mutex
	confirmed []model.CartEntry
	mirror    []model.CartEntry
	baseline  map[string]model.CartEntry // pending entries only
	removals  map[string]bool            // pending entries being deleted
	lanes     map[string]chan struct{}
	watchers  map[int]func([]model.CartEntry)
	nextWatch int
	closed    bool
}

// NewStore creates an empty Store.
func NewStore(backend Backend, id Identity, expirer Expirer, notifier ui.Notifier, navigator ui.Navigator) *Store {
	return &Store{
		backend:   backend,
		identity:  id,
		expirer:   expirer,
		notifier:  notifier,
		navigator: navigator,
		baseline:  make(map[string]model.CartEntry),
		removals:  make(map[string]bool),
		lanes:     make(map[string]chan struct{}),
		watchers:  make(map[int]func([]model.CartEntry)),
	}
}

// List loads the cart from the server and replaces the mirror with it.
// A guest has an empty cart. A subject without a token has an expired
// session: the session guard is invoked and ErrSessionExpired returned.
func (s *Store) List(ctx context.Context) ([]model.CartEntry, error) {
	subject := s.identity.Subject()
	if subject == "" {
		s.replace(nil)
		return []model.CartEntry{}, nil
	}
	if _, ok := s.identity.Token(); !ok {
		s.expirer.Expire(ctx, "cart: no token for "+subject)
		return nil, fmt.Errorf("list cart: %w", apperr.ErrSessionExpired)
	}

	entries, err := s.backend.ListCart(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	s.replace(entries)
	return s.Entries(), nil
}

// Add puts a new item in the cart and reloads the cart from the server.
// Without a token nothing is sent and the user is sent to login.
func (s *Store) Add(ctx context.Context, req AddRequest) error {
	subject, err := s.requireSession(req.ReturnTo)
	if err != nil {
		return err
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	created, err := s.backend.AddCartEntry(ctx, apiclient.AddCartEntryRequest{
		MenuItemID: req.Item.ID,
		Email:      subject,
		Quantity:   qty,
		Name:       req.Item.Name,
		Price:      req.Item.Price,
		Image:      req.Item.Image,
		Recipe:     req.Item.Recipe,
	})
	if err != nil {
		s.fail(err, "Failed to add item to cart")
		return fmt.Errorf("add to cart: %w", err)
	}

	s.converge(ctx, created)
	s.notifier.Notify(ui.Notice{Level: ui.LevelSuccess, Title: "Food added on the cart."})
	return nil
}

func (s *Store) requireSession(returnTo string) (string, error) {
	subject := s.identity.Subject()
	if _, ok := s.identity.Token(); !ok || subject == "" {
		s.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Please login to order the food"})
		s.navigator.ToLogin(returnTo)
		return "", fmt.Errorf("add to cart: %w", apperr.ErrUnauthenticated)
	}
	return subject, nil
}

// AddOrMerge adds req.Item, or raises the quantity of the entry already
// holding it.
func (s *Store) AddOrMerge(ctx context.Context, req AddRequest) error {
	s.mu.Lock()
	var existing *model.CartEntry
	for i := range s.mirror {
		if s.mirror[i].MenuItemID == req.Item.ID {
			e := s.mirror[i]
			existing = &e
			break
		}
	}
	s.mu.Unlock()

	if existing == nil {
		return s.Add(ctx, req)
	}
	if _, err := s.requireSession(req.ReturnTo); err != nil {
		return err
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	err := s.mutate(ctx, existing.ID, func(cur model.CartEntry) (model.CartEntry, bool) {
		cur.Quantity += qty
		return cur, true
	}, func(ctx context.Context, next model.CartEntry) (model.CartEntry, error) {
		return s.backend.MergeCartQuantity(ctx, next.ID, next.MenuItemID, next.Quantity)
	})
	if err != nil {
		s.fail(err, "Failed to update cart")
		return fmt.Errorf("merge cart entry %s: %w", existing.ID, err)
	}

	s.converge(ctx, model.CartEntry{})
	s.notifier.Notify(ui.Notice{Level: ui.LevelSuccess, Title: "Cart updated."})
	return nil
}

// Increment raises an entry's quantity by one.
func (s *Store) Increment(ctx context.Context, id string) error {
	return s.setQuantity(ctx, id, +1)
}

// Decrement lowers an entry's quantity by one. At quantity 1 it does nothing.
func (s *Store) Decrement(ctx context.Context, id string) error {
	return s.setQuantity(ctx, id, -1)
}

func (s *Store) setQuantity(ctx context.Context, id string, delta int) error {
	err := s.mutate(ctx, id, func(cur model.CartEntry) (model.CartEntry, bool) {
		if cur.Quantity+delta < 1 {
			return cur, false
		}
		cur.Quantity += delta
		return cur, true
	}, func(ctx context.Context, next model.CartEntry) (model.CartEntry, error) {
		owner := next.Owner
		if owner == "" {
			owner = s.identity.Subject()
		}
		return s.backend.SetCartQuantity(ctx, next.ID, next.Quantity, owner)
	})
	if err != nil {
		s.fail(err, "Failed to update quantity")
		return fmt.Errorf("update cart entry %s: %w", id, err)
	}
	return nil
}

// mutate runs one optimistic update of entry id in its lane. change derives
// the new value from the current one and reports whether anything changes;
// send pushes it to the server.
func (s *Store) mutate(
	ctx context.Context,
	id string,
	change func(model.CartEntry) (model.CartEntry, bool),
	send func(context.Context, model.CartEntry) (model.CartEntry, error),
) error {
	release := s.acquire(id)
	defer release()

	s.mu.Lock()
	idx := indexOf(s.mirror, id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("cart entry %s: %w", id, apperr.ErrNotFound)
	}
	cur := s.mirror[idx]
	next, ok := change(cur)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, has := s.identity.Token(); !has {
		s.mu.Unlock()
		return s.rejectWithoutToken(ctx, "update cart entry "+id)
	}
	base := cur
	if c := indexOf(s.confirmed, id); c >= 0 {
		base = s.confirmed[c]
	}
	s.baseline[id] = base
	s.setMirrorLocked(id, next)
	s.mu.Unlock()
	s.notify()

	saved, err := send(ctx, next)

	s.mu.Lock()
	base = s.baseline[id]
	delete(s.baseline, id)
	if err != nil {
		s.setMirrorLocked(id, base)
	} else {
		if saved.ID == "" || saved.Quantity < 1 {
			saved = next
		}
		// Server responses may omit the snapshot fields.
		next.Quantity = saved.Quantity
		if c := indexOf(s.confirmed, id); c >= 0 {
			s.confirmed[c] = next
		}
		s.setMirrorLocked(id, next)
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// Remove deletes an entry. The entry disappears from the mirror at once and
// comes back in its old position if the server refuses.
func (s *Store) Remove(ctx context.Context, id string) error {
	release := s.acquire(id)
	defer release()

	s.mu.Lock()
	idx := indexOf(s.mirror, id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove cart entry %s: %w", id, apperr.ErrNotFound)
	}
	if _, has := s.identity.Token(); !has {
		s.mu.Unlock()
		return s.rejectWithoutToken(ctx, "remove cart entry "+id)
	}
	s.baseline[id] = s.mirror[idx]
	s.removals[id] = true
	if !s.closed {
		s.mirror = append(s.mirror[:idx:idx], s.mirror[idx+1:]...)
	}
	s.mu.Unlock()
	s.notify()

	err := s.backend.DeleteCartEntry(ctx, id)

	s.mu.Lock()
	removed := s.baseline[id]
	delete(s.baseline, id)
	delete(s.removals, id)
	if err != nil {
		if !s.closed && indexOf(s.mirror, id) < 0 {
			s.mirror = insertAt(s.mirror, idx, removed)
		}
	} else {
		if c := indexOf(s.confirmed, id); c >= 0 {
			s.confirmed = append(s.confirmed[:c:c], s.confirmed[c+1:]...)
		}
		if m := indexOf(s.mirror, id); m >= 0 && !s.closed {
			s.mirror = append(s.mirror[:m:m], s.mirror[m+1:]...)
		}
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.fail(err, "Failed to remove item")
		return fmt.Errorf("remove cart entry %s: %w", id, err)
	}
	return nil
}

// Entries returns a copy of the mirror.
func (s *Store) Entries() []model.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.mirror)
}

// State reports whether entry id has a mutation in flight.
func (s *Store) State(id string) EntryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.baseline[id]; ok {
		return Pending
	}
	return Confirmed
}

// Subtotal sums price × quantity over the mirror.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Subtotal(s.mirror)
}

// Count is the number of entries, as shown on the cart badge.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mirror)
}

// Watch registers fn to receive the mirror after every change. The returned
// func unregisters it.
func (s *Store) Watch(fn func([]model.CartEntry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// Close detaches the mirror. Mutations already in flight still finish
// against the server but no longer touch the mirror or reach watchers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.watchers = make(map[int]func([]model.CartEntry))
}

// acquire waits for earlier mutations of id and returns the release func
// for this one.
func (s *Store) acquire(id string) func() {
	done := make(chan struct{})
	s.mu.Lock()
	prev := s.lanes[id]
	s.lanes[id] = done
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	return func() {
		s.mu.Lock()
		if s.lanes[id] == done {
			delete(s.lanes, id)
		}
		s.mu.Unlock()
		close(done)
	}
}

// converge reloads the cart after an add. If the reload fails the created
// entry is appended locally so the mirror still shows it.
func (s *Store) converge(ctx context.Context, created model.CartEntry) {
	if _, err := s.List(ctx); err != nil {
		log.Printf("WARN: reload cart after add: %v", err)
		if created.ID == "" {
			return
		}
		s.mu.Lock()
		if indexOf(s.confirmed, created.ID) < 0 {
			s.confirmed = append(s.confirmed, created)
		}
		if !s.closed && indexOf(s.mirror, created.ID) < 0 {
			s.mirror = append(s.mirror, created)
		}
		s.mu.Unlock()
		s.notify()
	}
}

// replace installs a fresh server view. Entries with a mutation in flight
// keep their optimistic value, and entries being deleted stay out of the
// mirror; their baseline moves to the new server value.
func (s *Store) replace(entries []model.CartEntry) {
	s.mu.Lock()
	s.confirmed = cloneEntries(entries)
	if !s.closed {
		mirror := make([]model.CartEntry, 0, len(entries))
		for _, e := range entries {
			if _, pending := s.baseline[e.ID]; pending {
				s.baseline[e.ID] = e
				if s.removals[e.ID] {
					continue
				}
				if m := indexOf(s.mirror, e.ID); m >= 0 {
					e = s.mirror[m]
				}
			}
			mirror = append(mirror, e)
		}
		s.mirror = mirror
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setMirrorLocked(id string, e model.CartEntry) {
	if s.closed {
		return
	}
	if i := indexOf(s.mirror, id); i >= 0 {
		s.mirror[i] = e
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	if s.closed || len(s.watchers) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := cloneEntries(s.mirror)
	fns := make([]func([]model.CartEntry), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// rejectWithoutToken ends a mutation attempted without a token before
// anything changes locally. A guest is sent to login; a subject whose token
// is gone has an expired session.
func (s *Store) rejectWithoutToken(ctx context.Context, op string) error {
	subject := s.identity.Subject()
	if subject == "" {
		s.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Please login to order the food"})
		s.navigator.ToLogin("cart")
		return fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	s.expirer.Expire(ctx, "cart: no token for "+subject)
	return fmt.Errorf("%s: %w", op, apperr.ErrSessionExpired)
}

// fail reports err once. Session expiry has already been reported by the
// session guard, and a missing session by rejectWithoutToken.
func (s *Store) fail(err error, fallback string) {
	if errors.Is(err, apperr.ErrSessionExpired) || errors.Is(err, apperr.ErrUnauthenticated) {
		return
	}
	log.Printf("ERROR: cart: %v", err)
	s.notifier.Notify(ui.Notice{Level: ui.LevelError, Title: apperr.Message(err, fallback)})
}

func indexOf(entries []model.CartEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func insertAt(entries []model.CartEntry, idx int, e model.CartEntry) []model.CartEntry {
	if idx > len(entries) {
		idx = len(entries)
	}
	out := make([]model.CartEntry, 0, len(entries)+1)
	out = append(out, entries[:idx]...)
	out = append(out, e)
	return append(out, entries[idx:]...)
}

func cloneEntries(entries []model.CartEntry) []model.CartEntry {
	out := make([]model.CartEntry, len(entries))
	copy(out, entries)
	return out
}
