// Package tracker lists orders for customers and for the admin bookings view.
package tracker

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/model"
)

// PlaceholderImage is shown for a line whose menu item no longer exists.
const PlaceholderImage = "/images/placeholder-food.png"

// DefaultPollInterval is how often the admin view refreshes.
const DefaultPollInterval = 30 * time.Second

// Backend is satisfied by *apiclient.Secure.
type Backend interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
}

// Tracker reads orders.
type Tracker struct {
	backend Backend
}

// New creates a Tracker.
func New(backend Backend) *Tracker {
	return &Tracker{backend: backend}
}

// ListMine returns subject's orders, newest first.
func (t *Tracker) ListMine(ctx context.Context, subject string) ([]model.Order, error) {
	orders, err := t.backend.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	mine := []model.Order{}
	for _, o := range orders {
		if strings.EqualFold(o.Owner, subject) {
			mine = append(mine, o)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})
	return mine, nil
}

// ListAll returns every order, pending first and otherwise newest first.
func (t *Tracker) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := t.backend.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	SortForAdmin(orders)
	return orders, nil
}

// SortForAdmin orders pending orders first, then by creation time descending.
func SortForAdmin(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		pi, pj := orders[i].Status == model.StatusPending, orders[j].Status == model.StatusPending
		if pi != pj {
			return pi
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// ResolveLineImage finds the current image for a historical order line,
// matching by menu item id and then by name.
func ResolveLineImage(line model.LineItem, menu []model.MenuItem) string {
	if line.MenuItemID != "" {
		for _, it := range menu {
			if it.ID == line.MenuItemID && it.Image != "" {
				return it.Image
			}
		}
	}
	for _, it := range menu {
		if strings.EqualFold(strings.TrimSpace(it.Name), strings.TrimSpace(line.Name)) && it.Image != "" {
			return it.Image
		}
	}
	return PlaceholderImage
}

// Poller refreshes the admin order list at a fixed interval.
type Poller struct {
	tracker  *Tracker
	interval time.Duration
	deliver  func([]model.Order, error)
}

// NewPoller creates a Poller. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(t *Tracker, interval time.Duration, deliver func([]model.Order, error)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{tracker: t, interval: interval, deliver: deliver}
}

// Run fetches immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		orders, err := p.tracker.ListAll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("WARN: poll orders: %v", err)
		}
		p.deliver(orders, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
