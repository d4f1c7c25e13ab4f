// Package catalog reads the menu. The last good snapshot is kept for the
// session and served when the backend cannot be reached.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source is satisfied by *apiclient.Public.
type Source interface {
	ListMenu(ctx context.Context) ([]model.MenuItem, error)
	SearchMenu(ctx context.Context, query string) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
}

// Client fetches the menu and keeps a snapshot of the last good response.
type Client struct {
	src   Source
	group singleflight.Group

	mu        sync.RWMutex
	snapshot  []model.MenuItem
	fetchedAt time.Time
}

// NewClient creates a Client.
func NewClient(src Source) *Client {
	return &Client{src: src}
}

// FetchAll returns the full menu. When the backend fails it returns the last
// good snapshot instead, or ErrCatalogUnavailable if there is none.
func (c *Client) FetchAll(ctx context.Context) ([]model.MenuItem, error) {
	v, err, _ := c.group.Do("menu", func() (interface{}, error) {
		return c.src.ListMenu(ctx)
	})
	if err != nil {
		if snap, ok := c.cached(); ok {
			log.Printf("WARN: menu fetch failed, serving snapshot from %s: %v", c.snapshotTime().Format(time.RFC3339), err)
			return snap, nil
		}
		return nil, fmt.Errorf("%w: %w", apperr.ErrCatalogUnavailable, err)
	}

	items := v.([]model.MenuItem)
	c.mu.Lock()
	c.snapshot = clone(items)
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return clone(items), nil
}

// Search asks the backend for items matching query. If the backend search
// fails, the snapshot is filtered locally instead.
func (c *Client) Search(ctx context.Context, query string) ([]model.MenuItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.FetchAll(ctx)
	}

	items, err := c.src.SearchMenu(ctx, query)
	if err == nil {
		return items, nil
	}
	log.Printf("WARN: menu search %q failed, filtering snapshot: %v", query, err)

	snap, ok := c.cached()
	if !ok {
		if snap, err = c.FetchAll(ctx); err != nil {
			return nil, err
		}
	}
	return Match(snap, query), nil
}

// Get resolves id, legacy or current format, against the snapshot and falls
// back to the backend.
func (c *Client) Get(ctx context.Context, id string) (model.MenuItem, error) {
	id = model.CanonicalID(id, "")
	if id == "" {
		return model.MenuItem{}, fmt.Errorf("menu item: empty id: %w", apperr.ErrNotFound)
	}

	c.mu.RLock()
	for _, it := range c.snapshot {
		if it.ID == id {
			c.mu.RUnlock()
			return it, nil
		}
	}
	c.mu.RUnlock()

	return c.src.GetMenuItem(ctx, id)
}

// Snapshot returns the last good menu and whether one exists.
func (c *Client) Snapshot() ([]model.MenuItem, bool) {
	return c.cached()
}

func (c *Client) cached() ([]model.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil, false
	}
	return clone(c.snapshot), true
}

func (c *Client) snapshotTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

func clone(items []model.MenuItem) []model.MenuItem {
	out := make([]model.MenuItem, len(items))
	copy(out, items)
	return out
}

// Match filters items whose name, recipe or category contains query,
// case-insensitively.
func Match(items []model.MenuItem, query string) []model.MenuItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.MenuItem{}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Recipe), q) ||
			strings.Contains(strings.ToLower(it.Category), q) {
			out = append(out, it)
		}
	}
	return out
}

// CategoryAll disables category filtering.
const CategoryAll = "all"

// FilterByCategory keeps the items of category. CategoryAll and "" keep all.
func FilterByCategory(items []model.MenuItem, category string) []model.MenuItem {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return clone(items)
	}
	out := []model.MenuItem{}
	for _, it := range items {
		if strings.EqualFold(it.Category, category) {
			out = append(out, it)
		}
	}
	return out
}

// SortOption names a menu ordering.
type SortOption string

const (
	SortDefault   SortOption = "default"
	SortNameAsc   SortOption = "A-Z"
	SortNameDesc  SortOption = "Z-A"
	SortPriceAsc  SortOption = "low-to-high"
	SortPriceDesc SortOption = "high-to-low"
)

// Sort returns a sorted copy of items. Unknown options keep the input order.
func Sort(items []model.MenuItem, opt SortOption) []model.MenuItem {
	out := clone(items)
	var less func(a, b model.MenuItem) bool
	switch opt {
	case SortNameAsc:
		less = func(a, b model.MenuItem) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b model.MenuItem) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	case SortPriceAsc:
		less = func(a, b model.MenuItem) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b model.MenuItem) bool { return a.Price.GreaterThan(b.Price) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// OnSale keeps the items carrying a discount.
func OnSale(items []model.MenuItem) []model.MenuItem {
	out := []model.MenuItem{}
	for _, it := range items {
		if it.Discount > 0 {
			out = append(out, it)
		}
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price × (1 − discount/100), rounded to cents.
func DiscountedPrice(item model.MenuItem) decimal.Decimal {
	if item.Discount <= 0 {
		return item.Price
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(item.Discount))).Div(hundred)
	return item.Price.Mul(factor).Round(2)
}
