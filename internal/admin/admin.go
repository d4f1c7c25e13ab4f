// Package admin is the back-office: order moderation, menu management and
// user management. Destructive actions are confirmed first.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/ui"
)

// Backend is satisfied by *apiclient.Secure.
type Backend interface {
	UpdateOrderStatus(ctx context.Context, id string, status model.Status) (model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	CreateMenuItem(ctx context.Context, req apiclient.MenuItemRequest) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, req apiclient.MenuItemRequest) (model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]model.User, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	PromoteToAdmin(ctx context.Context, id string) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Actor is the signed-in admin. Satisfied by *identity.Manager.
type Actor interface {
	Subject() string
}

// Surface runs admin actions.
type Surface struct {
	backend   Backend
	actor     Actor
	confirmer ui.Confirmer
	notifier  ui.Notifier
}

// NewSurface creates a Surface.
func NewSurface(backend Backend, actor Actor, confirmer ui.Confirmer, notifier ui.Notifier) *Surface {
	return &Surface{backend: backend, actor: actor, confirmer: confirmer, notifier: notifier}
}

// AllowedTransitions lists the statuses an order in status s can move to.
func AllowedTransitions(s model.Status) []model.Status {
	return s.Transitions()
}

// UpdateStatus moves an order from one status to another.
func (s *Surface) UpdateStatus(ctx context.Context, orderID string, from, to model.Status) (model.Order, error) {
	if !from.CanTransition(to) {
		err := fmt.Errorf("order %s: %s -> %s: %w", orderID, from, to, apperr.ErrInvalidTransition)
		s.notifier.Notify(ui.Notice{Level: ui.LevelWarning, Title: "Status change not allowed", Text: fmt.Sprintf("%s orders cannot become %s", from, to)})
		return model.Order{}, err
	}
	if err := s.confirm("Update order status?", fmt.Sprintf("Change status from %s to %s", from, to)); err != nil {
		return model.Order{}, err
	}

	order, err := s.backend.UpdateOrderStatus(ctx, orderID, to)
	if err != nil {
		return model.Order{}, s.fail("update order status", err, "Failed to update order status")
	}
	s.success("Order status updated")
	return order, nil
}

// DeleteOrder removes an order.
func (s *Surface) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.confirm("Are you sure?", "You won't be able to revert this!"); err != nil {
		return err
	}
	if err := s.backend.DeleteOrder(ctx, orderID); err != nil {
		return s.fail("delete order", err, "Failed to delete order")
	}
	s.success("Order deleted")
	return nil
}

// CreateMenuItem adds a menu item. The image is an already hosted URI.
func (s *Surface) CreateMenuItem(ctx context.Context, req apiclient.MenuItemRequest) (model.MenuItem, error) {
	if err := validateMenuItem(req); err != nil {
		return model.MenuItem{}, err
	}
	item, err := s.backend.CreateMenuItem(ctx, req)
	if err != nil {
		return model.MenuItem{}, s.fail("create menu item", err, "Failed to add item")
	}
	s.success("Item is inserted successfully!")
	return item, nil
}

// UpdateMenuItem replaces a menu item.
func (s *Surface) UpdateMenuItem(ctx context.Context, id string, req apiclient.MenuItemRequest) (model.MenuItem, error) {
	if err := validateMenuItem(req); err != nil {
		return model.MenuItem{}, err
	}
	item, err := s.backend.UpdateMenuItem(ctx, id, req)
	if err != nil {
		return model.MenuItem{}, s.fail("update menu item", err, "Failed to update item")
	}
	s.success("Item is updated successfully!")
	return item, nil
}

// DeleteMenuItem removes a menu item.
func (s *Surface) DeleteMenuItem(ctx context.Context, id string) error {
	if err := s.confirm("Are you sure?", "You won't be able to revert this!"); err != nil {
		return err
	}
	if err := s.backend.DeleteMenuItem(ctx, id); err != nil {
		return s.fail("delete menu item", err, "Failed to delete item")
	}
	s.success("Item has been deleted")
	return nil
}

// ListUsers returns every account.
func (s *Surface) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// IsAdmin reports whether email holds the admin role.
func (s *Surface) IsAdmin(ctx context.Context, email string) (bool, error) {
	ok, err := s.backend.IsAdmin(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check admin %s: %w", email, err)
	}
	return ok, nil
}

// PromoteToAdmin grants user the admin role.
func (s *Surface) PromoteToAdmin(ctx context.Context, user model.User) (model.User, error) {
	if user.IsAdmin() {
		return user, nil
	}
	if err := s.confirm("Make admin?", user.Name+" will get access to the dashboard"); err != nil {
		return model.User{}, err
	}
	u, err := s.backend.PromoteToAdmin(ctx, user.ID)
	if err != nil {
		return model.User{}, s.fail("promote user", err, "Failed to update role")
	}
	s.success(user.Name + " is an admin now!")
	return u, nil
}

// DeleteUser removes an account. An admin cannot delete themselves.
func (s *Surface) DeleteUser(ctx context.Context, user model.User) error {
	if actor := s.actor.Subject(); actor != "" && strings.EqualFold(actor, user.Email) {
		s.notifier.Notify(ui.Notice{Level: ui.LevelError, Title: "You cannot delete your own account"})
		return fmt.Errorf("delete user %s: %w", user.ID, apperr.ErrCannotDeleteSelf)
	}
	if err := s.confirm("Are you sure?", "Delete "+user.Email+"?"); err != nil {
		return err
	}
	if err := s.backend.DeleteUser(ctx, user.ID); err != nil {
		return s.fail("delete user", err, "Failed to delete user")
	}
	s.success(user.Name + " has been deleted")
	return nil
}

func (s *Surface) confirm(title, text string) error {
	if s.confirmer == nil || !s.confirmer.Confirm(title, text) {
		return apperr.ErrNotConfirmed
	}
	return nil
}

func (s *Surface) success(title string) {
	s.notifier.Notify(ui.Notice{Level: ui.LevelSuccess, Title: title})
}

func (s *Surface) fail(op string, err error, fallback string) error {
	log.Printf("ERROR: %s: %v", op, err)
	if !errors.Is(err, apperr.ErrSessionExpired) {
		s.notifier.Notify(ui.Notice{Level: ui.LevelError, Title: apperr.Message(err, fallback)})
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validateMenuItem(req apiclient.MenuItemRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("menu item name is required: %w", apperr.ErrValidationFailed)
	case req.Price.IsNegative():
		return fmt.Errorf("menu item price must not be negative: %w", apperr.ErrValidationFailed)
	case req.Discount < 0 || req.Discount > 100:
		return fmt.Errorf("menu item discount must be 0-100: %w", apperr.ErrValidationFailed)
	}
	return nil
}
