package admin_test

import (
	"context"
	"testing"

	"github.com/foodi-storefront/api/internal/admin"
	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	calls []string
	err   error
}

func (m *mockBackend) UpdateOrderStatus(ctx context.Context, id string, status model.Status) (model.Order, error) {
	m.calls = append(m.calls, "PATCH /orders/"+id+" "+string(status))
	return model.Order{ID: id, Status: status}, m.err
}

func (m *mockBackend) DeleteOrder(ctx context.Context, id string) error {
	m.calls = append(m.calls, "DELETE /orders/"+id)
	return m.err
}

func (m *mockBackend) CreateMenuItem(ctx context.Context, req apiclient.MenuItemRequest) (model.MenuItem, error) {
	m.calls = append(m.calls, "POST /menu")
	return model.MenuItem{ID: "m1", Name: req.Name}, m.err
}

func (m *mockBackend) UpdateMenuItem(ctx context.Context, id string, req apiclient.MenuItemRequest) (model.MenuItem, error) {
	m.calls = append(m.calls, "PUT /menu/"+id)
	return model.MenuItem{ID: id, Name: req.Name}, m.err
}

func (m *mockBackend) DeleteMenuItem(ctx context.Context, id string) error {
	m.calls = append(m.calls, "DELETE /menu/"+id)
	return m.err
}

func (m *mockBackend) ListUsers(ctx context.Context) ([]model.User, error) {
	m.calls = append(m.calls, "GET /users")
	return []model.User{{ID: "u1"}}, m.err
}

func (m *mockBackend) IsAdmin(ctx context.Context, email string) (bool, error) {
	m.calls = append(m.calls, "GET /users/admin/"+email)
	return true, m.err
}

func (m *mockBackend) PromoteToAdmin(ctx context.Context, id string) (model.User, error) {
	m.calls = append(m.calls, "PUT /users/admin/"+id)
	return model.User{ID: id, Role: "ADMIN"}, m.err
}

func (m *mockBackend) DeleteUser(ctx context.Context, id string) error {
	m.calls = append(m.calls, "DELETE /users/"+id)
	return m.err
}

type actor string

func (a actor) Subject() string { return string(a) }

var decline = ui.ConfirmFunc(func(string, string) bool { return false })

func newSurface(backend *mockBackend, confirmer ui.Confirmer) (*admin.Surface, *ui.Recorder) {
	rec := &ui.Recorder{}
	return admin.NewSurface(backend, actor("boss@example.com"), confirmer, rec), rec
}

func TestUpdateStatus_AllowedTransition(t *testing.T) {
	backend := &mockBackend{}
	s, rec := newSurface(backend, ui.AlwaysConfirm)

	o, err := s.UpdateStatus(context.Background(), "o1", model.StatusPending, model.StatusShipping)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipping, o.Status)
	assert.Equal(t, []string{"PATCH /orders/o1 shipping"}, backend.calls)
	assert.Equal(t, ui.LevelSuccess, rec.Notices()[0].Level)
}

func TestUpdateStatus_RejectedTransitions(t *testing.T) {
	tests := []struct {
		from, to model.Status
	}{
		{model.StatusPending, model.StatusCompleted},
		{model.StatusCompleted, model.StatusPending},
		{model.StatusCancelled, model.StatusShipping},
		{model.StatusShipping, model.StatusPending},
	}
	for _, tt := range tests {
		backend := &mockBackend{}
		s, _ := newSurface(backend, ui.AlwaysConfirm)

		_, err := s.UpdateStatus(context.Background(), "o1", tt.from, tt.to)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		assert.Empty(t, backend.calls)
	}
}

func TestAllowedTransitions(t *testing.T) {
	assert.Equal(t, []model.Status{model.StatusShipping, model.StatusCancelled}, admin.AllowedTransitions(model.StatusPending))
	assert.Equal(t, []model.Status{model.StatusCompleted, model.StatusCancelled}, admin.AllowedTransitions(model.StatusShipping))
	assert.Empty(t, admin.AllowedTransitions(model.StatusCompleted))
	assert.Empty(t, admin.AllowedTransitions(model.StatusCancelled))
}

func TestDeclinedConfirmationMakesNoCall(t *testing.T) {
	backend := &mockBackend{}
	s, _ := newSurface(backend, decline)
	ctx := context.Background()

	_, err := s.UpdateStatus(ctx, "o1", model.StatusPending, model.StatusCancelled)
	assert.ErrorIs(t, err, apperr.ErrNotConfirmed)
	assert.ErrorIs(t, s.DeleteOrder(ctx, "o1"), apperr.ErrNotConfirmed)
	assert.ErrorIs(t, s.DeleteMenuItem(ctx, "m1"), apperr.ErrNotConfirmed)
	_, err = s.PromoteToAdmin(ctx, model.User{ID: "u2", Name: "Bob"})
	assert.ErrorIs(t, err, apperr.ErrNotConfirmed)
	assert.ErrorIs(t, s.DeleteUser(ctx, model.User{ID: "u2", Email: "bob@example.com"}), apperr.ErrNotConfirmed)

	assert.Empty(t, backend.calls)
}

func TestDeleteUser_RefusesSelf(t *testing.T) {
	backend := &mockBackend{}
	confirmed := false
	s, rec := newSurface(backend, ui.ConfirmFunc(func(string, string) bool {
		confirmed = true
		return true
	}))

	err := s.DeleteUser(context.Background(), model.User{ID: "u1", Email: "Boss@Example.com"})
	assert.ErrorIs(t, err, apperr.ErrCannotDeleteSelf)
	assert.False(t, confirmed, "self-delete is refused before asking")
	assert.Empty(t, backend.calls)
	assert.Len(t, rec.Notices(), 1)
}

func TestDeleteUser(t *testing.T) {
	backend := &mockBackend{}
	s, _ := newSurface(backend, ui.AlwaysConfirm)

	require.NoError(t, s.DeleteUser(context.Background(), model.User{ID: "u2", Email: "bob@example.com"}))
	assert.Equal(t, []string{"DELETE /users/u2"}, backend.calls)
}

func TestPromoteToAdmin_AlreadyAdmin(t *testing.T) {
	backend := &mockBackend{}
	s, _ := newSurface(backend, ui.AlwaysConfirm)

	u, err := s.PromoteToAdmin(context.Background(), model.User{ID: "u1", Role: "ADMIN"})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Empty(t, backend.calls)
}

func TestBackendFailureNotifiesServerMessage(t *testing.T) {
	backend := &mockBackend{err: &apperr.Error{Kind: apperr.ErrNotFound, Status: 404, Message: "order not found"}}
	s, rec := newSurface(backend, ui.AlwaysConfirm)

	err := s.DeleteOrder(context.Background(), "o9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.Len(t, rec.Notices(), 1)
	assert.Equal(t, "order not found", rec.Notices()[0].Title)
}

func TestMenuItemValidation(t *testing.T) {
	backend := &mockBackend{}
	s, _ := newSurface(backend, ui.AlwaysConfirm)
	ctx := context.Background()

	_, err := s.CreateMenuItem(ctx, apiclient.MenuItemRequest{Name: " ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = s.UpdateMenuItem(ctx, "m1", apiclient.MenuItemRequest{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	_, err = s.CreateMenuItem(ctx, apiclient.MenuItemRequest{Name: "x", Discount: 101})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Empty(t, backend.calls)

	item, err := s.CreateMenuItem(ctx, apiclient.MenuItemRequest{Name: "Pho", Category: "soup", Price: decimal.NewFromInt(6)})
	require.NoError(t, err)
	assert.Equal(t, "Pho", item.Name)
}

func TestListUsersAndIsAdmin(t *testing.T) {
	backend := &mockBackend{}
	s, _ := newSurface(backend, ui.AlwaysConfirm)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	ok, err := s.IsAdmin(context.Background(), "boss@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
