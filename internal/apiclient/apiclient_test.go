package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/identity"
	"github.com/foodi-storefront/api/internal/session"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{ token string }

func (s staticTokens) Token() (string, bool) { return s.token, s.token != "" }

type countingHandler struct{ n atomic.Int64 }

func (c *countingHandler) Expire(ctx context.Context, reason string) { c.n.Add(1) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestPublic_ListMenuNormalizesIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/menu", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"_id":"legacy","name":"Soup","price":4},{"id":"cur","name":"Pizza","price":"9.50"}]`))
	}))
	defer srv.Close()

	items, err := apiclient.NewPublic(srv.URL+"/api/v1", 0).ListMenu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "legacy", items[0].ID)
	assert.Equal(t, "cur", items[1].ID)
}

func TestPublic_SearchMenuSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/menu/search", r.URL.Path)
		assert.Equal(t, "piz za", r.URL.Query().Get("query"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	items, err := apiclient.NewPublic(srv.URL, 0).SearchMenu(context.Background(), "piz za")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPublic_IssueToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body["email"])
		writeJSON(w, http.StatusOK, map[string]string{"token": "jwt"})
	}))
	defer srv.Close()

	token, err := apiclient.NewPublic(srv.URL, 0).IssueToken(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
}

func TestPublic_IssueTokenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	defer srv.Close()

	_, err := apiclient.NewPublic(srv.URL, 0).IssueToken(context.Background(), "a@b.c")
	assert.ErrorIs(t, err, apperr.ErrTokenIssuanceFailed)
}

func TestPublic_RegisterUserConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "user already exists"})
	}))
	defer srv.Close()

	err := apiclient.NewPublic(srv.URL, 0).RegisterUser(context.Background(), apiclient.RegisterUserRequest{Name: "A", Email: "a@b.c"})
	assert.NoError(t, err)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, apperr.ErrValidationFailed},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusConflict, apperr.ErrConflict},
		{http.StatusInternalServerError, apperr.ErrUnavailable},
		{http.StatusBadGateway, apperr.ErrUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tt.status, map[string]string{"message": "server says no"})
		}))

		_, err := apiclient.NewPublic(srv.URL, 0).GetMenuItem(context.Background(), "x")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		assert.Equal(t, "server says no", apperr.Message(err, ""))
		srv.Close()
	}
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := apiclient.NewPublic(srv.URL, 20*time.Millisecond).ListMenu(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, "request timed out", apperr.Message(err, ""))
}

func TestSecure_AttachesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "a@b.c", r.URL.Query().Get("email"))
		w.Write([]byte(`[{"_id":"c1","menuItemId":"m1","email":"a@b.c","quantity":2,"price":10}]`))
	}))
	defer srv.Close()

	sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{"tok"}, nil)
	entries, err := sec.ListCart(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ID)
	assert.True(t, entries[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestSecure_NoTokenMakesNoCall(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{}, nil)
	_, err := sec.ListOrders(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Zero(t, hits.Load())
}

func TestSecure_NoTokenExpiresSession(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	h := &countingHandler{}
	sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{}, h)
	_, err := sec.SetCartQuantity(context.Background(), "c1", 3, "a@b.c")

	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.Equal(t, int64(1), h.n.Load())
	assert.Zero(t, hits.Load())
}

func TestSecure_UpdateProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/update", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ann B", body["name"])
		assert.Equal(t, "https://img.example/ann.png", body["photoURL"])
		writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "name": body["name"], "email": "ann@example.com", "photoURL": body["photoURL"], "role": "user"})
	}))
	defer srv.Close()

	sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{"tok"}, nil)
	u, err := sec.UpdateProfile(context.Background(), apiclient.UpdateProfileRequest{Name: "Ann B", PhotoURL: "https://img.example/ann.png"})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
}

func TestSecure_AuthFailureIntercepted(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]string{"error": "invalid token"})
		}))

		h := &countingHandler{}
		sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{"tok"}, h)
		err := sec.DeleteCartEntry(context.Background(), "c1")

		assert.ErrorIs(t, err, apperr.ErrSessionExpired)
		assert.EqualValues(t, 1, h.n.Load())
		srv.Close()
	}
}

func TestSecure_OtherErrorsNotIntercepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}))
	defer srv.Close()

	h := &countingHandler{}
	sec := apiclient.NewPublic(srv.URL, 0).Secure(staticTokens{"tok"}, h)
	_, err := sec.SetCartQuantity(context.Background(), "c1", 3, "a@b.c")

	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Zero(t, h.n.Load())
}

type issuer struct{}

func (issuer) IssueToken(ctx context.Context, email string) (string, error) { return "tok", nil }

// Five requests rejected together produce a single logout/redirect sequence.
func TestSecure_ConcurrentForbiddenFiresSessionExpiryOnce(t *testing.T) {
	gate := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		<-gate
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	}))
	defer srv.Close()

	mgr := identity.NewManager(issuer{}, &identity.MemoryTokenStore{})
	require.NoError(t, mgr.HandleAuthChange(context.Background(), identity.AuthEvent{Kind: identity.AuthLogin, Email: "a@b.c"}))
	rec := &ui.Recorder{}
	guard := session.NewGuard(mgr, rec, rec)
	sec := apiclient.NewPublic(srv.URL, 0).Secure(mgr, guard)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sec.ListCart(context.Background(), "a@b.c")
		}(i)
	}
	arrived.Wait()
	close(gate)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	}
	assert.Len(t, rec.Notices(), 1)
	assert.Len(t, rec.LoginRedirects(), 1)
	assert.False(t, mgr.SignedIn())
}
