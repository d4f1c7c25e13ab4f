//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/cache"
	"github.com/foodi-storefront/api/internal/cart"
	"github.com/foodi-storefront/api/internal/checkout"
	"github.com/foodi-storefront/api/internal/config"
	"github.com/foodi-storefront/api/internal/database"
	"github.com/foodi-storefront/api/internal/identity"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/router"
	"github.com/foodi-storefront/api/internal/session"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow drives the storefront API against a real PostgreSQL
// database with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		TokenTTL:    time.Hour,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	queries := database.New(pool)

	server := httptest.NewServer(router.New(cfg, queries, pool, cache.Nop{}))
	defer server.Close()

	// --- 1. Register a customer; a second registration conflicts ---
	ann := map[string]interface{}{"name": "Ann", "email": "Ann@Example.com"}
	expectStatus(t, server, "POST", "/users", ann, "", http.StatusCreated)
	expectStatus(t, server, "POST", "/users", ann, "", http.StatusConflict)

	// --- 2. Bootstrap an admin directly in the database ---
	if _, err := queries.CreateUser(ctx, database.CreateUserParams{
		Name:  "Root",
		Email: "root@example.com",
		Role:  "ADMIN",
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	annToken := issueToken(t, server, "ann@example.com")
	rootToken := issueToken(t, server, "root@example.com")

	// --- 3. Menu writes are admin-only ---
	pho := createMenuItem(t, server, "Pho", "soup", "10", rootToken)
	tea := createMenuItem(t, server, "Tea", "drinks", "5", rootToken)
	expectStatus(t, server, "POST", "/menu", menuBody("Nope", "soup", "1"), annToken, http.StatusForbidden)

	menu := httpJSONList(t, server, "GET", "/menu", nil, "")
	if len(menu) != 2 {
		t.Fatalf("menu: got %d items, want 2", len(menu))
	}

	// --- 4. Cart: adding the same item twice merges into one row ---
	cartBody := map[string]interface{}{"menuItemId": pho, "email": "ann@example.com", "quantity": 1}
	first := httpJSON(t, server, "POST", "/carts", cartBody, annToken, http.StatusCreated)
	second := httpJSON(t, server, "POST", "/carts", cartBody, annToken, http.StatusCreated)
	if first["id"] != second["id"] {
		t.Fatalf("cart upsert: got rows %v and %v, want the same row", first["id"], second["id"])
	}
	if second["quantity"].(float64) != 2 {
		t.Fatalf("cart quantity: got %v, want 2", second["quantity"])
	}
	entryID := second["id"].(string)
	updated := httpJSON(t, server, "PUT", "/carts/"+entryID,
		map[string]interface{}{"quantity": 3, "email": "ann@example.com"}, annToken, http.StatusOK)
	if updated["quantity"].(float64) != 3 {
		t.Fatalf("cart put quantity: got %v, want 3", updated["quantity"])
	}
	expectStatus(t, server, "PUT", "/carts/"+entryID,
		map[string]interface{}{"quantity": 1, "email": "root@example.com"}, rootToken, http.StatusNotFound)
	expectStatus(t, server, "GET", "/carts?email=root@example.com", nil, annToken, http.StatusForbidden)

	// --- 4b. Deleting a menu item leaves carts holding it intact ---
	flan := createMenuItem(t, server, "Flan", "dessert", "4", rootToken)
	flanEntry := httpJSON(t, server, "POST", "/carts",
		map[string]interface{}{"menuItemId": flan, "email": "ann@example.com", "quantity": 1}, annToken, http.StatusCreated)
	expectStatus(t, server, "DELETE", "/menu/"+flan, nil, rootToken, http.StatusOK)
	var kept bool
	for _, e := range httpJSONList(t, server, "GET", "/carts?email=ann@example.com", nil, annToken) {
		if e["id"] == flanEntry["id"] {
			kept = e["menuItemId"] == flan && e["name"] == "Flan"
		}
	}
	if !kept {
		t.Fatalf("cart entry %v did not survive menu deletion", flanEntry["id"])
	}
	expectStatus(t, server, "DELETE", "/carts/"+flanEntry["id"].(string), nil, annToken, http.StatusOK)

	// --- 5. Orders: totals are verified server-side ---
	order := map[string]interface{}{
		"email":        "ann@example.com",
		"customerName": "Ann",
		"items": []map[string]interface{}{
			{"menuItemId": pho, "name": "Pho", "price": "10", "quantity": 2},
			{"menuItemId": tea, "name": "Tea", "price": "5", "quantity": 1},
		},
		"totalAmount":   "26.5",
		"shippingFee":   "1.5",
		"status":        "pending",
		"address":       "1 Trang Tien, Hoan Kiem, hanoi",
		"phone":         "0900000000",
		"paymentMethod": "cod",
	}
	placed := httpJSON(t, server, "POST", "/orders", order, annToken, http.StatusCreated)
	orderID := placed["id"].(string)
	if placed["totalAmount"] != "26.50" {
		t.Fatalf("order total: got %v, want 26.50", placed["totalAmount"])
	}
	if items := placed["items"].([]interface{}); len(items) != 2 {
		t.Fatalf("order items: got %d, want 2", len(items))
	}

	order["totalAmount"] = "30"
	expectStatus(t, server, "POST", "/orders", order, annToken, http.StatusBadRequest)

	mine := httpJSONList(t, server, "GET", "/orders", nil, annToken)
	if len(mine) != 1 {
		t.Fatalf("customer orders: got %d, want 1", len(mine))
	}

	// --- 6. Status transitions follow the lifecycle ---
	expectStatus(t, server, "PATCH", "/orders/"+orderID, map[string]interface{}{"status": "shipping"}, annToken, http.StatusForbidden)
	shipped := httpJSON(t, server, "PATCH", "/orders/"+orderID, map[string]interface{}{"status": "shipping"}, rootToken, http.StatusOK)
	if shipped["status"] != "shipping" {
		t.Fatalf("status: got %v, want shipping", shipped["status"])
	}
	expectStatus(t, server, "PATCH", "/orders/"+orderID, map[string]interface{}{"status": "pending"}, rootToken, http.StatusConflict)

	// --- 7. Promotion applies to the existing token ---
	expectStatus(t, server, "GET", "/admin/stats", nil, annToken, http.StatusForbidden)
	users := httpJSONList(t, server, "GET", "/users", nil, rootToken)
	var annID string
	for _, u := range users {
		if u["email"] == "ann@example.com" {
			annID = u["id"].(string)
		}
	}
	if annID == "" {
		t.Fatalf("ann not in user list: %v", users)
	}
	httpJSON(t, server, "PUT", "/users/admin/"+annID, nil, rootToken, http.StatusOK)

	stats := httpJSON(t, server, "GET", "/admin/stats", nil, annToken, http.StatusOK)
	if stats["orders"].(float64) != 1 || stats["users"].(float64) != 2 {
		t.Errorf("stats: got %v", stats)
	}
	admin := httpJSON(t, server, "GET", "/users/admin/ann@example.com", nil, annToken, http.StatusOK)
	if admin["admin"] != true {
		t.Errorf("admin check: got %v, want true", admin["admin"])
	}

	// --- 8. The storefront client drives the same server ---
	runStorefrontCheckout(t, ctx, server, pho)
}

// runStorefrontCheckout signs a new customer in through the client packages,
// fills the cart and checks out.
func runStorefrontCheckout(t *testing.T, ctx context.Context, server *httptest.Server, menuItemID string) {
	t.Helper()

	public := apiclient.NewPublicWithClient(server.URL+router.APIPrefix, server.Client())
	if err := public.RegisterUser(ctx, apiclient.RegisterUserRequest{Name: "Bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	rec := &ui.Recorder{}
	manager := identity.NewManager(public, &identity.MemoryTokenStore{})
	guard := session.NewGuard(manager, rec, rec)
	secure := public.Secure(manager, guard)

	if err := manager.HandleAuthChange(ctx, identity.AuthEvent{Kind: identity.AuthLogin, Email: "bob@example.com", DisplayName: "Bob"}); err != nil {
		t.Fatalf("login bob: %v", err)
	}

	item, err := public.GetMenuItem(ctx, menuItemID)
	if err != nil {
		t.Fatalf("get menu item: %v", err)
	}

	store := cart.NewStore(secure, manager, guard, rec, rec)
	defer store.Close()
	if _, err := store.List(ctx); err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if err := store.AddOrMerge(ctx, cart.AddRequest{Item: item, Quantity: 1}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if err := store.AddOrMerge(ctx, cart.AddRequest{Item: item, Quantity: 1}); err != nil {
		t.Fatalf("merge into cart: %v", err)
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(entries) != 1 || entries[0].Quantity != 2 {
		t.Fatalf("cart entries: got %+v, want one entry of quantity 2", entries)
	}

	engine := checkout.NewEngine(secure, manager, store, rec, rec)
	info := checkout.ShippingInfo{
		Email:    "bob@example.com",
		FullName: "Bob",
		Phone:    "0900000001",
		Address:  "2 Le Loi",
		District: "District 1",
		Province: "hochiminh",
	}
	result, err := engine.Submit(ctx, info, entries)
	if err != nil {
		t.Fatalf("submit order: %v", err)
	}
	if len(result.CleanupFailures) != 0 {
		t.Errorf("cleanup failures: %+v", result.CleanupFailures)
	}
	if !result.Order.TotalAmount.Equal(decimal.NewFromInt(23)) {
		t.Errorf("order total: got %s, want 23", result.Order.TotalAmount)
	}
	if result.Order.Status != model.StatusPending {
		t.Errorf("order status: got %s, want pending", result.Order.Status)
	}
	if remaining := store.Entries(); len(remaining) != 0 {
		t.Errorf("cart after checkout: got %+v, want empty", remaining)
	}
	if got := rec.LoginRedirects(); len(got) != 0 {
		t.Errorf("unexpected login redirects: %v", got)
	}
}

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("foodi_test"),
		tcpostgres.WithUsername("foodi"),
		tcpostgres.WithPassword("foodi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Relative to internal/handler, where go test runs.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func issueToken(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()
	resp := httpJSON(t, server, "POST", "/jwt", map[string]interface{}{"email": email}, "", http.StatusOK)
	token, ok := resp["token"].(string)
	if !ok || token == "" {
		t.Fatalf("issue token for %s: no token in response: %+v", email, resp)
	}
	return token
}

func menuBody(name, category, price string) map[string]interface{} {
	return map[string]interface{}{
		"name":     name,
		"category": category,
		"price":    price,
		"image":    "https://img.example/" + name + ".png",
		"recipe":   name + " recipe",
	}
}

func createMenuItem(t *testing.T, server *httptest.Server, name, category, price, token string) string {
	t.Helper()
	resp := httpJSON(t, server, "POST", "/menu", menuBody(name, category, price), token, http.StatusCreated)
	id, ok := resp["id"].(string)
	if !ok || id == "" {
		t.Fatalf("create menu item %s: no id in response: %+v", name, resp)
	}
	return id
}

func send(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+router.APIPrefix+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func expectStatus(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string, want int) {
	t.Helper()
	resp := send(t, server, method, path, body, token)
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var payload map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&payload) //nolint:errcheck
		t.Fatalf("%s %s: got status %d, want %d; body: %v", method, path, resp.StatusCode, want, payload)
	}
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string, want int) map[string]interface{} {
	t.Helper()
	resp := send(t, server, method, path, body, token)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("%s %s: decode response (status %d): %v", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: got status %d, want %d; body: %v", method, path, resp.StatusCode, want, result)
	}
	return result
}

func httpJSONList(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) []map[string]interface{} {
	t.Helper()
	resp := send(t, server, method, path, body, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s %s: got status %d, want 200", method, path, resp.StatusCode)
	}
	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return result
}
