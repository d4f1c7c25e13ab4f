package router

import (
	"log"
	"net/http"

	"github.com/foodi-storefront/api/internal/config"
	"github.com/foodi-storefront/api/internal/database"
	"github.com/foodi-storefront/api/internal/enum"
	"github.com/foodi-storefront/api/internal/handler"
	mw "github.com/foodi-storefront/api/internal/middleware"
	"github.com/foodi-storefront/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIPrefix is where the storefront API is mounted.
const APIPrefix = "/api/v1"

// New creates a Chi router with all storefront routes wired up.
// Admin routes re-read the caller's role from the database on every request.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, menuCache handler.MenuCache) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authenticate := mw.Authenticate(cfg.JWTSecret)
	refreshRole := mw.RefreshRole(queries)
	requireAdmin := mw.RequireRole(enum.UserRoleAdmin)

	r.Route(APIPrefix, func(r chi.Router) {
		// Token exchange (public)
		tokenHandler := handler.NewTokenHandler(queries, cfg.JWTSecret, cfg.TokenTTL)
		tokenHandler.RegisterRoutes(r)

		// Menu: public reads, admin writes
		menuHandler := handler.NewMenuHandler(queries, menuCache)
		r.Route("/menu", func(r chi.Router) {
			menuHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(authenticate, refreshRole, requireAdmin)
				menuHandler.RegisterAdminRoutes(r)
			})
		})

		// Users
		userHandler := handler.NewUserHandler(queries)
		r.Route("/users", func(r chi.Router) {
			userHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				userHandler.RegisterSelfRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticate, refreshRole, requireAdmin)
				userHandler.RegisterAdminRoutes(r)
			})
		})

		// Carts (owner only)
		cartHandler := handler.NewCartHandler(queries)
		r.Route("/carts", func(r chi.Router) {
			r.Use(authenticate)
			cartHandler.RegisterRoutes(r)
		})

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(orderService, queries)
		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticate, refreshRole)
			orderHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				orderHandler.RegisterAdminRoutes(r)
			})
		})

		// Admin dashboard
		statsHandler := handler.NewStatsHandler(queries)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, refreshRole, requireAdmin)
			statsHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
