package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/guard"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Deps is everything the local API serves.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Session *session.Store
	Guard   *guard.Guard
	Catalog *catalog.Service
	Cart    *cart.Aggregator
	Orders  *orders.Service
	Admin   *admin.Service
	// Gatherer is exposed on /metrics when set.
	Gatherer prometheus.Gatherer
	// RateStore backs the login and register throttles; nil disables them.
	RateStore   middleware.RateLimiterStore
	ReadyChecks map[string]controllers.ReadinessCheck
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSOrigins),
	)

	r.Get("/healthz/live", controllers.HealthLive(cfg))
	r.Get("/healthz/ready", controllers.HealthReady(cfg, d.Session, logg, d.ReadyChecks))
	if d.Gatherer != nil && cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	loginLimit := middleware.AuthRateLimit(
		middleware.NewAuthRateLimitPolicy("login", cfg.API.AuthRateWindow, cfg.API.AuthRateIPLimit, cfg.API.AuthRateMaxEmail),
		d.RateStore, logg)
	registerLimit := middleware.AuthRateLimit(
		middleware.NewAuthRateLimitPolicy("register", cfg.API.AuthRateWindow, cfg.API.AuthRateIPLimit, cfg.API.AuthRateMaxEmail),
		d.RateStore, logg)

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Session, logg))
		r.Post("/logout", controllers.AuthLogout(d.Session, logg))
		r.With(registerLimit).Post("/register", controllers.AuthRegister(d.Session, logg))
	})
	r.Get("/session", controllers.SessionState(d.Session))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticated(d.Guard, d.Session, logg))

		r.Get("/products", controllers.ListProducts(d.Catalog, logg))
		r.Get("/products/categories", controllers.ListCategories(d.Catalog, logg))
		r.Get("/products/search", controllers.SearchProducts(d.Catalog, logg))

		r.Get("/cart", controllers.GetCart(d.Cart, logg))
		r.Delete("/cart", controllers.ClearCart(d.Cart, logg))
		r.Post("/cart/items", controllers.AddCartItem(d.Cart, logg))
		r.Put("/cart/items/{productID}", controllers.UpdateCartItem(d.Cart, logg))
		r.Delete("/cart/items/{productID}", controllers.RemoveCartItem(d.Cart, logg))

		r.Get("/orders", controllers.ListOrders(d.Orders, logg))
		r.Post("/orders", controllers.PlaceOrder(d.Orders, logg))
		r.Get("/orders/{guid}", controllers.GetOrder(d.Orders, logg))
		r.Head("/orders/{guid}", controllers.OrderExists(d.Orders, logg))
		r.Get("/orders/{guid}/status", controllers.OrderStatus(d.Orders, logg))

		// the admin service re-verifies the role with the gateway on every call
		r.Route("/admin", func(r chi.Router) {
			r.Get("/products", controllers.AdminListProducts(d.Admin, logg))
			r.Post("/products", controllers.AdminCreateProduct(d.Admin, logg))
			r.Put("/products/{id}", controllers.AdminUpdateProduct(d.Admin, logg))
			r.Get("/users", controllers.AdminListUsers(d.Admin, logg))
			r.Get("/users/{id}", controllers.AdminGetUser(d.Admin, logg))
			r.Get("/users/email/{email}", controllers.AdminFindUser(d.Admin, logg))
			r.Post("/users/email/{email}/promote", controllers.AdminPromoteUser(d.Admin, logg))
			r.Post("/users/email/{email}/demote", controllers.AdminDemoteUser(d.Admin, logg))
			r.Delete("/users/{id}", controllers.AdminDeleteUser(d.Admin, logg))
		})
	})

	return r
}

// NewServer applies the timeouts used by cmd/storefront.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
