package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/thriftlane-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/thriftlane-backend/api/controllers/webhooks"
	"github.com/angelmondragon/thriftlane-backend/api/middleware"
	authsvc "github.com/angelmondragon/thriftlane-backend/internal/auth"
	"github.com/angelmondragon/thriftlane-backend/internal/cart"
	"github.com/angelmondragon/thriftlane-backend/internal/catalog"
	"github.com/angelmondragon/thriftlane-backend/internal/checkout"
	"github.com/angelmondragon/thriftlane-backend/internal/orders"
	"github.com/angelmondragon/thriftlane-backend/internal/payments"
	"github.com/angelmondragon/thriftlane-backend/internal/wishlist"
	"github.com/angelmondragon/thriftlane-backend/pkg/auth"
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/metrics"
	"github.com/angelmondragon/thriftlane-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface is built from.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Authenticator *auth.Authenticator
	Auth          authsvc.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Wishlist      wishlist.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Reconciler    payments.Reconciler
	Webhook       webhookcontrollers.PaystackWebhookService
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	// A nil *redis.Client must not reach the middlewares as a non-nil interface.
	var (
		idemStore redis.IdempotencyStore
		rateStore middleware.RateLimiterStore
		readiness = map[string]controllers.Pinger{"database": deps.DB}
	)
	if deps.Redis != nil {
		idemStore = deps.Redis
		rateStore = deps.Redis
		readiness["redis"] = deps.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	prefix := "/" + strings.Trim(cfg.Uploads.PublicPrefix, "/")
	if prefix != "/" {
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Uploads.Dir)))
		r.Method(http.MethodGet, prefix+"/*", files)
	}

	requireAuth := middleware.Auth(deps.Authenticator, logg)
	requireAdmin := middleware.RequireRole(deps.Authenticator, enums.UserRoleAdmin, logg)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/paystack", webhookcontrollers.PaystackWebhook(deps.Webhook, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(deps.Auth, logg))
		})

		r.Get("/products", controllers.ProductsList(deps.Catalog, logg))
		r.Get("/product/{id}", controllers.ProductGet(deps.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, middleware.Idempotency(idemStore, logg))

			r.Get("/user/items", controllers.UserItems(deps.Catalog, logg))
			r.With(requireAdmin).Post("/user/item", controllers.ItemCreate(deps.Catalog, cfg.Uploads.MaxUploadMB, logg))

			r.Get("/user/cart", controllers.CartList(deps.Cart, logg))
			r.Post("/user/cart", controllers.CartAdd(deps.Cart, logg))
			r.Delete("/user/cart", controllers.CartClear(deps.Cart, logg))
			r.Put("/user/cart/{id}", controllers.CartUpdate(deps.Cart, logg))
			r.Delete("/user/cart/{id}", controllers.CartRemove(deps.Cart, logg))

			r.Get("/user/wishlist", controllers.WishlistList(deps.Wishlist, logg))
			r.Post("/user/wishlist", controllers.WishlistAdd(deps.Wishlist, logg))
			r.Delete("/user/wishlist/{id}", controllers.WishlistRemove(deps.Wishlist, logg))

			r.Post("/order", controllers.OrderCreate(deps.Checkout, logg))
			r.Post("/order/{id}/pay", controllers.OrderPay(deps.Checkout, logg))
			r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
			r.Post("/verify-payment", controllers.VerifyPayment(deps.Reconciler, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/orders", controllers.AdminOrdersList(deps.Orders, logg))
				r.Get("/orders/{status}", controllers.AdminOrdersList(deps.Orders, logg))
				r.Get("/users", controllers.AdminListUsers(deps.Auth, logg))
				r.Delete("/item/{id}", controllers.AdminItemDelete(deps.Catalog, logg))
			})
		})
	})

	return r
}
