// Package app assembles repositories, services and HTTP dependencies from
// explicit store handles.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/thriftlane-backend/api/routes"
	authsvc "github.com/angelmondragon/thriftlane-backend/internal/auth"
	"github.com/angelmondragon/thriftlane-backend/internal/cart"
	"github.com/angelmondragon/thriftlane-backend/internal/catalog"
	"github.com/angelmondragon/thriftlane-backend/internal/checkout"
	"github.com/angelmondragon/thriftlane-backend/internal/orders"
	"github.com/angelmondragon/thriftlane-backend/internal/payments"
	"github.com/angelmondragon/thriftlane-backend/internal/users"
	paystackwebhook "github.com/angelmondragon/thriftlane-backend/internal/webhooks/paystack"
	"github.com/angelmondragon/thriftlane-backend/internal/wishlist"
	"github.com/angelmondragon/thriftlane-backend/pkg/auth"
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/metrics"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
	"github.com/angelmondragon/thriftlane-backend/pkg/redis"
	"github.com/angelmondragon/thriftlane-backend/pkg/storage/local"
)

type Params struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	// Gateway defaults to a Paystack client built from Config.Paystack.
	Gateway payments.Verifier
	// Registry defaults to a fresh registry carrying the Go and process collectors.
	Registry *prometheus.Registry
}

// NewDependencies wires every service behind the HTTP surface.
func NewDependencies(p Params) (routes.Dependencies, error) {
	var deps routes.Dependencies
	if p.Config == nil || p.Logger == nil || p.DB == nil {
		return deps, fmt.Errorf("config, logger and database are required")
	}
	cfg := p.Config
	conn := p.DB.DB()

	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	orderMetrics := metrics.NewOrderMetrics(reg)

	gateway := p.Gateway
	if gateway == nil {
		client, err := paystack.NewClient(cfg.Paystack.SecretKey,
			paystack.WithBaseURL(cfg.Paystack.BaseURL),
			paystack.WithTimeout(cfg.Paystack.VerifyTimeout),
		)
		if err != nil {
			return deps, fmt.Errorf("paystack client: %w", err)
		}
		gateway = client
	}

	userRepo := users.NewRepository(conn)
	itemRepo := catalog.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return deps, fmt.Errorf("auth service: %w", err)
	}

	blobs, err := local.New(cfg.Uploads)
	if err != nil {
		return deps, fmt.Errorf("blob store: %w", err)
	}
	catalogService, err := catalog.NewService(catalog.ServiceParams{Repo: itemRepo, Blobs: blobs, Logger: p.Logger})
	if err != nil {
		return deps, fmt.Errorf("catalog service: %w", err)
	}

	cartService, err := cart.NewService(cart.ServiceParams{Repo: cart.NewRepository(conn), Items: itemRepo})
	if err != nil {
		return deps, fmt.Errorf("cart service: %w", err)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ItemRepo:     itemRepo,
	})
	if err != nil {
		return deps, fmt.Errorf("wishlist service: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:              p.DB,
		OrdersRepo:      ordersRepo,
		DefaultCurrency: cfg.Orders.DefaultCurrency,
		Metrics:         orderMetrics,
		Logger:          p.Logger,
	})
	if err != nil {
		return deps, fmt.Errorf("checkout service: %w", err)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return deps, fmt.Errorf("orders service: %w", err)
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		DB:              p.DB,
		Gateway:         gateway,
		OrdersRepo:      ordersRepo,
		AmountPolicy:    cfg.Orders.AmountPolicy,
		DefaultCurrency: cfg.Orders.DefaultCurrency,
		VerifyTimeout:   cfg.Paystack.VerifyTimeout,
		Metrics:         orderMetrics,
		Logger:          p.Logger,
	})
	if err != nil {
		return deps, fmt.Errorf("reconciler: %w", err)
	}

	deps = routes.Dependencies{
		Config:        cfg,
		Logger:        p.Logger,
		DB:            p.DB,
		Gatherer:      reg,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Authenticator: auth.NewAuthenticator(cfg.JWT, userRepo),
		Auth:          authService,
		Catalog:       catalogService,
		Cart:          cartService,
		Wishlist:      wishlistService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Reconciler:    reconciler,
	}

	// Webhook dedup lives in redis; without it deliveries are rejected.
	if p.Redis != nil {
		deps.Redis = p.Redis
		guard, err := paystackwebhook.NewIdempotencyGuard(p.Redis, cfg.Paystack.WebhookTTL)
		if err != nil {
			return deps, fmt.Errorf("webhook guard: %w", err)
		}
		webhook, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
			SecretKey:  cfg.Paystack.SecretKey,
			Reconciler: reconciler,
			Guard:      guard,
			Logger:     p.Logger,
		})
		if err != nil {
			return deps, fmt.Errorf("webhook service: %w", err)
		}
		deps.Webhook = webhook
	}
	return deps, nil
}

