package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/guard"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/env"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open session storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing session storage", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := gateway.NewFromConfig(cfg.Gateway,
		gateway.WithMetrics(metrics.NewGatewayMetrics(reg)),
		gateway.WithLogger(logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create gateway client", err)
		os.Exit(1)
	}

	sess, err := session.NewStore(session.StoreParams{
		Gateway:        client,
		Storage:        store,
		Logger:         logg,
		DiscardExpired: cfg.Session.DiscardExpired,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session store", err)
		os.Exit(1)
	}
	client.SetTokenSource(sess)
	client.OnUnauthorized(sess.HandleUnauthorized)

	agg := cart.NewAggregator(client, sess, logg)
	sess.OnSignOut(agg.Reset)

	g := guard.New(sess, client, logg)
	orderSvc, err := orders.NewService(orders.ServiceParams{Gateway: client, Cart: agg, Session: sess, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}
	adminSvc, err := admin.NewService(admin.ServiceParams{Gateway: client, Guard: g, Session: sess, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create admin service", err)
		os.Exit(1)
	}

	// restoring may re-verify an admin role with the gateway; failures leave the store signed out
	if err := sess.Initialize(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "session restore failed")
	}

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Session:     sess,
		Guard:       g,
		Catalog:     catalog.NewService(client, logg),
		Cart:        agg,
		Orders:      orderSvc,
		Admin:       adminSvc,
		Gatherer:    reg,
		ReadyChecks: map[string]controllers.ReadinessCheck{"storage": store.Ping},
	}
	if rateStore, closeRate := openRateStore(ctx, cfg, store, logg); rateStore != nil {
		deps.RateStore = rateStore
		defer closeRate()
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"gateway":  cfg.Gateway.BaseURL,
		"storage":  cfg.Storage.NormalizedBackend(),
	})
	logg.Info(logCtx, "starting storefront api")

	server := routes.NewServer(addr, routes.NewRouter(deps))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "storefront api stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down storefront api")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

// openRateStore shares the session redis connection when there is one, or dials the
// configured redis. Without redis the auth throttles stay off.
func openRateStore(ctx context.Context, cfg *config.Config, store storage.Store, logg *logger.Logger) (middleware.RateLimiterStore, func()) {
	if rs, ok := store.(*storage.Redis); ok {
		return rs.Client(), func() {}
	}
	if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		logg.Info(ctx, "auth rate limiting disabled: no redis configured")
		return nil, nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "auth rate limiting disabled: redis unavailable")
		return nil, nil
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}
}
