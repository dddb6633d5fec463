package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/louretail/bopis-backend/internal/auth"
	"github.com/louretail/bopis-backend/internal/checkout"
	"github.com/louretail/bopis-backend/internal/inventory"
	"github.com/louretail/bopis-backend/internal/lanes"
	"github.com/louretail/bopis-backend/internal/notifications"
	"github.com/louretail/bopis-backend/internal/orders"
	"github.com/louretail/bopis-backend/internal/pos"
	"github.com/louretail/bopis-backend/internal/products"
	"github.com/louretail/bopis-backend/internal/tenants"
	"github.com/louretail/bopis-backend/internal/timeslots"
	"github.com/louretail/bopis-backend/internal/users"
	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db"
	"github.com/louretail/bopis-backend/pkg/logger"
	"github.com/louretail/bopis-backend/pkg/metrics"
	"github.com/louretail/bopis-backend/pkg/migrate"
	"github.com/louretail/bopis-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

// services bundles everything the transport layer needs.
type services struct {
	tenants       tenants.Service
	users         users.Service
	auth          auth.Service
	products      products.Service
	inventory     inventory.Service
	timeslots     timeslots.Service
	orders        orders.Service
	checkout      checkout.Service
	pos           pos.Service
	lanes         lanes.Service
	notifications notifications.Service
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if _, err := buildServices(cfg, dbClient, redisClient, registry); err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: opsMux(logg, registry, dbClient, redisClient),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	case <-stopCtx.Done():
	}

	logg.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, server.Shutdown(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
	shutdownErr = multierr.Append(shutdownErr, dbClient.Close())
	if shutdownErr != nil {
		logg.Error(ctx, "shutdown finished with errors", shutdownErr)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}

func buildServices(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client, registry prometheus.Registerer) (*services, error) {
	conn := dbClient.DB()
	tenantsRepo := tenants.NewRepository(conn)
	usersRepo := users.NewRepository(conn)
	productsRepo := products.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	slotsRepo := timeslots.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	lanesRepo := lanes.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)

	tenantsSvc, err := tenants.NewService(tenantsRepo)
	if err != nil {
		return nil, err
	}
	usersSvc, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewService(usersRepo, cfg.JWT)
	if err != nil {
		return nil, err
	}
	productsSvc, err := products.NewService(productsRepo)
	if err != nil {
		return nil, err
	}
	inventorySvc, err := inventory.NewService(inventoryRepo)
	if err != nil {
		return nil, err
	}
	slotsSvc, err := timeslots.NewService(slotsRepo, cfg.Pickup)
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, productsRepo, usersRepo, notificationsSvc, dbClient)
	if err != nil {
		return nil, err
	}
	checkoutSvc, err := checkout.NewService(ordersRepo, inventoryRepo, slotsRepo, dbClient, metrics.NewCheckoutMetrics(registry))
	if err != nil {
		return nil, err
	}
	posSvc, err := pos.NewService(ordersRepo, inventoryRepo, productsRepo, redisClient, dbClient, metrics.NewPOSMetrics(registry), cfg.POS)
	if err != nil {
		return nil, err
	}
	lanesSvc, err := lanes.NewService(lanesRepo, usersRepo, dbClient)
	if err != nil {
		return nil, err
	}

	return &services{
		tenants:       tenantsSvc,
		users:         usersSvc,
		auth:          authSvc,
		products:      productsSvc,
		inventory:     inventorySvc,
		timeslots:     slotsSvc,
		orders:        ordersSvc,
		checkout:      checkoutSvc,
		pos:           posSvc,
		lanes:         lanesSvc,
		notifications: notificationsSvc,
	}, nil
}

// opsMux serves health and metrics endpoints.
func opsMux(logg *logger.Logger, registry *prometheus.Registry, dbClient *db.Client, redisClient redis.Pinger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbClient.Ping(r.Context()); err != nil {
			logg.Error(r.Context(), "readiness check failed: database", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(r.Context()); err != nil {
			logg.Error(r.Context(), "readiness check failed: redis", err)
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return router
}
