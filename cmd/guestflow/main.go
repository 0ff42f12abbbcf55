package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/api"
	"github.com/guestflow/guestflow/pkg/config"
	"github.com/guestflow/guestflow/pkg/dashboard"
	"github.com/guestflow/guestflow/pkg/observability"
	"github.com/guestflow/guestflow/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	store, err := postgres.NewStore(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer store.Close()
	logger.Info("Connected to postgres")

	events := postgres.NewEventDirectory(store.DB())
	cachedEvents, err := dashboard.NewCachingEventDirectory(events, cfg.Dashboard.EventNameCacheSize)
	if err != nil {
		log.Fatalf("Failed to create event name cache: %v", err)
	}

	activityService := analytics.NewActivityLogService(store, cachedEvents, logger)
	metricsService := analytics.NewMetricsService(store, logger)
	dashboardService := dashboard.NewService(cachedEvents, metricsService, activityService, logger)

	var overview dashboard.OverviewProvider = dashboardService
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		// A dead cache only degrades performance; start regardless.
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, dashboard cache degraded")
		}
		overview = dashboard.NewCachedService(dashboardService, redisClient, logger)
	}

	server := api.NewServer(logger,
		api.NewActivityHandlers(activityService, metricsService),
		api.NewMetricsHandlers(metricsService, cachedEvents),
		api.NewDashboardHandlers(overview),
	)

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store.DB(), redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", apiServer.Addr).Info("Starting analytics API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	if err := healthServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Health server shutdown failed")
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server stopped")
}
