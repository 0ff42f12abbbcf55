package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/async"
	"github.com/guestflow/guestflow/pkg/config"
	"github.com/guestflow/guestflow/pkg/dashboard"
	"github.com/guestflow/guestflow/pkg/observability"
	"github.com/guestflow/guestflow/pkg/storage/postgres"
)

var runOnce = flag.Bool("run-once", false, "Run one refresh pass and exit (for testing and backfills)")

// refreshWorkers bounds concurrent per-event recomputations.
const refreshWorkers = 8

func main() {
	flag.Parse()

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

	events := postgres.NewEventDirectory(store.DB())
	metricsService := analytics.NewMetricsService(store, logger)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	refresher := &refresher{
		events:  events,
		metrics: metricsService,
		redis:   redisClient,
		logger:  logger,
		timeout: cfg.Refresher.RunTimeout,
	}

	// Run once mode (for testing or backfilling)
	if *runOnce {
		if err := refresher.run(); err != nil {
			log.Fatalf("Metrics refresh failed: %v", err)
		}
		log.Println("Metrics refresh completed successfully")
		return
	}

	// Scheduled mode
	c := cron.New()
	if _, err := c.AddFunc(cfg.Refresher.Schedule, func() {
		if err := refresher.run(); err != nil {
			logger.WithError(err).Error("Scheduled metrics refresh failed")
		}
	}); err != nil {
		log.Fatalf("Failed to schedule metrics refresh: %v", err)
	}

	c.Start()
	log.Println("Metrics refresher started")
	log.Printf("Refresh schedule: %s", cfg.Refresher.Schedule)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Let an in-flight refresh finish before exiting
	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Refresher stopped")
}

type refresher struct {
	events  analytics.EventDirectory
	metrics *analytics.MetricsService
	redis   *redis.Client
	logger  *observability.Logger
	timeout time.Duration
}

// run recomputes all-time metrics for every known event. Safe to invoke
// repeatedly: each event's refresh is an atomic upsert.
func (r *refresher) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	events, err := r.events.ListEvents(ctx)
	if err != nil {
		observability.MetricsRefreshRuns.WithLabelValues("failure").Inc()
		return err
	}

	eventIDs := make([]uuid.UUID, len(events))
	for i, e := range events {
		eventIDs[i] = e.ID
	}

	// Events refresh independently; fan out with a bounded worker
	// count so a large account does not serialize behind one slow
	// recomputation.
	err = async.ForEach(ctx, eventIDs, refreshWorkers, func(ctx context.Context, id uuid.UUID) error {
		return r.metrics.UpdateMetricsForEvents(ctx, []uuid.UUID{id})
	})
	if err != nil {
		observability.MetricsRefreshRuns.WithLabelValues("failure").Inc()
		return err
	}

	// Drop the cached overview so the next dashboard load sees the
	// refreshed counters instead of waiting out the TTL.
	if r.redis != nil {
		if err := r.redis.Del(ctx, dashboard.OverviewCacheKey).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to invalidate dashboard cache after refresh")
		}
	}

	observability.MetricsRefreshRuns.WithLabelValues("success").Inc()
	r.logger.WithField("events", len(eventIDs)).Info("Refreshed metrics for all events")
	return nil
}
