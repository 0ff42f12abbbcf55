package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/observability"
)

// RecentActivityLimit bounds the overview's activity feed.
const RecentActivityLimit = 20

// Overview is the full dashboard payload.
type Overview struct {
	Events           []*analytics.Event           `json:"events"`
	Analytics        *analytics.AggregatedMetrics `json:"analytics"`
	RecentActivities []analytics.ActivityView     `json:"recent_activities"`
}

// OverviewProvider computes a dashboard overview. Service is the
// canonical implementation; CachedService decorates one.
type OverviewProvider interface {
	GetOverview(ctx context.Context) (*Overview, error)
}

// Service assembles the overview from the event directory and the
// analytics services.
type Service struct {
	events     analytics.EventDirectory
	metrics    *analytics.MetricsService
	activities *analytics.ActivityLogService
	logger     *observability.Logger
}

// NewService creates a dashboard service.
func NewService(events analytics.EventDirectory, metrics *analytics.MetricsService, activities *analytics.ActivityLogService, logger *observability.Logger) *Service {
	return &Service{
		events:     events,
		metrics:    metrics,
		activities: activities,
		logger:     logger,
	}
}

// GetOverview builds the dashboard summary. The aggregated metrics and
// the recent activity feed depend only on the event id list, so both
// are fetched concurrently and joined; the first failure wins and there
// is no partial response.
func (s *Service) GetOverview(ctx context.Context) (*Overview, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	if len(events) == 0 {
		return emptyOverview(), nil
	}

	eventIDs := make([]uuid.UUID, len(events))
	for i, e := range events {
		eventIDs[i] = e.ID
	}

	var (
		agg    *analytics.AggregatedMetrics
		recent []analytics.ActivityView
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.metrics.GetAggregatedMetricsForEvents(gctx, eventIDs)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.activities.GetRecentActivitiesForEvents(gctx, eventIDs, RecentActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard overview: %w", err)
	}

	return &Overview{
		Events:           events,
		Analytics:        agg,
		RecentActivities: recent,
	}, nil
}

func emptyOverview() *Overview {
	return &Overview{
		Events:           []*analytics.Event{},
		Analytics:        &analytics.AggregatedMetrics{},
		RecentActivities: []analytics.ActivityView{},
	}
}
