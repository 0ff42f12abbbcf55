package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Counter names one of the cumulative metrics columns for the store's
// atomic increment path.
type Counter string

const (
	CounterPhotosUploaded Counter = "total_photos_uploaded"
	CounterGuestAppOpens  Counter = "total_guest_app_opens"
	CounterQrScans        Counter = "total_qr_scans"
	CounterSlideshowViews Counter = "total_slideshow_views"
	CounterGalleryViews   Counter = "total_gallery_views"
)

// Valid reports whether c names a known cumulative counter.
func (c Counter) Valid() bool {
	switch c {
	case CounterPhotosUploaded, CounterGuestAppOpens, CounterQrScans,
		CounterSlideshowViews, CounterGalleryViews:
		return true
	}
	return false
}

// Store is the persistence contract for activity logs and event
// metrics. Every method is a potentially blocking I/O call; callers
// must not hold locks across them.
//
// Implementations must serialize metrics writes per (event id, period
// type): UpsertMetrics is a single atomic insert-or-replace, and
// IncrementCounter must apply every increment even under concurrent
// writers for the same key.
type Store interface {
	// Activity log
	AddActivity(ctx context.Context, activity *ActivityLog) error
	GetActivities(ctx context.Context, eventID uuid.UUID) ([]*ActivityLog, error)
	GetActivitiesByType(ctx context.Context, eventID uuid.UUID, activityType ActivityType) ([]*ActivityLog, error)
	GetRecentActivities(ctx context.Context, limit int) ([]*ActivityLog, error)
	GetRecentActivitiesForEvents(ctx context.Context, eventIDs []uuid.UUID, limit int) ([]*ActivityLog, error)
	GetUnprocessedActivities(ctx context.Context, batchSize int) ([]*ActivityLog, error)
	GetActivityCountByType(ctx context.Context, eventID uuid.UUID, activityType ActivityType) (int, error)
	CountActivitiesByType(ctx context.Context, eventID uuid.UUID) (map[ActivityType]int, error)
	GetLastActivityTime(ctx context.Context, eventID uuid.UUID) (*time.Time, error)
	MarkActivitiesAsProcessed(ctx context.Context, activityIDs []uuid.UUID) error
	HasActivityData(ctx context.Context, eventID uuid.UUID) (bool, error)

	// Event metrics
	GetMetrics(ctx context.Context, eventID uuid.UUID, periodType PeriodType) (*EventMetrics, error)
	GetMetricsForEvents(ctx context.Context, eventIDs []uuid.UUID, periodType PeriodType) ([]*EventMetrics, error)
	GetMetricsByPeriod(ctx context.Context, periodType PeriodType) ([]*EventMetrics, error)
	GetMetricsForDateRange(ctx context.Context, eventID uuid.UUID, start, end time.Time) ([]*EventMetrics, error)
	UpsertMetrics(ctx context.Context, metrics *EventMetrics) error
	IncrementCounter(ctx context.Context, eventID uuid.UUID, periodType PeriodType, counter Counter, delta int) error
	SetLiveGuestCount(ctx context.Context, eventID uuid.UUID, periodType PeriodType, count int) error
	DeleteMetrics(ctx context.Context, metricsID uuid.UUID) error
	HasMetricsData(ctx context.Context, eventID uuid.UUID) (bool, error)
}

// Event is the read-only projection of an event exposed to the
// analytics core. Event lifecycle is owned elsewhere; this subsystem
// never mutates event state.
type Event struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

// EventDirectory is the read-only event lookup capability consumed from
// the event collaborator.
type EventDirectory interface {
	ListEvents(ctx context.Context) ([]*Event, error)
	GetEventName(ctx context.Context, eventID uuid.UUID) (string, error)
}
