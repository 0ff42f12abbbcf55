package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/observability"
)

// AggregatedMetrics sums Total-period metrics across a set of events.
// Only events that have a metrics record contribute: TotalEvents and
// ActiveEvents count fetched records, not requested ids, so an event
// with no recorded activity yet is excluded rather than zero-filled.
type AggregatedMetrics struct {
	TotalPhotosUploaded int `json:"total_photos_uploaded"`
	TotalGuestAppOpens  int `json:"total_guest_app_opens"`
	TotalQrScans        int `json:"total_qr_scans"`
	TotalSlideshowViews int `json:"total_slideshow_views"`
	TotalGalleryViews   int `json:"total_gallery_views"`
	LiveGuestCount      int `json:"live_guest_count"`

	ActiveEvents    int `json:"active_events"`
	TotalEvents     int `json:"total_events"`
	TotalEngagement int `json:"total_engagement"`

	PhotosPerEvent float64 `json:"photos_per_event"`
}

// EventMetricsView is the metrics shape exposed to the HTTP layer. A
// missing record yields a zero-valued view carrying the queried key;
// callers must not conflate that with a recorded zero-activity state.
type EventMetricsView struct {
	EventID     uuid.UUID  `json:"event_id"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	TotalPhotosUploaded int `json:"total_photos_uploaded"`
	TotalGuestAppOpens  int `json:"total_guest_app_opens"`
	TotalQrScans        int `json:"total_qr_scans"`
	TotalSlideshowViews int `json:"total_slideshow_views"`
	TotalGalleryViews   int `json:"total_gallery_views"`
	LiveGuestCount      int `json:"live_guest_count"`
	TotalEngagement     int `json:"total_engagement"`

	UpdatedAt time.Time `json:"updated_at"`
}

// MetricsService accumulates per-event counters and aggregates them
// across events for the dashboard.
type MetricsService struct {
	store  Store
	logger *observability.Logger
}

// NewMetricsService creates a metrics service.
func NewMetricsService(store Store, logger *observability.Logger) *MetricsService {
	return &MetricsService{
		store:  store,
		logger: logger,
	}
}

// GetAggregatedMetricsForEvents combines the Total-period metrics of
// the given events into one summary. An empty id set returns a zero
// summary without a store round trip.
func (s *MetricsService) GetAggregatedMetricsForEvents(ctx context.Context, eventIDs []uuid.UUID) (*AggregatedMetrics, error) {
	if len(eventIDs) == 0 {
		return &AggregatedMetrics{}, nil
	}

	allMetrics, err := s.store.GetMetricsForEvents(ctx, eventIDs, PeriodTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}

	if len(allMetrics) == 0 {
		ids := make([]string, len(eventIDs))
		for i, id := range eventIDs {
			ids[i] = id.String()
		}
		s.logger.WithField("event_ids", strings.Join(ids, ", ")).
			Warn("No metrics found for events")
		return &AggregatedMetrics{}, nil
	}

	agg := &AggregatedMetrics{TotalEvents: len(allMetrics)}
	for _, m := range allMetrics {
		agg.TotalPhotosUploaded += m.TotalPhotosUploaded
		agg.TotalGuestAppOpens += m.TotalGuestAppOpens
		agg.TotalQrScans += m.TotalQrScans
		agg.TotalSlideshowViews += m.TotalSlideshowViews
		agg.TotalGalleryViews += m.TotalGalleryViews
		agg.LiveGuestCount += m.LiveGuestCount
		if m.LiveGuestCount > 0 {
			agg.ActiveEvents++
		}
	}

	agg.TotalEngagement = agg.TotalPhotosUploaded + agg.TotalGuestAppOpens +
		agg.TotalQrScans + agg.TotalSlideshowViews + agg.TotalGalleryViews
	agg.PhotosPerEvent = float64(agg.TotalPhotosUploaded) / float64(agg.TotalEvents)

	return agg, nil
}

// GetEventMetrics returns one event's metrics for a period. A missing
// record is not an error: the caller gets a zero-valued view for the
// queried key.
func (s *MetricsService) GetEventMetrics(ctx context.Context, eventID uuid.UUID, periodType PeriodType) (*EventMetricsView, error) {
	metrics, err := s.store.GetMetrics(ctx, eventID, periodType)
	if errors.Is(err, ErrNotFound) {
		s.logger.WithFields(map[string]interface{}{
			"event_id":    eventID.String(),
			"period_type": string(periodType),
		}).Warn("No metrics found for event")
		return &EventMetricsView{EventID: eventID, PeriodType: periodType}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}

	return &EventMetricsView{
		EventID:             metrics.EventID,
		PeriodType:          metrics.PeriodType,
		PeriodStart:         metrics.PeriodStart,
		PeriodEnd:           metrics.PeriodEnd,
		TotalPhotosUploaded: metrics.TotalPhotosUploaded,
		TotalGuestAppOpens:  metrics.TotalGuestAppOpens,
		TotalQrScans:        metrics.TotalQrScans,
		TotalSlideshowViews: metrics.TotalSlideshowViews,
		TotalGalleryViews:   metrics.TotalGalleryViews,
		LiveGuestCount:      metrics.LiveGuestCount,
		TotalEngagement:     metrics.TotalEngagement(),
		UpdatedAt:           metrics.UpdatedAt,
	}, nil
}

// IncrementPhotoUploads adds count to an event's Total-period photo
// counter through the store's atomic increment path.
func (s *MetricsService) IncrementPhotoUploads(ctx context.Context, eventID uuid.UUID, count int) error {
	return s.increment(ctx, eventID, CounterPhotosUploaded, count)
}

// IncrementGuestAppOpens adds count to the guest app open counter.
func (s *MetricsService) IncrementGuestAppOpens(ctx context.Context, eventID uuid.UUID, count int) error {
	return s.increment(ctx, eventID, CounterGuestAppOpens, count)
}

// IncrementQrScans adds count to the QR scan counter.
func (s *MetricsService) IncrementQrScans(ctx context.Context, eventID uuid.UUID, count int) error {
	return s.increment(ctx, eventID, CounterQrScans, count)
}

// IncrementSlideshowViews adds count to the slideshow view counter.
func (s *MetricsService) IncrementSlideshowViews(ctx context.Context, eventID uuid.UUID, count int) error {
	return s.increment(ctx, eventID, CounterSlideshowViews, count)
}

// IncrementGalleryViews adds count to the gallery view counter.
func (s *MetricsService) IncrementGalleryViews(ctx context.Context, eventID uuid.UUID, count int) error {
	return s.increment(ctx, eventID, CounterGalleryViews, count)
}

// UpdateLiveGuestCount sets an event's live guest gauge, clamped to
// zero.
func (s *MetricsService) UpdateLiveGuestCount(ctx context.Context, eventID uuid.UUID, count int) error {
	if eventID == uuid.Nil {
		return fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}
	if count < 0 {
		count = 0
	}
	return s.store.SetLiveGuestCount(ctx, eventID, PeriodTotal, count)
}

// UpdateMetricsForEvents recomputes each event's Total-period counters
// from the activity log and upserts the result. It is idempotent and
// safe to run concurrently with itself: the upsert is atomic per
// (event id, period type), so the last completed recomputation wins.
func (s *MetricsService) UpdateMetricsForEvents(ctx context.Context, eventIDs []uuid.UUID) error {
	for _, eventID := range eventIDs {
		if err := s.refreshEvent(ctx, eventID); err != nil {
			return fmt.Errorf("failed to refresh metrics for event %s: %w", eventID, err)
		}
	}
	return nil
}

func (s *MetricsService) refreshEvent(ctx context.Context, eventID uuid.UUID) error {
	counts, err := s.store.CountActivitiesByType(ctx, eventID)
	if err != nil {
		return err
	}

	metrics, err := NewEventMetrics(eventID, PeriodTotal, nil, nil)
	if err != nil {
		return err
	}

	metrics.TotalPhotosUploaded = counts[ActivityPhotoUploaded]
	metrics.TotalGuestAppOpens = counts[ActivityGuestAppOpened]
	metrics.TotalQrScans = counts[ActivityQrCodeScanned]
	metrics.TotalSlideshowViews = counts[ActivitySlideshowViewed]
	metrics.TotalGalleryViews = counts[ActivityGalleryViewed]

	// The live gauge is derived from join/leave churn; leaves recorded
	// without a matching join clamp to zero.
	metrics.UpdateLiveGuestCount(counts[ActivityEventJoined] - counts[ActivityEventLeft])

	if err := s.store.UpsertMetrics(ctx, metrics); err != nil {
		return err
	}

	s.logger.WithField("event_id", eventID.String()).Debug("Refreshed event metrics")
	return nil
}

func (s *MetricsService) increment(ctx context.Context, eventID uuid.UUID, counter Counter, count int) error {
	if eventID == uuid.Nil {
		return fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}
	if count == 0 {
		return nil
	}
	if count < 0 {
		return fmt.Errorf("%w: increment must be positive", ErrInvalidArgument)
	}
	return s.store.IncrementCounter(ctx, eventID, PeriodTotal, counter, count)
}
