package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/observability"
)

// DefaultRecentLimit bounds recent-activity reads when the caller does
// not supply a limit.
const DefaultRecentLimit = 20

// ActivityView is the display-oriented shape of a log entry consumed by
// the dashboard activity feed.
type ActivityView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	EventID     uuid.UUID `json:"event_id"`
	EventName   string    `json:"event_name"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Data        Document  `json:"data,omitempty"`
}

// ActivityLogService records guest engagement activities and serves the
// activity feed.
type ActivityLogService struct {
	store  Store
	events EventDirectory
	logger *observability.Logger
}

// NewActivityLogService creates an activity log service.
func NewActivityLogService(store Store, events EventDirectory, logger *observability.Logger) *ActivityLogService {
	return &ActivityLogService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// RecordActivity appends one immutable entry to the activity log.
func (s *ActivityLogService) RecordActivity(ctx context.Context, eventID uuid.UUID, activityType ActivityType, data Document, sessionID string) error {
	activity, err := NewActivityLog(eventID, activityType, data, sessionID)
	if err != nil {
		return err
	}

	if err := s.store.AddActivity(ctx, activity); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	observability.ActivitiesRecorded.WithLabelValues(string(activityType)).Inc()
	s.logger.WithFields(map[string]interface{}{
		"event_id": eventID.String(),
		"type":     string(activityType),
	}).Info("Recorded activity")

	return nil
}

// GetActivities returns all entries for an event, newest first.
func (s *ActivityLogService) GetActivities(ctx context.Context, eventID uuid.UUID) ([]*ActivityLog, error) {
	return s.store.GetActivities(ctx, eventID)
}

// GetActivitiesByType returns an event's entries of one type, newest first.
func (s *ActivityLogService) GetActivitiesByType(ctx context.Context, eventID uuid.UUID, activityType ActivityType) ([]*ActivityLog, error) {
	return s.store.GetActivitiesByType(ctx, eventID, activityType)
}

// GetRecentActivities returns the newest entries across all events,
// mapped to the display shape.
func (s *ActivityLogService) GetRecentActivities(ctx context.Context, limit int) ([]ActivityView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	activities, err := s.store.GetRecentActivities(ctx, limit)
	if err != nil {
		return nil, err
	}

	return s.toViews(ctx, activities), nil
}

// GetRecentActivitiesForEvents returns the newest entries for a set of
// events, mapped to the display shape. An empty id set returns an empty
// feed without touching the store: an unbounded "match nothing" filter
// would otherwise degenerate into "match everything".
func (s *ActivityLogService) GetRecentActivitiesForEvents(ctx context.Context, eventIDs []uuid.UUID, limit int) ([]ActivityView, error) {
	if len(eventIDs) == 0 {
		return []ActivityView{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	activities, err := s.store.GetRecentActivitiesForEvents(ctx, eventIDs, limit)
	if err != nil {
		return nil, err
	}

	return s.toViews(ctx, activities), nil
}

// GetUnprocessedActivities returns up to batchSize unprocessed entries,
// oldest first, for the external batch processor.
func (s *ActivityLogService) GetUnprocessedActivities(ctx context.Context, batchSize int) ([]*ActivityLog, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	return s.store.GetUnprocessedActivities(ctx, batchSize)
}

// MarkActivitiesAsProcessed flags the named entries as processed.
// Already-processed and unknown ids are no-ops; the call is idempotent.
func (s *ActivityLogService) MarkActivitiesAsProcessed(ctx context.Context, activityIDs []uuid.UUID) error {
	if len(activityIDs) == 0 {
		return nil
	}
	return s.store.MarkActivitiesAsProcessed(ctx, activityIDs)
}

func (s *ActivityLogService) toViews(ctx context.Context, activities []*ActivityLog) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, ActivityView{
			ID:          a.ID.String(),
			Type:        string(a.Type),
			EventID:     a.EventID,
			EventName:   s.eventName(ctx, a.EventID),
			Description: a.Description(),
			Timestamp:   a.CreatedAt,
			Data:        a.Data,
		})
	}
	return views
}

func (s *ActivityLogService) eventName(ctx context.Context, eventID uuid.UUID) string {
	name, err := s.events.GetEventName(ctx, eventID)
	if err != nil || name == "" {
		return "Unknown Event"
	}
	return name
}
