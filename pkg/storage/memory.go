package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/analytics"
)

// MemoryStore is an in-memory implementation of analytics.Store. All
// operations are guarded by one mutex, which trivially satisfies the
// per-key write serialization the contract requires.
type MemoryStore struct {
	mu         sync.RWMutex
	activities []*analytics.ActivityLog
	metrics    map[metricsKey]*analytics.EventMetrics
}

type metricsKey struct {
	eventID    uuid.UUID
	periodType analytics.PeriodType
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: make(map[metricsKey]*analytics.EventMetrics),
	}
}

// AddActivity appends an activity log entry.
func (s *MemoryStore) AddActivity(ctx context.Context, activity *analytics.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *activity
	s.activities = append(s.activities, &stored)
	return nil
}

// GetActivities returns all entries for an event, newest first.
func (s *MemoryStore) GetActivities(ctx context.Context, eventID uuid.UUID) ([]*analytics.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a *analytics.ActivityLog) bool {
		return a.EventID == eventID
	}, 0, false), nil
}

// GetActivitiesByType returns an event's entries of one type, newest first.
func (s *MemoryStore) GetActivitiesByType(ctx context.Context, eventID uuid.UUID, activityType analytics.ActivityType) ([]*analytics.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a *analytics.ActivityLog) bool {
		return a.EventID == eventID && a.Type == activityType
	}, 0, false), nil
}

// GetRecentActivities returns the newest entries across all events.
func (s *MemoryStore) GetRecentActivities(ctx context.Context, limit int) ([]*analytics.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a *analytics.ActivityLog) bool {
		return true
	}, limit, false), nil
}

// GetRecentActivitiesForEvents returns the newest entries for a set of events.
func (s *MemoryStore) GetRecentActivitiesForEvents(ctx context.Context, eventIDs []uuid.UUID, limit int) ([]*analytics.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}

	return s.filterActivities(func(a *analytics.ActivityLog) bool {
		_, ok := wanted[a.EventID]
		return ok
	}, limit, false), nil
}

// GetUnprocessedActivities returns unprocessed entries, oldest first.
func (s *MemoryStore) GetUnprocessedActivities(ctx context.Context, batchSize int) ([]*analytics.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterActivities(func(a *analytics.ActivityLog) bool {
		return !a.IsProcessed
	}, batchSize, true), nil
}

// GetActivityCountByType counts an event's entries of one type.
func (s *MemoryStore) GetActivityCountByType(ctx context.Context, eventID uuid.UUID, activityType analytics.ActivityType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.activities {
		if a.EventID == eventID && a.Type == activityType {
			count++
		}
	}
	return count, nil
}

// CountActivitiesByType counts an event's entries grouped by type.
func (s *MemoryStore) CountActivitiesByType(ctx context.Context, eventID uuid.UUID) (map[analytics.ActivityType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[analytics.ActivityType]int)
	for _, a := range s.activities {
		if a.EventID == eventID {
			counts[a.Type]++
		}
	}
	return counts, nil
}

// GetLastActivityTime returns the newest entry timestamp for an event,
// or nil when the event has no entries.
func (s *MemoryStore) GetLastActivityTime(ctx context.Context, eventID uuid.UUID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *time.Time
	for _, a := range s.activities {
		if a.EventID != eventID {
			continue
		}
		if last == nil || a.CreatedAt.After(*last) {
			t := a.CreatedAt
			last = &t
		}
	}
	return last, nil
}

// MarkActivitiesAsProcessed flags the named entries as processed.
// Unknown and already-processed ids are no-ops.
func (s *MemoryStore) MarkActivitiesAsProcessed(ctx context.Context, activityIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(activityIDs))
	for _, id := range activityIDs {
		wanted[id] = struct{}{}
	}

	for _, a := range s.activities {
		if _, ok := wanted[a.ID]; ok {
			a.IsProcessed = true
		}
	}
	return nil
}

// HasActivityData reports whether an event has any log entries.
func (s *MemoryStore) HasActivityData(ctx context.Context, eventID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.activities {
		if a.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

// GetMetrics returns the record for a natural key, or
// analytics.ErrNotFound.
func (s *MemoryStore) GetMetrics(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType) (*analytics.EventMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[metricsKey{eventID, periodType}]
	if !ok {
		return nil, fmt.Errorf("metrics for event %s period %s: %w", eventID, periodType, analytics.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

// GetMetricsForEvents returns the records matching the id set for one
// period. Events without a record are omitted.
func (s *MemoryStore) GetMetricsForEvents(ctx context.Context, eventIDs []uuid.UUID, periodType analytics.PeriodType) ([]*analytics.EventMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*analytics.EventMetrics, 0, len(eventIDs))
	for _, id := range eventIDs {
		if m, ok := s.metrics[metricsKey{id, periodType}]; ok {
			copied := *m
			results = append(results, &copied)
		}
	}
	return results, nil
}

// GetMetricsByPeriod returns every record for one period type, most
// recently updated first.
func (s *MemoryStore) GetMetricsByPeriod(ctx context.Context, periodType analytics.PeriodType) ([]*analytics.EventMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*analytics.EventMetrics
	for key, m := range s.metrics {
		if key.periodType == periodType {
			copied := *m
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
	return results, nil
}

// GetMetricsForDateRange returns an event's bounded-period records
// falling inside [start, end], ordered by period start.
func (s *MemoryStore) GetMetricsForDateRange(ctx context.Context, eventID uuid.UUID, start, end time.Time) ([]*analytics.EventMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*analytics.EventMetrics
	for _, m := range s.metrics {
		if m.EventID != eventID || m.PeriodStart == nil || m.PeriodEnd == nil {
			continue
		}
		if !m.PeriodStart.Before(start) && !m.PeriodEnd.After(end) {
			copied := *m
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].PeriodStart.Before(*results[j].PeriodStart)
	})
	return results, nil
}

// UpsertMetrics inserts or replaces the record for the incoming natural
// key. On replace the stored identity and creation time are preserved;
// the six counters, feature usage, and updated timestamp come from the
// incoming value.
func (s *MemoryStore) UpsertMetrics(ctx context.Context, metrics *analytics.EventMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := metricsKey{metrics.EventID, metrics.PeriodType}
	if existing, ok := s.metrics[key]; ok {
		existing.TotalPhotosUploaded = metrics.TotalPhotosUploaded
		existing.TotalGuestAppOpens = metrics.TotalGuestAppOpens
		existing.TotalQrScans = metrics.TotalQrScans
		existing.TotalSlideshowViews = metrics.TotalSlideshowViews
		existing.TotalGalleryViews = metrics.TotalGalleryViews
		existing.LiveGuestCount = metrics.LiveGuestCount
		existing.FeatureUsage = metrics.FeatureUsage
		existing.UpdatedAt = time.Now().UTC()
		return nil
	}

	stored := *metrics
	s.metrics[key] = &stored
	return nil
}

// IncrementCounter atomically adds delta to one cumulative counter,
// creating the record if the key is new.
func (s *MemoryStore) IncrementCounter(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType, counter analytics.Counter, delta int) error {
	if !counter.Valid() {
		return fmt.Errorf("%w: unknown counter %q", analytics.ErrInvalidArgument, counter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.ensureLocked(eventID, periodType)
	if err != nil {
		return err
	}

	switch counter {
	case analytics.CounterPhotosUploaded:
		m.IncrementPhotoUploads(delta)
	case analytics.CounterGuestAppOpens:
		m.IncrementGuestAppOpens(delta)
	case analytics.CounterQrScans:
		m.IncrementQrScans(delta)
	case analytics.CounterSlideshowViews:
		m.IncrementSlideshowViews(delta)
	case analytics.CounterGalleryViews:
		m.IncrementGalleryViews(delta)
	}
	return nil
}

// SetLiveGuestCount sets the live guest gauge, clamped to zero,
// creating the record if the key is new.
func (s *MemoryStore) SetLiveGuestCount(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.ensureLocked(eventID, periodType)
	if err != nil {
		return err
	}
	m.UpdateLiveGuestCount(count)
	return nil
}

// DeleteMetrics removes a record by identity. Unknown ids are no-ops.
func (s *MemoryStore) DeleteMetrics(ctx context.Context, metricsID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, m := range s.metrics {
		if m.ID == metricsID {
			delete(s.metrics, key)
			return nil
		}
	}
	return nil
}

// HasMetricsData reports whether an event has any metrics record.
func (s *MemoryStore) HasMetricsData(ctx context.Context, eventID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key := range s.metrics {
		if key.eventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ensureLocked(eventID uuid.UUID, periodType analytics.PeriodType) (*analytics.EventMetrics, error) {
	key := metricsKey{eventID, periodType}
	if m, ok := s.metrics[key]; ok {
		return m, nil
	}

	m, err := analytics.NewEventMetrics(eventID, periodType, nil, nil)
	if err != nil {
		return nil, err
	}
	s.metrics[key] = m
	return m, nil
}

func (s *MemoryStore) filterActivities(match func(*analytics.ActivityLog) bool, limit int, oldestFirst bool) []*analytics.ActivityLog {
	matched := make([]*analytics.ActivityLog, 0)
	for _, a := range s.activities {
		if match(a) {
			matched = append(matched, a)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if oldestFirst {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	results := make([]*analytics.ActivityLog, len(matched))
	for i, a := range matched {
		copied := *a
		results[i] = &copied
	}
	return results
}
