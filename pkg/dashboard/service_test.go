package dashboard

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/observability"
	"github.com/guestflow/guestflow/pkg/storage"
)

func newDashboardService(t *testing.T) (*Service, *storage.MemoryStore, *storage.MemoryEventDirectory) {
	t.Helper()
	store := storage.NewMemoryStore()
	events := storage.NewMemoryEventDirectory()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	activities := analytics.NewActivityLogService(store, events, logger)
	metrics := analytics.NewMetricsService(store, logger)
	return NewService(events, metrics, activities, logger), store, events
}

func TestGetOverviewNoEvents(t *testing.T) {
	svc, _, _ := newDashboardService(t)

	overview, err := svc.GetOverview(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, overview.Events)
	assert.Empty(t, overview.Events)
	assert.Equal(t, &analytics.AggregatedMetrics{}, overview.Analytics)
	assert.Empty(t, overview.RecentActivities)
}

func TestGetOverview(t *testing.T) {
	svc, store, events := newDashboardService(t)
	ctx := context.Background()

	e1 := &analytics.Event{ID: uuid.New(), Name: "Wedding", Status: "active"}
	e2 := &analytics.Event{ID: uuid.New(), Name: "Birthday", Status: "active"}
	events.PutEvent(e1)
	events.PutEvent(e2)

	m1, err := analytics.NewEventMetrics(e1.ID, analytics.PeriodTotal, nil, nil)
	require.NoError(t, err)
	m1.TotalPhotosUploaded = 3
	m1.UpdateLiveGuestCount(2)
	require.NoError(t, store.UpsertMetrics(ctx, m1))

	m2, err := analytics.NewEventMetrics(e2.ID, analytics.PeriodTotal, nil, nil)
	require.NoError(t, err)
	m2.TotalPhotosUploaded = 5
	require.NoError(t, store.UpsertMetrics(ctx, m2))

	a, err := analytics.NewActivityLog(e1.ID, analytics.ActivityPhotoUploaded,
		analytics.Document{"filename": "a.jpg"}, "")
	require.NoError(t, err)
	require.NoError(t, store.AddActivity(ctx, a))

	overview, err := svc.GetOverview(ctx)
	require.NoError(t, err)

	assert.Len(t, overview.Events, 2)
	assert.Equal(t, 8, overview.Analytics.TotalPhotosUploaded)
	assert.Equal(t, 1, overview.Analytics.ActiveEvents)
	assert.Equal(t, 2, overview.Analytics.TotalEvents)

	require.Len(t, overview.RecentActivities, 1)
	assert.Equal(t, "Wedding", overview.RecentActivities[0].EventName)
	assert.Equal(t, "Photo uploaded: a.jpg", overview.RecentActivities[0].Description)
}

func TestGetOverviewBoundsActivityFeed(t *testing.T) {
	svc, store, events := newDashboardService(t)
	ctx := context.Background()

	e := &analytics.Event{ID: uuid.New(), Name: "Festival"}
	events.PutEvent(e)

	for i := 0; i < RecentActivityLimit+10; i++ {
		a, err := analytics.NewActivityLog(e.ID, analytics.ActivityPageViewed, nil, "")
		require.NoError(t, err)
		require.NoError(t, store.AddActivity(ctx, a))
	}

	overview, err := svc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Len(t, overview.RecentActivities, RecentActivityLimit)
}
