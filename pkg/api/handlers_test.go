package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/dashboard"
	"github.com/guestflow/guestflow/pkg/observability"
	"github.com/guestflow/guestflow/pkg/storage"
)

type testEnv struct {
	server *Server
	store  *storage.MemoryStore
	events *storage.MemoryEventDirectory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	events := storage.NewMemoryEventDirectory()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	activityService := analytics.NewActivityLogService(store, events, logger)
	metricsService := analytics.NewMetricsService(store, logger)
	dashboardService := dashboard.NewService(events, metricsService, activityService, logger)

	server := NewServer(logger,
		NewActivityHandlers(activityService, nil),
		NewMetricsHandlers(metricsService, events),
		NewDashboardHandlers(dashboardService),
	)
	return &testEnv{server: server, store: store, events: events}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func TestRecordActivityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	eventID := uuid.New()

	rec := env.do(t, http.MethodPost, "/api/v1/activities", map[string]interface{}{
		"event_id":   eventID,
		"type":       "photo_uploaded",
		"data":       map[string]interface{}{"filename": "a.jpg"},
		"session_id": "s1",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	activities, err := env.store.GetActivities(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, analytics.ActivityPhotoUploaded, activities[0].Type)
}

func TestRecordActivityRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/activities", map[string]interface{}{
		"event_id": uuid.New(),
		"type":     "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordActivityRejectsEmptyEventID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/activities", map[string]interface{}{
		"type": "photo_uploaded",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordActivityRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEventActivitiesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eventID := uuid.New()

	for _, typ := range []analytics.ActivityType{
		analytics.ActivityPhotoUploaded,
		analytics.ActivityQrCodeScanned,
		analytics.ActivityPhotoUploaded,
	} {
		a, err := analytics.NewActivityLog(eventID, typ, nil, "")
		require.NoError(t, err)
		require.NoError(t, env.store.AddActivity(ctx, a))
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/activities", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all []analytics.ActivityLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/activities?type=photo_uploaded", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var photos []analytics.ActivityLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &photos))
	assert.Len(t, photos, 2)
}

func TestGetEventActivitiesRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/events/not-a-uuid/activities", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEventMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eventID := uuid.New()

	m, err := analytics.NewEventMetrics(eventID, analytics.PeriodTotal, nil, nil)
	require.NoError(t, err)
	m.TotalPhotosUploaded = 4
	require.NoError(t, env.store.UpsertMetrics(ctx, m))

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/metrics", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view analytics.EventMetricsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 4, view.TotalPhotosUploaded)
	assert.Equal(t, analytics.PeriodTotal, view.PeriodType)
}

func TestGetEventMetricsMissingRecordSynthesized(t *testing.T) {
	env := newTestEnv(t)
	eventID := uuid.New()

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/metrics?period=daily", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code, "a missing record yields a zero view, not an error")

	var view analytics.EventMetricsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, eventID, view.EventID)
	assert.Equal(t, analytics.PeriodDaily, view.PeriodType)
	assert.Zero(t, view.TotalEngagement)
}

func TestGetEventMetricsRejectsUnknownPeriod(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/metrics?period=yearly", uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAggregatedMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e1, e2 := uuid.New(), uuid.New()

	for id, photos := range map[uuid.UUID]int{e1: 3, e2: 5} {
		m, err := analytics.NewEventMetrics(id, analytics.PeriodTotal, nil, nil)
		require.NoError(t, err)
		m.TotalPhotosUploaded = photos
		require.NoError(t, env.store.UpsertMetrics(ctx, m))
	}

	rec := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/metrics/aggregated?event_ids=%s,%s", e1, e2), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agg analytics.AggregatedMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	assert.Equal(t, 8, agg.TotalPhotosUploaded)
	assert.Equal(t, 2, agg.TotalEvents)
}

func TestGetAggregatedMetricsRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/metrics/aggregated?event_ids=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event := &analytics.Event{ID: uuid.New(), Name: "Wedding"}
	env.events.PutEvent(event)

	a, err := analytics.NewActivityLog(event.ID, analytics.ActivityPhotoUploaded, nil, "")
	require.NoError(t, err)
	require.NoError(t, env.store.AddActivity(ctx, a))

	rec := env.do(t, http.MethodPost, "/api/v1/metrics/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["refreshed_events"])

	m, err := env.store.GetMetrics(ctx, event.ID, analytics.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalPhotosUploaded)
}

func TestDashboardOverviewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	event := &analytics.Event{ID: uuid.New(), Name: "Wedding", Status: "active"}
	env.events.PutEvent(event)

	m, err := analytics.NewEventMetrics(event.ID, analytics.PeriodTotal, nil, nil)
	require.NoError(t, err)
	m.TotalPhotosUploaded = 2
	m.UpdateLiveGuestCount(1)
	require.NoError(t, env.store.UpsertMetrics(ctx, m))

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var overview dashboard.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Events, 1)
	assert.Equal(t, "Wedding", overview.Events[0].Name)
	assert.Equal(t, 2, overview.Analytics.TotalPhotosUploaded)
	assert.Equal(t, 1, overview.Analytics.ActiveEvents)
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/overview", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "a request id is generated when absent")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/overview", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec2 := httptest.NewRecorder()
	env.server.ServeHTTP(rec2, req)
	assert.Equal(t, "req-123", rec2.Header().Get("X-Request-ID"))
}
