package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/guestflow/guestflow/pkg/analytics"
	"github.com/guestflow/guestflow/pkg/async"
)

// ActivityHandlers serves activity ingestion and feed endpoints.
type ActivityHandlers struct {
	service *analytics.ActivityLogService
	metrics *analytics.MetricsService
}

// NewActivityHandlers creates activity handlers over the service.
// metrics may be nil; when set, ingestion bumps the matching engagement
// counter in the background.
func NewActivityHandlers(service *analytics.ActivityLogService, metrics *analytics.MetricsService) *ActivityHandlers {
	return &ActivityHandlers{service: service, metrics: metrics}
}

// RegisterRoutes registers activity API routes.
func (h *ActivityHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/activities", h.recordActivity).Methods("POST")
	r.HandleFunc("/api/v1/activities/recent", h.getRecentActivities).Methods("GET")
	r.HandleFunc("/api/v1/events/{eventID}/activities", h.getEventActivities).Methods("GET")
}

type recordActivityRequest struct {
	EventID   uuid.UUID          `json:"event_id"`
	Type      string             `json:"type"`
	Data      analytics.Document `json:"data,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
}

// recordActivity handles POST /api/v1/activities
func (h *ActivityHandlers) recordActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", analytics.ErrInvalidArgument))
		return
	}

	activityType := analytics.ActivityType(req.Type)
	if !activityType.Valid() {
		writeError(w, fmt.Errorf("%w: unknown activity type %q", analytics.ErrInvalidArgument, req.Type))
		return
	}

	if err := h.service.RecordActivity(ctx, req.EventID, activityType, req.Data, req.SessionID); err != nil {
		writeError(w, err)
		return
	}

	// Bump the live counter asynchronously; the recurring refresh
	// recomputes from the log, so a lost bump self-heals.
	if h.metrics != nil {
		if bump := counterBump(h.metrics, activityType); bump != nil {
			async.SafeGo(context.Background(), 5*time.Second, "bump engagement counter", func(ctx context.Context) error {
				return bump(ctx, req.EventID, 1)
			})
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

func counterBump(m *analytics.MetricsService, t analytics.ActivityType) func(context.Context, uuid.UUID, int) error {
	switch t {
	case analytics.ActivityPhotoUploaded:
		return m.IncrementPhotoUploads
	case analytics.ActivityGuestAppOpened:
		return m.IncrementGuestAppOpens
	case analytics.ActivityQrCodeScanned:
		return m.IncrementQrScans
	case analytics.ActivitySlideshowViewed:
		return m.IncrementSlideshowViews
	case analytics.ActivityGalleryViewed:
		return m.IncrementGalleryViews
	}
	return nil
}

// getRecentActivities handles GET /api/v1/activities/recent
// Query params:
//   - limit: number of entries (default 20)
func (h *ActivityHandlers) getRecentActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	views, err := h.service.GetRecentActivities(ctx, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// getEventActivities handles GET /api/v1/events/{eventID}/activities
// Query params:
//   - type: restrict to one activity type
func (h *ActivityHandlers) getEventActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := uuid.Parse(mux.Vars(r)["eventID"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid event id", analytics.ErrInvalidArgument))
		return
	}

	var activities []*analytics.ActivityLog
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		activityType := analytics.ActivityType(typeParam)
		if !activityType.Valid() {
			writeError(w, fmt.Errorf("%w: unknown activity type %q", analytics.ErrInvalidArgument, typeParam))
			return
		}
		activities, err = h.service.GetActivitiesByType(ctx, eventID, activityType)
	} else {
		activities, err = h.service.GetActivities(ctx, eventID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if activities == nil {
		activities = []*analytics.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, activities)
}
