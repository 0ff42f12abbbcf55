package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/guestflow/guestflow/pkg/analytics"
)

// MetricsHandlers serves per-event and aggregated metrics endpoints.
type MetricsHandlers struct {
	service *analytics.MetricsService
	events  analytics.EventDirectory
}

// NewMetricsHandlers creates metrics handlers over the service.
func NewMetricsHandlers(service *analytics.MetricsService, events analytics.EventDirectory) *MetricsHandlers {
	return &MetricsHandlers{service: service, events: events}
}

// RegisterRoutes registers metrics API routes.
func (h *MetricsHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/events/{eventID}/metrics", h.getEventMetrics).Methods("GET")
	r.HandleFunc("/api/v1/metrics/aggregated", h.getAggregatedMetrics).Methods("GET")
	r.HandleFunc("/api/v1/metrics/refresh", h.refreshMetrics).Methods("POST")
}

// getEventMetrics handles GET /api/v1/events/{eventID}/metrics
// Query params:
//   - period: total, hourly, daily, weekly, monthly (default total)
func (h *MetricsHandlers) getEventMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := uuid.Parse(mux.Vars(r)["eventID"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid event id", analytics.ErrInvalidArgument))
		return
	}

	period := analytics.PeriodTotal
	if p := r.URL.Query().Get("period"); p != "" {
		period = analytics.PeriodType(p)
		if !period.Valid() {
			writeError(w, fmt.Errorf("%w: unknown period type %q", analytics.ErrInvalidArgument, p))
			return
		}
	}

	view, err := h.service.GetEventMetrics(ctx, eventID, period)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// getAggregatedMetrics handles GET /api/v1/metrics/aggregated
// Query params:
//   - event_ids: comma-separated event ids; omitted means all events
func (h *MetricsHandlers) getAggregatedMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventIDs, err := h.resolveEventIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}

	agg, err := h.service.GetAggregatedMetricsForEvents(ctx, eventIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agg)
}

type refreshMetricsRequest struct {
	EventIDs []uuid.UUID `json:"event_ids"`
}

// refreshMetrics handles POST /api/v1/metrics/refresh
// Recomputes all-time counters from the activity log. An empty or
// omitted id list refreshes every known event.
func (h *MetricsHandlers) refreshMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshMetricsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: invalid request body", analytics.ErrInvalidArgument))
			return
		}
	}

	eventIDs := req.EventIDs
	if len(eventIDs) == 0 {
		events, err := h.events.ListEvents(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, e := range events {
			eventIDs = append(eventIDs, e.ID)
		}
	}

	if err := h.service.UpdateMetricsForEvents(ctx, eventIDs); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"refreshed_events": len(eventIDs)})
}

func (h *MetricsHandlers) resolveEventIDs(r *http.Request) ([]uuid.UUID, error) {
	raw := r.URL.Query().Get("event_ids")
	if raw == "" {
		events, err := h.events.ListEvents(r.Context())
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		return ids, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid event id %q", analytics.ErrInvalidArgument, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
