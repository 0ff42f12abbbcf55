package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guestflow/guestflow/pkg/dashboard"
)

// DashboardHandlers serves the assembled dashboard overview.
type DashboardHandlers struct {
	overview dashboard.OverviewProvider
}

// NewDashboardHandlers creates dashboard handlers over an overview
// provider, cached or not.
func NewDashboardHandlers(overview dashboard.OverviewProvider) *DashboardHandlers {
	return &DashboardHandlers{overview: overview}
}

// RegisterRoutes registers dashboard API routes.
func (h *DashboardHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/dashboard/overview", h.getOverview).Methods("GET")
}

// getOverview handles GET /api/v1/dashboard/overview
func (h *DashboardHandlers) getOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.overview.GetOverview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
