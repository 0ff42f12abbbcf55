package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guestflow/guestflow/pkg/analytics"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto status codes. Store outages
// surface as 503 so load balancers and clients can distinguish them
// from handler bugs.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analytics.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, analytics.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, analytics.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
