package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/guestflow/guestflow/pkg/observability"
)

// RouteRegistrar registers routes on a mux router. All handler groups
// in this package implement it.
type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

// Server is the analytics HTTP server: a mux router with request id,
// logging, and Prometheus middleware applied to every route.
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer creates a server and registers the given handler groups.
func NewServer(logger *observability.Logger, handlers ...RouteRegistrar) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
	}

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(observability.HTTPMetricsMiddleware)

	for _, h := range handlers {
		h.RegisterRoutes(s.router)
	}
	return s
}

// Router exposes the underlying router for additional registrations.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := observability.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.WithFields(map[string]interface{}{
			"request_id":  observability.GetRequestID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Handled request")
	})
}
