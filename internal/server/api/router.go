package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/metrics"
)

// Routes builds the HTTP router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// webhook path configured in the CRM outbound message
	r.Post("/salesforce-hook", s.Ingest)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", s.Ingest)
		r.Get("/nodes/{label}/{key}", s.GetNode)
		r.Get("/stats", s.Stats)
	})

	return r
}

// requestLogger logs each request with zap and counts it
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := metrics.UnmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method, route, status)

		s.log.Info("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.String("remoteAddr", r.RemoteAddr),
		)
	})
}
