package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/graph"
	"github.com/systemshift/crmgraph/internal/server/metrics"
	"github.com/systemshift/crmgraph/internal/server/projection"
)

// maxBodyBytes bounds a single change notification
const maxBodyBytes = 1 << 20

// Projector applies one change record to the graph
type Projector interface {
	Project(ctx context.Context, objectType string, record map[string]any) (projection.Result, error)
}

// Reader serves read-back queries
type Reader interface {
	GetNode(ctx context.Context, label, key string) (*graph.Node, error)
	Stats(ctx context.Context) (*graph.Stats, error)
}

// Server holds the HTTP server dependencies
type Server struct {
	engine  Projector
	reader  Reader
	metrics *metrics.Collector
	log     *zap.Logger
}

// New creates a new API server
func New(engine Projector, reader Reader, collector *metrics.Collector, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, reader: reader, metrics: collector, log: log}
}

// IngestRequest is the change notification envelope
type IngestRequest struct {
	Operation string         `json:"operation" validate:"required"`
	Object    string         `json:"object" validate:"required"`
	Record    map[string]any `json:"record" validate:"required,min=1"`
}

// IngestResponse is the response for a projected record
type IngestResponse struct {
	Status     string `json:"status"`
	NodeMerges int    `json:"nodeMerges"`
	EdgeMerges int    `json:"edgeMerges"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Ingest handles POST /api/ingest and POST /salesforce-hook
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeEnvelope(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Project(r.Context(), req.Object, req.Record)
	if err != nil {
		status, msg := s.classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("ingest failed",
				zap.String("object", req.Object),
				zap.String("operation", req.Operation),
				zap.String("key", res.Key),
				zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Status:     "success",
		NodeMerges: res.NodeMerges,
		EdgeMerges: res.EdgeMerges,
	})
}

// classify maps engine failures to a status code and a caller-safe message.
// Store errors are never echoed back. A dangling reference resolves once the
// missing record arrives, so it is reported as retryable.
func (s *Server) classify(err error) (int, string) {
	switch {
	case errors.Is(err, projection.ErrUnknownEntityType),
		errors.Is(err, projection.ErrMissingKey),
		errors.Is(err, projection.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, graph.ErrDanglingReference):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, graph.ErrStore):
		return http.StatusServiceUnavailable, "graph store unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// GetNode handles GET /api/nodes/{label}/{key}
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	key := chi.URLParam(r, "key")

	node, err := s.reader.GetNode(r.Context(), label, key)
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, "node not found: "+label+" "+key)
		return
	case errors.Is(err, graph.ErrStore):
		s.log.Error("reading node failed", zap.String("label", label), zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "graph store unavailable, retry later")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// Stats handles GET /api/stats
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reader.Stats(r.Context())
	if err != nil {
		s.log.Error("reading stats failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "graph store unavailable, retry later")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Root handles GET /
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("CRM to graph integration is running."))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: msg})
}

// DecodeEnvelope reads one change notification and checks that operation,
// object and record are present. Numbers are kept as json.Number so keys
// keep their exact form.
func DecodeEnvelope(r io.Reader) (IngestRequest, error) {
	var req IngestRequest
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, &projection.ValidationError{Reason: "Invalid data payload: " + err.Error()}
	}
	if err := validateStruct(req); err != nil {
		return req, &projection.ValidationError{Reason: "Invalid data payload: " + err.Error()}
	}
	return req, nil
}
