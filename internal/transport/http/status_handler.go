package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "phicli/internal/errors"
	"phicli/internal/middleware"
	"phicli/internal/operations"
)

// ProgressSource reports the progress of a run
type ProgressSource interface {
	Progress() operations.Snapshot
}

// RunInfo is static information about the run being served
type RunInfo struct {
	Method     string `json:"method"`
	DataFile   string `json:"data_file"`
	ResultsDir string `json:"results_dir"`
	Version    string `json:"version"`
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	RunInfo
	Progress  operations.Snapshot `json:"progress"`
	StartedAt time.Time           `json:"started_at"`
}

// Render implements render.Renderer
func (s *StatusResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// StatusHandler handles the status endpoints
type StatusHandler struct {
	source    ProgressSource
	info      RunInfo
	metrics   http.Handler
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusHandler creates a status handler. metrics may be nil.
func NewStatusHandler(source ProgressSource, info RunInfo, metrics http.Handler, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		source:    source,
		info:      info,
		metrics:   metrics,
		startedAt: time.Now().UTC(),
		logger:    logger.With(slog.String("handler", "status")),
	}
}

// Routes builds the router
func (h *StatusHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(h.logger))
	r.Use(middleware.Recoverer(h.logger))
	r.Use(middleware.NewRateLimiter(20, 40, h.logger).Handler)

	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)
	r.Get("/metrics", h.Metrics)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, apperrors.ErrNotFound)
	})
	return r
}

// Health handles GET /healthz
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		_ = render.Render(w, r, apperrors.ErrServiceUnavailable)
		return
	}
	_ = render.Render(w, r, &StatusResponse{
		RunInfo:   h.info,
		Progress:  h.source.Progress(),
		StartedAt: h.startedAt,
	})
}

// Metrics handles GET /metrics
func (h *StatusHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		_ = render.Render(w, r, apperrors.NewWithDetails(http.StatusNotFound, "METRICS_DISABLED",
			"Metrics exporter is not enabled", map[string]string{"hint": "set telemetry.metric_exporter to prometheus"}))
		return
	}
	h.metrics.ServeHTTP(w, r)
}
