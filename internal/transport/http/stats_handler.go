package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "adcpview/internal/errors"
	"adcpview/internal/services"
)

// StatsHandler serves runtime statistics. Prometheus metrics are served
// separately on /metrics.
type StatsHandler struct {
	service      *services.HealthService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *services.HealthService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StatsHandler {
	return &StatsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "stats")),
		errorHandler: errorHandler,
	}
}

// Routes sets up the stats routes
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetStats)
	r.Get("/health", h.GetDetailedHealth)
	return r
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SystemStats(r.Context())
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// GetDetailedHealth handles GET /api/stats/health
func (h *StatsHandler) GetDetailedHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.GetDetailedHealth(r.Context()))
}
