package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	apierrors "adcpview/internal/errors"
	"adcpview/internal/infrastructure"
	mw "adcpview/internal/middleware"
	"adcpview/internal/plot"
	"adcpview/internal/services"
)

type sessionCtxKey struct{}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	SessionID string             `json:"session_id"`
	Selection services.Selection `json:"selection"`
}

// PlotSize is the drawing size of a figure.
type PlotSize struct {
	Width  vg.Length
	Height vg.Length
}

// SessionHandler drives viewer sessions: selection changes and figures.
type SessionHandler struct {
	viewer       ViewerService
	query        *mw.QueryParamValidator
	body         *mw.Validator
	mapSize      PlotSize
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a new session handler. A zero mapSize uses the
// plot package defaults.
func NewSessionHandler(viewer ViewerService, mapSize PlotSize, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	if mapSize.Width <= 0 || mapSize.Height <= 0 {
		mapSize = PlotSize{Width: plot.MapWidth, Height: plot.MapHeight}
	}
	return &SessionHandler{
		viewer:       viewer,
		query:        mw.NewQueryParamValidator(errorHandler),
		body:         mw.NewValidator(logger, errorHandler),
		mapSize:      mapSize,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/view", h.View)
		r.With(h.body.JSONBody).Put("/selection", h.UpdateSelection)
		r.Delete("/", h.Close)
		r.Get("/plots/vectors.{format}", h.VectorPlot)
		r.Get("/plots/series/{name}.{format}", h.SeriesPlot)
	})

	return r
}

// SessionCtx loads the session named in the path into the request context.
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.viewer.Session(chi.URLParam(r, "id"))
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, s)
		ctx = infrastructure.WithSessionID(ctx, s.ID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.viewer.NewSession(r.Context())
	h.logger.InfoContext(r.Context(), "session created",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("session_id", s.ID()),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SessionResponse{SessionID: s.ID(), Selection: services.DefaultSelection()})
}

// View handles GET /api/sessions/{id}/view
func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	view, ok := sessionFrom(r).View()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("view"))
		return
	}
	render.JSON(w, r, view)
}

// UpdateSelection handles PUT /api/sessions/{id}/selection[?async=true].
// Fields missing from the body keep their default values. An async update
// is queued and its view is pushed over the WebSocket.
func (h *SessionHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	async, ok := h.query.ValidateBool(w, r, "async", false)
	if !ok {
		return
	}

	sel := services.DefaultSelection()
	if err := render.DecodeJSON(r.Body, &sel); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	s := sessionFrom(r)
	if async {
		if err := sel.Validate(); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		s.Notify(sel)
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]any{
			"session_id": s.ID(),
			"status":     "queued",
		})
		return
	}

	view, err := s.Apply(r.Context(), sel)
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Close handles DELETE /api/sessions/{id}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.viewer.CloseSession(r.Context(), sessionFrom(r).ID()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VectorPlot handles GET /api/sessions/{id}/plots/vectors.{png,svg,pdf}
func (h *SessionHandler) VectorPlot(w http.ResponseWriter, r *http.Request) {
	view, ok := sessionFrom(r).View()
	if !ok || view.Map == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("vector map"))
		return
	}
	h.writePlot(w, r, view.Map, h.mapSize)
}

// SeriesPlot handles GET /api/sessions/{id}/plots/series/{name}.{png,svg,pdf}
func (h *SessionHandler) SeriesPlot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	view, ok := sessionFrom(r).View()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("view"))
		return
	}
	p, ok := view.SeriesPlot(name)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("time series "+name))
		return
	}
	h.writePlot(w, r, p, PlotSize{Width: plot.SeriesWidth, Height: plot.SeriesHeight})
}

func (h *SessionHandler) writePlot(w http.ResponseWriter, r *http.Request, p *gonumplot.Plot, size PlotSize) {
	format := chi.URLParam(r, "format")
	body, err := plot.Render(p, size.Width, size.Height, format)
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}
	writeImage(w, plot.ContentType(format), body)
}

func sessionFrom(r *http.Request) *services.Session {
	return r.Context().Value(sessionCtxKey{}).(*services.Session)
}
