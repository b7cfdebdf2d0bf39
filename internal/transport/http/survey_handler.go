package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "adcpview/internal/errors"
	"adcpview/internal/exporter"
	mw "adcpview/internal/middleware"
)

// metadataParams are the inputs of a metadata request.
type metadataParams struct {
	File   string `json:"file" validate:"required,filename"`
	Format string `json:"format" validate:"oneof=json csv xlsx pdf"`
}

// SurveyHandler serves per-file metadata and reports.
type SurveyHandler struct {
	viewer       ViewerService
	validation   *mw.Validator
	query        *mw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	// persist is used when a request carries no persist parameter.
	persist bool
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(viewer ViewerService, persistByDefault bool, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SurveyHandler {
	return &SurveyHandler{
		viewer:       viewer,
		validation:   mw.NewValidator(logger, errorHandler),
		query:        mw.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "survey_handler")),
		errorHandler: errorHandler,
		persist:      persistByDefault,
	}
}

// Routes returns the survey file routes
func (h *SurveyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{file}/metadata", h.Metadata)
	r.Get("/{file}/report.pdf", h.Report)
	return r
}

// Metadata handles GET /api/files/{file}/metadata?format=json|csv|xlsx|pdf&persist=bool
func (h *SurveyHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	params := metadataParams{
		File:   chi.URLParam(r, "file"),
		Format: strings.ToLower(r.URL.Query().Get("format")),
	}
	if params.Format == "" {
		params.Format = "json"
	}
	if err := h.validation.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	persist, ok := h.query.ValidateBool(w, r, "persist", h.persist)
	if !ok {
		return
	}

	if params.Format == "pdf" {
		h.writeReport(w, r, params.File)
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "extracting metadata",
		slog.String("request_id", reqID),
		slog.String("file", params.File),
		slog.String("format", params.Format),
		slog.Bool("persist", persist),
	)

	rec, err := h.viewer.Info(r.Context(), params.File, persist)
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}

	base := strings.TrimSuffix(params.File, ".nc") + "_metadata"
	var buf bytes.Buffer
	switch params.Format {
	case "json":
		render.JSON(w, r, rec)
		return
	case "csv":
		if err := exporter.EncodeTable(&buf, rec.Table()); err != nil {
			handleError(h.errorHandler, w, r, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", base+".csv", buf.Bytes())
	case "xlsx":
		if err := exporter.WriteMetadataXLSX(&buf, rec); err != nil {
			handleError(h.errorHandler, w, r, err)
			return
		}
		writeAttachment(w, xlsxContentType, base+".xlsx", buf.Bytes())
	}
}

// Report handles GET /api/files/{file}/report.pdf
func (h *SurveyHandler) Report(w http.ResponseWriter, r *http.Request) {
	params := metadataParams{File: chi.URLParam(r, "file"), Format: "pdf"}
	if err := h.validation.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeReport(w, r, params.File)
}

func (h *SurveyHandler) writeReport(w http.ResponseWriter, r *http.Request, file string) {
	var buf bytes.Buffer
	if err := h.viewer.Report(r.Context(), &buf, file); err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", strings.TrimSuffix(file, ".nc")+"_report.pdf", buf.Bytes())
}
