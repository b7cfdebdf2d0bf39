package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"adcpview/internal/catalog"
	apierrors "adcpview/internal/errors"
	"adcpview/internal/exporter"
	mw "adcpview/internal/middleware"
	"adcpview/internal/services"
)

// CatalogResponse is the year-filtered catalog.
type CatalogResponse struct {
	Years   services.YearRange `json:"years"`
	Columns []string           `json:"columns"`
	Rows    [][]string         `json:"rows"`
	Files   []string           `json:"files"`
	Count   int                `json:"count"`
}

// TablesResponse holds the two transposed tables of one catalog entry.
type TablesResponse struct {
	File    string        `json:"file"`
	Summary catalog.Table `json:"summary"`
	Details catalog.Table `json:"details"`
}

// CatalogHandler serves the survey catalog.
type CatalogHandler struct {
	viewer       ViewerService
	query        *mw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(viewer ViewerService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CatalogHandler {
	return &CatalogHandler{
		viewer:       viewer,
		query:        mw.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "catalog_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the catalog routes
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/files", h.Files)
	r.Get("/export.{format}", h.Export)
	r.Get("/{file}/tables", h.Tables)

	return r
}

// years reads the from/to query parameters.
func (h *CatalogHandler) years(w http.ResponseWriter, r *http.Request) (services.YearRange, bool) {
	from, ok := h.query.ValidateInt(w, r, "from", 0, 9999, 0)
	if !ok {
		return services.YearRange{}, false
	}
	to, ok := h.query.ValidateInt(w, r, "to", 0, 9999, 0)
	if !ok {
		return services.YearRange{}, false
	}
	return services.EffectiveYears(h.viewer.Catalog(), from, to), true
}

// List handles GET /api/catalog?from=&to=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	years, ok := h.years(w, r)
	if !ok {
		return
	}

	cat := h.viewer.Catalog().FilterYears(years.From, years.To)
	h.logger.DebugContext(r.Context(), "catalog filtered",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("from", years.From),
		slog.Int("to", years.To),
		slog.Int("entries", cat.Len()),
	)

	render.JSON(w, r, CatalogResponse{
		Years:   years,
		Columns: cat.Columns(),
		Rows:    cat.Rows(),
		Files:   cat.Files(),
		Count:   cat.Len(),
	})
}

// Files handles GET /api/catalog/files?from=&to=
func (h *CatalogHandler) Files(w http.ResponseWriter, r *http.Request) {
	years, ok := h.years(w, r)
	if !ok {
		return
	}
	files := h.viewer.Catalog().FilterYears(years.From, years.To).Files()
	render.JSON(w, r, map[string]any{
		"years": years,
		"files": files,
		"count": len(files),
	})
}

// Export handles GET /api/catalog/export.{csv,xlsx}?from=&to=
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != "csv" && format != "xlsx" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be one of: csv, xlsx"))
		return
	}
	years, ok := h.years(w, r)
	if !ok {
		return
	}
	cat := h.viewer.Catalog().FilterYears(years.From, years.To)

	var buf bytes.Buffer
	var err error
	contentType := "text/csv; charset=utf-8"
	if format == "csv" {
		err = exporter.EncodeCSV(&buf, cat.Columns(), cat.Rows(), true)
	} else {
		contentType = xlsxContentType
		err = exporter.WriteCatalogXLSX(&buf, cat.Columns(), cat.Rows())
	}
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}

	name := "catalog_" + strconv.Itoa(years.From) + "_" + strconv.Itoa(years.To) + "." + format
	writeAttachment(w, contentType, name, buf.Bytes())
}

// Tables handles GET /api/catalog/{file}/tables?from=&to=
func (h *CatalogHandler) Tables(w http.ResponseWriter, r *http.Request) {
	years, ok := h.years(w, r)
	if !ok {
		return
	}
	file := chi.URLParam(r, "file")
	summary, details, err := h.viewer.Catalog().Tables(file, years.From, years.To)
	if err != nil {
		handleError(h.errorHandler, w, r, err)
		return
	}
	render.JSON(w, r, TablesResponse{File: file, Summary: summary, Details: details})
}
