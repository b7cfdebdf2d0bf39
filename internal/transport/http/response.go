package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	apierrors "adcpview/internal/errors"
	mw "adcpview/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleError writes err as a problem response. Failures that are not the
// caller's fault are also counted as system errors.
func handleError(eh *apierrors.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apierrors.AppError
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &appErr):
		switch appErr.Type {
		case apierrors.ErrTypeRender, apierrors.ErrTypeStorage, apierrors.ErrTypeConfig:
			mw.RecordSystemError(r.Context(), string(appErr.Type), "http")
		}
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusInternalServerError {
			mw.RecordSystemError(r.Context(), apiErr.ErrorCode, "http")
		}
	default:
		mw.RecordSystemError(r.Context(), "internal", "http")
	}
	eh.HandleError(w, r, err)
}

// writeAttachment sends a fully encoded body as a download.
func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// writeImage sends an encoded figure inline.
func writeImage(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
