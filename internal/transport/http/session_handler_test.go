package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adcpview/internal/config"
	mw "adcpview/internal/middleware"
	"adcpview/internal/plot"
)

func sessionRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, "/api/sessions"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()
	do := func(method, path, body string) *httptest.ResponseRecorder {
		return serve(t, "/api/sessions", routes, sessionRequest(method, path, body))
	}

	rec := do(http.MethodPost, "/", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	id, _ := created["session_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, float64(config.DefaultVectors), created["selection"].(map[string]any)["vectors"])

	rec = do(http.MethodGet, "/"+id+"/view", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(http.MethodGet, "/"+id+"/plots/vectors.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodPut, "/"+id+"/selection", `{"file":"b2018.nc","scale":0.3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeBody(t, rec)
	sel := view["selection"].(map[string]any)
	assert.Equal(t, "b2018.nc", sel["file"])
	assert.Equal(t, 0.3, sel["scale"])
	assert.Equal(t, float64(config.DefaultVectors), sel["vectors"])
	assert.Equal(t, true, view["reloaded"])
	assert.Equal(t, float64(4), view["casts"])
	assert.Equal(t, []any{"a2017.nc", "b2018.nc", "c2018.nc"}, view["files"])
	assert.NotContains(t, view, "Map")

	rec = do(http.MethodGet, "/"+id+"/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b2018.nc", decodeBody(t, rec)["selection"].(map[string]any)["file"])

	rec = do(http.MethodDelete, "/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, rv.store.OpenHandles())

	rec = do(http.MethodGet, "/"+id+"/view", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(http.MethodDelete, "/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_Plots(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()
	s := rv.svc.NewSession(context.Background())
	_, err := s.Apply(context.Background(), selectionForFile("a2017.nc"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantType   string
		wantPrefix string
	}{
		{name: "vector png", path: "/plots/vectors.png", wantStatus: http.StatusOK, wantType: "image/png", wantPrefix: "\x89PNG"},
		{name: "vector svg", path: "/plots/vectors.svg", wantStatus: http.StatusOK, wantType: "image/svg+xml", wantPrefix: "<?xml"},
		{name: "vector pdf", path: "/plots/vectors.pdf", wantStatus: http.StatusOK, wantType: "application/pdf", wantPrefix: "%PDF"},
		{name: "series png", path: "/plots/series/" + plot.SeriesVariables[0] + ".png", wantStatus: http.StatusOK, wantType: "image/png", wantPrefix: "\x89PNG"},
		{name: "unknown series", path: "/plots/series/NOPE.png", wantStatus: http.StatusNotFound},
		{name: "unsupported format", path: "/plots/vectors.gif", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodGet, "/"+s.ID()+tt.path, ""))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), tt.wantPrefix))
		})
	}
}

func TestSessionHandler_RejectsBadSelection(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()
	s := rv.svc.NewSession(context.Background())

	tests := []struct {
		name      string
		query     string
		body      string
		wantField string
	}{
		{name: "too few vectors", body: `{"vectors":10}`, wantField: "vectors"},
		{name: "scale too large", body: `{"scale":3}`, wantField: "scale"},
		{name: "async path in file", query: "?async=true", body: `{"file":"../x.nc"}`, wantField: "file"},
		{name: "malformed body", body: `{"vectors":`},
		{name: "bad async flag", query: "?async=soon", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodPut, "/"+s.ID()+"/selection"+tt.query, tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decodeBody(t, rec)["field"])
			}
		})
	}
	_, ok := s.View()
	assert.False(t, ok)
}

func TestSessionHandler_SelectionBodyChecks(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()
	s := rv.svc.NewSession(context.Background())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "array body", body: `[{"vectors":100}]`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_JSON"},
		{name: "trailing garbage", body: `{"vectors":100} x`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_JSON"},
		{
			name:       "oversized body",
			body:       `{"file":"` + strings.Repeat("a", mw.DefaultMaxBodySize) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodPut, "/"+s.ID()+"/selection", tt.body))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error_code"])
		})
	}
	_, ok := s.View()
	assert.False(t, ok)
}

func TestSessionHandler_AsyncSelection(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()
	s := rv.svc.NewSession(context.Background())

	rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodPut, "/"+s.ID()+"/selection?async=true", `{"file":"c2018.nc"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", decodeBody(t, rec)["status"])

	require.Eventually(t, func() bool {
		view, ok := s.View()
		return ok && view.Selection.File == "c2018.nc"
	}, 10*time.Second, 10*time.Millisecond)
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	rv := newRealViewer(t)
	routes := NewSessionHandler(rv.svc, PlotSize{}, discardLogger(), testErrorHandler()).Routes()

	for _, path := range []string{"/nope/view", "/nope/plots/vectors.png"} {
		rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodGet, path, ""))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := serve(t, "/api/sessions", routes, sessionRequest(http.MethodPut, "/nope/selection", `{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
