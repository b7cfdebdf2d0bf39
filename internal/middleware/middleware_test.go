package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "adcpview/internal/errors"
	"adcpview/internal/infrastructure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestID(t *testing.T) {
	var seen, chiSeen, traceSeen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetReqID(r.Context())
		chiSeen = chimw.GetReqID(r.Context())
		traceSeen = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		assert.Equal(t, seen, chiSeen)
		assert.Equal(t, seen, traceSeen)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRecoverer(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	t.Run("default problem", func(t *testing.T) {
		h := RequestID(Recoverer(testLogger(), nil)(panicky))
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		req.Header.Set(RequestIDHeader, "req-9")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeProblem(t, rec)
		assert.Equal(t, "/errors/internal", body["type"])
		assert.Equal(t, "/api/x", body["instance"])
		assert.Equal(t, "req-9", body["trace_id"])
	})

	t.Run("error handler", func(t *testing.T) {
		eh := apierrors.NewErrorHandler(testLogger(), false)
		h := Recoverer(testLogger(), eh.HandlePanic)(panicky)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	h := NewRateLimiter(0.001, 1, testLogger()).Handler(http.HandlerFunc(okHandler))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, float64(http.StatusTooManyRequests), decodeProblem(t, second)["status"])
}

func TestTimeout(t *testing.T) {
	mw := Timeout(20*time.Millisecond, testLogger())

	t.Run("handler honours deadline", func(t *testing.T) {
		h := mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("fast handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{name: "allowed preflight", method: http.MethodOptions, origin: "http://localhost:8080", wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:8080"},
		{name: "allowed request", method: http.MethodGet, origin: "http://LOCALHOST:8080", wantStatus: http.StatusOK, wantOrigin: "http://LOCALHOST:8080"},
		{name: "foreign origin", method: http.MethodGet, origin: "http://evil.example", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/catalog", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(apierrors.NewErrorHandler(testLogger(), false))

	t.Run("int", func(t *testing.T) {
		tests := []struct {
			query  string
			want   int
			wantOK bool
		}{
			{query: "", want: 7, wantOK: true},
			{query: "from=2018", want: 2018, wantOK: true},
			{query: "from=abc"},
			{query: "from=10000"},
		}
		for _, tt := range tests {
			rec := httptest.NewRecorder()
			got, ok := v.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil), "from", 0, 9999, 7)
			assert.Equal(t, tt.wantOK, ok, tt.query)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		}
	})

	t.Run("bool", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := v.ValidateBool(rec, httptest.NewRequest(http.MethodGet, "/?persist=true", nil), "persist", false)
		assert.True(t, ok)
		assert.True(t, got)

		rec = httptest.NewRecorder()
		_, ok = v.ValidateBool(rec, httptest.NewRequest(http.MethodGet, "/?persist=maybe", nil), "persist", false)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidatorStruct(t *testing.T) {
	v := NewValidator(testLogger(), apierrors.NewErrorHandler(testLogger(), false))
	type params struct {
		File   string `json:"file" validate:"required,filename"`
		Format string `json:"format" validate:"oneof=json csv"`
	}

	assert.NoError(t, v.Struct(params{File: "a2017.nc", Format: "csv"}))

	err := v.Struct(params{File: "../a2017.nc", Format: "doc"})
	require.Error(t, err)
	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 2)
	assert.Equal(t, "file", details.Errors[0].Field)
	assert.Equal(t, "file must be a plain file name", details.Errors[0].Message)
	assert.Equal(t, "format must be one of: json, csv", details.Errors[1].Message)
}

func TestValidatorJSONBody(t *testing.T) {
	v := NewValidator(testLogger(), apierrors.NewErrorHandler(testLogger(), false))

	var replayed string
	h := v.JSONBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		replayed = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "object", body: `{"vectors": 100}`, wantStatus: http.StatusOK},
		{name: "empty", body: "", wantStatus: http.StatusOK},
		{name: "malformed", body: "{not json", wantStatus: http.StatusBadRequest},
		{name: "array", body: `[1, 2]`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"file":"` + strings.Repeat("x", DefaultMaxBodySize) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replayed = ""
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.body, replayed)
			}
		})
	}
}
