package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"adcpview/internal/archive"
	"adcpview/internal/catalog"
	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	apierrors "adcpview/internal/errors"
	"adcpview/internal/exporter"
	"adcpview/internal/metadata"
	"adcpview/internal/plot"
	"adcpview/internal/services"
	"adcpview/internal/shared/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(discardLogger(), false)
}

// testCatalog lists a2017.nc, b2018.nc and c2018.nc.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]string{catalog.ColumnFile, catalog.ColumnYear, "shipname", "date_start"},
		[][]string{
			{"b2018.nc", "2018", "THALASSA", "2018-05-01"},
			{"a2017.nc", "2017", "THALASSA", "2017-06-01"},
			{"c2018.nc", "2018", "ATALANTE", "2018-09-01"},
		})
	require.NoError(t, err)
	return cat
}

// MockViewerService is a mock implementation of ViewerService
type MockViewerService struct {
	mock.Mock
	cat *catalog.Catalog
}

func (m *MockViewerService) Catalog() *catalog.Catalog {
	return m.cat
}

func (m *MockViewerService) NewSession(ctx context.Context) *services.Session {
	args := m.Called()
	return args.Get(0).(*services.Session)
}

func (m *MockViewerService) Session(id string) (*services.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Session), args.Error(1)
}

func (m *MockViewerService) CloseSession(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockViewerService) Info(ctx context.Context, file string, persist bool) (*metadata.Record, error) {
	args := m.Called(file, persist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metadata.Record), args.Error(1)
}

func (m *MockViewerService) Report(ctx context.Context, out io.Writer, file string) error {
	args := m.Called(file)
	if args.Error(0) == nil {
		io.WriteString(out, "%PDF-1.3 mock")
	}
	return args.Error(0)
}

// realViewer is a viewer service over survey files written to a temp
// archive.
type realViewer struct {
	paths *config.Paths
	store *archive.Store
	svc   *services.ViewerService
}

func newRealViewer(t *testing.T) *realViewer {
	t.Helper()
	logger := discardLogger()

	paths := config.NewPathsFromBase(t.TempDir(), config.Default().Paths)
	require.NoError(t, os.MkdirAll(paths.ArchiveDir, 0o755))
	for _, name := range []string{"a2017.nc", "b2018.nc", "c2018.nc"} {
		testutil.WriteSurveyNC(t, paths.ArchiveDir, name, testutil.DefaultSurvey())
	}

	store := archive.NewStore(paths.ArchiveDir, logger)
	svc := services.NewViewerService(services.ViewerDeps{
		Catalog:     testCatalog(t),
		Store:       store,
		Transformer: dataprocessing.NewTransformer(logger, nil),
		Builder:     plot.NewBuilder(logger, nil),
		Sink:        exporter.NewNetCDFSink(paths, logger),
		Logger:      logger,
	})
	t.Cleanup(func() { svc.Close(context.Background()) })
	return &realViewer{paths: paths, store: store, svc: svc}
}

func selectionForFile(file string) services.Selection {
	sel := services.DefaultSelection()
	sel.File = file
	return sel
}

// serve runs one request against a router mounted at prefix.
func serve(t *testing.T, prefix string, routes http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Mount(prefix, routes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
