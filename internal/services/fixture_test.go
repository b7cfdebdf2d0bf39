package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adcpview/internal/archive"
	"adcpview/internal/catalog"
	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	"adcpview/internal/exporter"
	"adcpview/internal/plot"
	"adcpview/internal/shared/testutil"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

type published struct {
	SessionID string
	Type      string
	Data      any
}

// recordingPublisher keeps every message published to it.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(_ context.Context, sessionID, msgType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{SessionID: sessionID, Type: msgType, Data: data})
}

func (p *recordingPublisher) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type fixture struct {
	paths     *config.Paths
	store     *archive.Store
	publisher *recordingPublisher
	svc       *ViewerService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a viewer over three survey files: a2017.nc and c2018.nc
// hold the default survey, b2018.nc the same survey moved ten degrees east.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	paths := config.NewPathsFromBase(t.TempDir(), config.Default().Paths)
	require.NoError(t, os.MkdirAll(paths.ArchiveDir, 0o755))

	testutil.WriteSurveyNC(t, paths.ArchiveDir, "a2017.nc", testutil.DefaultSurvey())
	east := testutil.DefaultSurvey()
	for i := range east.Lon {
		east.Lon[i] += 10
	}
	testutil.WriteSurveyNC(t, paths.ArchiveDir, "b2018.nc", east)
	testutil.WriteSurveyNC(t, paths.ArchiveDir, "c2018.nc", testutil.DefaultSurvey())

	cat, err := catalog.New(
		[]string{catalog.ColumnFile, catalog.ColumnYear, "shipname"},
		[][]string{
			{"b2018.nc", "2018", "THALASSA"},
			{"a2017.nc", "2017", "THALASSA"},
			{"c2018.nc", "2018", "ATALANTE"},
		})
	require.NoError(t, err)

	bathyPath := testutil.WriteBathymetryNC(t, filepath.Dir(paths.ArchiveDir), "bathy.nc", testutil.DefaultBathymetry())
	bathy, err := archive.LoadBathymetry(ctx, bathyPath)
	require.NoError(t, err)

	store := archive.NewStore(paths.ArchiveDir, logger)
	pub := &recordingPublisher{}
	svc := NewViewerService(ViewerDeps{
		Catalog:     cat,
		Store:       store,
		Bathymetry:  bathy,
		Transformer: dataprocessing.NewTransformer(logger, nil),
		Builder:     plot.NewBuilder(logger, nil),
		Sink:        exporter.NewNetCDFSink(paths, logger),
		Publisher:   pub,
		Logger:      logger,
	})
	t.Cleanup(func() { svc.Close(context.Background()) })

	return &fixture{paths: paths, store: store, publisher: pub, svc: svc}
}

// newSession returns a session without a background listener, for tests that
// drive Listen themselves.
func (f *fixture) newSession() *Session {
	done := make(chan struct{})
	close(done)
	return &Session{
		id:      "test",
		svc:     f.svc,
		logger:  discardLogger(),
		updates: make(chan Selection, pendingSelections),
		cancel:  func() {},
		done:    done,
	}
}

func selectionFor(file string, from, to int) Selection {
	sel := DefaultSelection()
	sel.File = file
	sel.YearFrom, sel.YearTo = from, to
	return sel
}
