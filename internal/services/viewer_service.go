package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"adcpview/internal/archive"
	"adcpview/internal/catalog"
	"adcpview/internal/dataprocessing"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/exporter"
	"adcpview/internal/infrastructure"
	"adcpview/internal/metadata"
	"adcpview/internal/plot"
	ws "adcpview/internal/websocket"
)

// ViewerDeps are the collaborators of a ViewerService. Bathymetry, Sink,
// Publisher and Metrics may be nil.
type ViewerDeps struct {
	Catalog     *catalog.Catalog
	Store       *archive.Store
	Bathymetry  *archive.Grid
	Transformer *dataprocessing.Transformer
	Builder     *plot.Builder
	Sink        dataprocessing.Sink
	Publisher   ws.Publisher
	Metrics     *infrastructure.BusinessMetrics
	Logger      *slog.Logger
}

// ViewerService owns the viewer sessions and the per-file operations that
// do not need one.
type ViewerService struct {
	catalog     *catalog.Catalog
	store       *archive.Store
	bathy       *archive.Grid
	transformer *dataprocessing.Transformer
	builder     *plot.Builder
	sink        dataprocessing.Sink
	publisher   ws.Publisher
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewViewerService creates a ViewerService.
func NewViewerService(deps ViewerDeps) *ViewerService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewerService{
		catalog:     deps.Catalog,
		store:       deps.Store,
		bathy:       deps.Bathymetry,
		transformer: deps.Transformer,
		builder:     deps.Builder,
		sink:        deps.Sink,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger.With(slog.String("component", "viewer_service")),
		sessions:    make(map[string]*Session),
	}
}

// Catalog returns the survey catalog.
func (v *ViewerService) Catalog() *catalog.Catalog {
	return v.catalog
}

// NewSession opens an empty session whose listener runs until the session
// is closed.
func (v *ViewerService) NewSession(ctx context.Context) *Session {
	id := uuid.New().String()
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:      id,
		svc:     v,
		logger:  v.logger.With(slog.String("session_id", id)),
		updates: make(chan Selection, pendingSelections),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.Listen(listenCtx, s.updates)
	}()

	v.mu.Lock()
	v.sessions[id] = s
	v.mu.Unlock()

	if v.metrics != nil {
		v.metrics.ActiveSessions.Add(ctx, 1)
	}
	v.logger.InfoContext(ctx, "session opened", slog.String("session_id", id))
	return s
}

// Session returns the open session with the given id.
func (v *ViewerService) Session(id string) (*Session, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session " + id)
	}
	return s, nil
}

// SessionIDs lists the open sessions.
func (v *ViewerService) SessionIDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.sessions))
	for id := range v.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ArchiveFiles lists the survey files present in the archive.
func (v *ViewerService) ArchiveFiles(ctx context.Context) ([]string, error) {
	return v.store.List(ctx)
}

// SessionCount returns the number of open sessions.
func (v *ViewerService) SessionCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.sessions)
}

// OpenHandles returns the survey files held open by the sessions.
func (v *ViewerService) OpenHandles() int {
	return v.store.OpenHandles()
}

// CloseSession closes and forgets a session.
func (v *ViewerService) CloseSession(ctx context.Context, id string) error {
	v.mu.Lock()
	s, ok := v.sessions[id]
	delete(v.sessions, id)
	v.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("session " + id)
	}

	s.Close(ctx)
	if v.metrics != nil {
		v.metrics.ActiveSessions.Add(ctx, -1)
	}
	v.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	return nil
}

// Close closes every session.
func (v *ViewerService) Close(ctx context.Context) {
	for _, id := range v.SessionIDs() {
		v.CloseSession(ctx, id)
	}
}

// Info extracts the metadata record of a survey file. With persist the
// transformed dataset is also written to the sink.
func (v *ViewerService) Info(ctx context.Context, file string, persist bool) (*metadata.Record, error) {
	if err := checkFileName(file); err != nil {
		return nil, err
	}
	if persist && v.sink == nil {
		return nil, apperrors.NewAppValidationError("no transformed output is configured")
	}

	h, err := v.store.Open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	v.recordOpen(ctx)

	rec, err := metadata.Extract(file, h.Dataset())
	if err != nil {
		return nil, err
	}

	if persist {
		opts := dataprocessing.TransformOptions{Name: file, Persist: true, Sink: v.sink}
		if _, err := v.transformer.Transform(ctx, h.Dataset(), opts); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Report writes the PDF report of a survey file: its metadata record and a
// vector map of the whole survey with the default controls.
func (v *ViewerService) Report(ctx context.Context, out io.Writer, file string) error {
	if err := checkFileName(file); err != nil {
		return err
	}

	h, err := v.store.Open(ctx, file)
	if err != nil {
		return err
	}
	defer h.Close()
	v.recordOpen(ctx)

	rec, err := metadata.Extract(file, h.Dataset())
	if err != nil {
		return err
	}
	ds, err := v.transformer.Transform(ctx, h.Dataset(), dataprocessing.TransformOptions{Name: file})
	if err != nil {
		return err
	}
	b, err := sliderBounds(ds)
	if err != nil {
		return err
	}

	sel := DefaultSelection().reset(b)
	sel.Bathymetry = v.bathy != nil
	p, err := v.builder.VectorMap(ctx, ds, v.bathy, sel.MapRequest())
	if err != nil {
		return err
	}
	png, err := plot.Render(p, plot.MapWidth, plot.MapHeight, plot.FormatPNG)
	if err != nil {
		return err
	}
	return exporter.Report(out, rec, png)
}

func (v *ViewerService) recordOpen(ctx context.Context) {
	if v.metrics != nil {
		v.metrics.SurveyFilesOpened.Add(ctx, 1)
	}
}

// checkFileName rejects names that would leave the archive directory.
func checkFileName(file string) error {
	if file == "" || file != filepath.Base(file) || file == "." || file == ".." {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid survey file name %q", file)).
			WithContext("field", "file")
	}
	return nil
}
