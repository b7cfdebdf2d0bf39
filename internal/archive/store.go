package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/files"
)

// TracerName is the OpenTelemetry tracer used for archive reads.
const TracerName = "adcpview.archive"

// Store resolves survey file names inside one archive directory.
type Store struct {
	dir       string
	discovery *files.Discovery
	logger    *slog.Logger
	tracer    trace.Tracer
	open      atomic.Int64
}

// NewStore creates a store over dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:       dir,
		discovery: files.NewDiscovery(dir),
		logger:    logger.With(slog.String("component", "archive")),
		tracer:    otel.Tracer(TracerName),
	}
}

// Dir returns the archive directory.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the survey file names in the archive, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := s.discovery.FindSurveyFiles(s.dir)
	if err != nil {
		return nil, apperrors.NewIOError(s.dir, err)
	}
	return files.Names(found), nil
}

// Open reads the named survey file. The returned Handle must be closed.
func (s *Store) Open(ctx context.Context, name string) (*Handle, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid survey file name %q", name))
	}

	ctx, span := s.tracer.Start(ctx, "archive.open",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("archive.file", name)),
	)
	defer span.End()

	h, err := s.openPath(ctx, filepath.Join(s.dir, name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return h, nil
}

func (s *Store) openPath(ctx context.Context, path string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		s.logger.WarnContext(ctx, "survey file unavailable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewIOError(path, err)
	}

	group, err := netcdf.Open(path)
	if err != nil {
		return nil, apperrors.NewDataFormatError(filepath.Base(path), err)
	}

	ds, err := decodeGroup(group)
	if err != nil {
		group.Close()
		return nil, err
	}

	s.open.Add(1)
	s.logger.InfoContext(ctx, "survey file opened",
		slog.String("path", path),
		slog.Int("variables", len(ds.Names())),
		slog.Duration("duration", time.Since(start)))

	return &Handle{
		name:  filepath.Base(path),
		path:  path,
		group: group,
		ds:    ds,
		store: s,
	}, nil
}

// OpenHandles reports how many handles are currently open.
func (s *Store) OpenHandles() int {
	return int(s.open.Load())
}

// Handle is an open survey file and its decoded dataset.
type Handle struct {
	name  string
	path  string
	group api.Group
	ds    *dataset.Dataset
	store *Store
	once  sync.Once
}

// Name returns the survey file name.
func (h *Handle) Name() string {
	return h.name
}

// Path returns the full path of the file.
func (h *Handle) Path() string {
	return h.path
}

// Dataset returns the decoded raw dataset. It stays valid after Close.
func (h *Handle) Dataset() *dataset.Dataset {
	return h.ds
}

// Close releases the file. It is safe to call more than once.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.group.Close()
		h.store.open.Add(-1)
		h.store.logger.Debug("survey file closed", slog.String("file", h.name))
	})
	return nil
}
