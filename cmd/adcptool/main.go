package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"adcpview/internal/archive"
	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/exporter"
	"adcpview/internal/infrastructure"
	"adcpview/internal/metadata"
	"adcpview/internal/validation"
)

func main() {
	transform := flag.Bool("transform", false, "transform every survey file in the archive into the transformed output directory")
	info := flag.String("info", "", "print the metadata record of a survey file as JSON")
	persist := flag.Bool("persist", false, "with -info, also write the transformed dataset")
	catalogOut := flag.String("catalog", "", "build a catalog from the archive metadata and write it to a .csv or .xlsx file")
	dataDir := flag.String("data", "", "data directory (defaults to the configured data directory)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create required directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := newTool(paths, cfg.Viewer.Workers, logger)

	switch {
	case *transform:
		err = t.transformAll(ctx)
	case *info != "":
		err = t.info(ctx, os.Stdout, *info, *persist)
	case *catalogOut != "":
		err = t.buildCatalog(ctx, *catalogOut)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("adcptool failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// tool runs the batch operations over one archive.
type tool struct {
	paths       *config.Paths
	store       *archive.Store
	transformer *dataprocessing.Transformer
	sink        dataprocessing.Sink
	validator   *validation.FileValidator
	workers     int
	logger      *slog.Logger
}

func newTool(paths *config.Paths, workers int, logger *slog.Logger) *tool {
	if workers < 1 {
		workers = config.DefaultWorkers
	}
	return &tool{
		paths:       paths,
		store:       archive.NewStore(paths.ArchiveDir, logger),
		transformer: dataprocessing.NewTransformer(logger, nil),
		sink:        exporter.NewNetCDFSink(paths, logger),
		validator:   validation.NewFileValidator(logger),
		workers:     workers,
		logger:      logger,
	}
}

// transformAll transforms every archive file with a bounded number of
// workers. A failing file is logged and does not stop the others; the
// failures are returned together.
func (t *tool) transformAll(ctx context.Context) error {
	if _, err := t.validator.ValidateArchive(t.paths.ArchiveDir); err != nil {
		return err
	}
	if err := t.validator.ValidateOutputDirectory(t.paths.TransformedDir); err != nil {
		return err
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	names, err := t.store.List(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	t.logger.InfoContext(ctx, "Transforming archive",
		slog.String("archive", t.paths.ArchiveDir),
		slog.Int("files", len(names)),
		slog.Int("workers", t.workers))

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for _, name := range names {
		g.Go(func() error {
			fctx := infrastructure.WithSurveyFile(gctx, name)
			if err := t.transformOne(fctx, name); err != nil {
				t.logger.ErrorContext(fctx, "Transform failed",
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "Archive transformed",
		slog.Int("files", len(names)),
		slog.Int("failed", len(failures)),
		slog.Duration("duration", time.Since(start)))
	return errors.Join(failures...)
}

func (t *tool) transformOne(ctx context.Context, name string) error {
	h, err := t.store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer h.Close()

	_, err = t.transformer.Transform(ctx, h.Dataset(), dataprocessing.TransformOptions{
		Name:    name,
		Persist: true,
		Sink:    t.sink,
	})
	return err
}

// info writes the metadata record of file to out as indented JSON.
func (t *tool) info(ctx context.Context, out io.Writer, file string, persist bool) error {
	if filepath.Base(file) == file {
		if err := t.validator.ValidateNetCDFFile(t.paths.GetArchivePath(file)); err != nil {
			return err
		}
	}
	if persist {
		if err := t.validator.ValidateOutputDirectory(t.paths.TransformedDir); err != nil {
			return err
		}
	}

	h, err := t.store.Open(ctx, file)
	if err != nil {
		return err
	}
	defer h.Close()

	rec, err := metadata.Extract(file, h.Dataset())
	if err != nil {
		return err
	}
	if persist {
		opts := dataprocessing.TransformOptions{Name: file, Persist: true, Sink: t.sink}
		if _, err := t.transformer.Transform(ctx, h.Dataset(), opts); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// buildCatalog extracts the metadata of every archive file and writes one
// catalog row per file. Files whose metadata cannot be read are skipped.
func (t *tool) buildCatalog(ctx context.Context, outPath string) error {
	ext := strings.ToLower(filepath.Ext(outPath))
	if ext != ".csv" && ext != ".xlsx" {
		return apperrors.NewAppValidationError(fmt.Sprintf("unsupported catalog format %q", ext))
	}
	outPath, err := filepath.Abs(outPath)
	if err != nil {
		return err
	}

	if _, err := t.validator.ValidateArchive(t.paths.ArchiveDir); err != nil {
		return err
	}
	names, err := t.store.List(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, len(names))
	var columns []string
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, name := range names {
		g.Go(func() error {
			h, err := t.store.Open(gctx, name)
			if err != nil {
				t.logger.WarnContext(gctx, "Skipping unreadable survey file",
					slog.String("file", name), slog.String("error", err.Error()))
				return gctx.Err()
			}
			defer h.Close()

			rec, err := metadata.Extract(name, h.Dataset())
			if err != nil {
				t.logger.WarnContext(gctx, "Skipping survey file without metadata",
					slog.String("file", name), slog.String("error", err.Error()))
				return gctx.Err()
			}
			cols, values := rec.CatalogRow()
			mu.Lock()
			if columns == nil {
				columns = cols
			}
			mu.Unlock()
			rows[i] = values
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	kept := rows[:0]
	for _, r := range rows {
		if r != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return apperrors.NewNotFoundError("survey files with metadata in " + t.paths.ArchiveDir)
	}

	if err := writeCatalog(outPath, ext, columns, kept, t.paths); err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "Catalog written",
		slog.String("path", outPath),
		slog.Int("rows", len(kept)),
		slog.Int("skipped", len(names)-len(kept)))
	return nil
}

func writeCatalog(outPath, ext string, columns []string, rows [][]string, paths *config.Paths) error {
	if ext == ".xlsx" {
		f, err := os.Create(outPath)
		if err != nil {
			return apperrors.NewIOError(outPath, err)
		}
		if err := exporter.WriteCatalogXLSX(f, columns, rows); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	sw, err := exporter.NewCSVWriter(paths).CreateStreamWriter(outPath, columns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := sw.WriteRecord(r); err != nil {
			sw.Close()
			return err
		}
	}
	return sw.Close()
}
