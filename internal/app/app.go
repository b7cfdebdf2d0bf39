package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"

	"adcpview/internal/archive"
	"adcpview/internal/catalog"
	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	"adcpview/internal/errors"
	"adcpview/internal/exporter"
	"adcpview/internal/infrastructure"
	customMiddleware "adcpview/internal/middleware"
	"adcpview/internal/plot"
	"adcpview/internal/services"
	handlers "adcpview/internal/transport/http"
	"adcpview/internal/validation"
	ws "adcpview/internal/websocket"
)

const (
	VERSION = "v" + config.AppVersion
	AppName = "ADCP Viewer"

	systemMetricsInterval = 15 * time.Second
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	// Generate a deterministic build ID based on version and time
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.BusinessMetrics
	SystemMetrics  *infrastructure.SystemMetricsCollector
	ErrorHandler   *errors.ErrorHandler
	WebSocketHub   *ws.Hub
	Catalog        *catalog.Catalog
	Bathymetry     *archive.Grid
	ViewerService  *services.ViewerService
	HealthService  *services.HealthService
	stopCollecting context.CancelFunc
}

// NewApplication loads the configuration and creates a fully wired
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_id", BuildID))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	return newApplication(context.Background(), cfg, paths, logger)
}

// newApplication wires the application from resolved inputs.
func newApplication(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	logger.Info("Ensuring required directories exist")
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.OTel), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.loadInputs(ctx); err != nil {
		return nil, err
	}
	if err := a.initializeServices(); err != nil {
		return nil, err
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// loadInputs reads the catalog and the bathymetry grid concurrently. The
// catalog is required; without a bathymetry grid the map has no contour.
func (a *Application) loadInputs(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cat, err := catalog.Load(gctx, a.Paths.CatalogFile)
		if err != nil {
			return fmt.Errorf("failed to load catalog %s: %w", a.Paths.CatalogFile, err)
		}
		a.Catalog = cat
		return nil
	})

	g.Go(func() error {
		grid, err := archive.LoadBathymetry(gctx, a.Paths.BathymetryFile)
		if err != nil {
			a.Logger.WarnContext(gctx, "Bathymetry not available, maps are drawn without contour",
				slog.String("path", a.Paths.BathymetryFile),
				slog.String("error", err.Error()))
			return nil
		}
		a.Bathymetry = grid
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	lo, hi, _ := a.Catalog.YearBounds()
	a.Logger.InfoContext(ctx, "Inputs loaded",
		slog.Int("catalog_entries", a.Catalog.Len()),
		slog.Int("first_year", lo),
		slog.Int("last_year", hi),
		slog.Bool("bathymetry", a.Bathymetry != nil))
	return nil
}

// initializeServices creates the hub, the viewer and the health service
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	a.ViewerService = services.NewViewerService(services.ViewerDeps{
		Catalog:     a.Catalog,
		Store:       archive.NewStore(a.Paths.ArchiveDir, a.Logger),
		Bathymetry:  a.Bathymetry,
		Transformer: dataprocessing.NewTransformer(a.Logger, a.Metrics),
		Builder:     plot.NewBuilder(a.Logger, a.Metrics),
		Sink:        exporter.NewNetCDFSink(a.Paths, a.Logger),
		Publisher:   hub,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	})

	a.HealthService = services.NewHealthService(VERSION, BuildTime, BuildID, a.Paths, a.ViewerService, hub, a.Logger)

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval, a.ViewerService)
	if err != nil {
		return fmt.Errorf("failed to initialize system metrics: %w", err)
	}
	a.SystemMetrics = collector
	a.HealthService.SetRuntimeSampler(collector)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so the WebSocket upgrade still works
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	corsConfig := a.getCORSConfig()

	r.With(customMiddleware.WebSocketTrace, customMiddleware.WithMetrics(a.Metrics)).Handle(config.WebSocketEndpoint,
		handlers.NewWebSocketHandler(a.WebSocketHub, corsConfig,
			a.Config.WebSocket.ReadBufferSize, a.Config.WebSocket.WriteBufferSize, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.WithMetrics(a.Metrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger, a.ErrorHandler.HandlePanic))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(corsConfig))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.Compress(5, "application/json", "image/svg+xml", "text/csv"))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount("/stats", handlers.NewStatsHandler(a.HealthService, a.Logger, a.ErrorHandler).Routes())

		r.Mount("/catalog", handlers.NewCatalogHandler(a.ViewerService, a.Logger, a.ErrorHandler).Routes())
		r.Mount("/files", handlers.NewSurveyHandler(a.ViewerService, a.Config.Viewer.PersistOnInfo, a.Logger, a.ErrorHandler).Routes())

		plotSize := handlers.PlotSize{
			Width:  vg.Length(a.Config.Viewer.PlotWidthInches) * vg.Inch,
			Height: vg.Length(a.Config.Viewer.PlotHeightInches) * vg.Inch,
		}
		r.Mount("/sessions", handlers.NewSessionHandler(a.ViewerService, plotSize, a.Logger, a.ErrorHandler).Routes())

		r.With(customMiddleware.ContentTypeValidator("application/json")).
			Post("/log/client", handlers.NewClientLogHandler(a.Logger).Handle)
	})
}

// getCORSConfig builds the CORS policy shared by the API and the WebSocket
// upgrade.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cors := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	port := a.Config.Server.Port
	cors.AllowedOrigins = []string{
		fmt.Sprintf("http://localhost:%d", port),
		fmt.Sprintf("http://127.0.0.1:%d", port),
	}
	if a.Config.Security.EnableCORS {
		for _, origin := range a.Config.Security.AllowedOrigins {
			if origin = strings.TrimSpace(origin); origin != "" && !containsFold(cors.AllowedOrigins, origin) {
				cors.AllowedOrigins = append(cors.AllowedOrigins, origin)
			}
		}
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cors.AllowedOrigins))
	return cors
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the background services and the HTTP server
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	collectCtx, stopCollecting := context.WithCancel(context.WithoutCancel(ctx))
	a.stopCollecting = stopCollecting
	go a.SystemMetrics.Start(collectCtx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Sessions publish to the hub, so they close first
	a.ViewerService.Close(shutdownCtx)
	a.WebSocketHub.Stop()

	if a.stopCollecting != nil {
		a.stopCollecting()
	}
	a.SystemMetrics.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck reports missing inputs and unwritable outputs.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	writable := map[string]string{
		"Transformed": a.Paths.TransformedDir,
		"Reports":     a.Paths.ReportsDir,
		"Logs":        a.Paths.LogsDir,
	}
	v := validation.NewFileValidator(a.Logger)
	for name, dir := range writable {
		if err := v.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		}
	}
	if err := v.ValidateCatalogFile(a.Paths.CatalogFile); err != nil {
		warnings = append(warnings, fmt.Sprintf("Catalog file: %v", err))
	}

	names, err := a.ViewerService.ArchiveFiles(ctx)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Archive not readable: %s", a.Paths.ArchiveDir))
	} else {
		present := make(map[string]bool, len(names))
		for _, n := range names {
			present[n] = true
		}
		missing := 0
		for _, f := range a.Catalog.Files() {
			if !present[f] {
				missing++
			}
		}
		if missing > 0 {
			warnings = append(warnings, fmt.Sprintf("%d catalog files missing from %s", missing, a.Paths.ArchiveDir))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
