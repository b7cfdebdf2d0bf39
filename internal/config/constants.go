package config

import "time"

// Application constants for the ADCP viewer
const (
	// Application Info
	AppName    = "adcpview"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable (ADCPVIEW_*)
	EnvPrefix = "ADCPVIEW"

	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "ADCPVIEW_CONFIG"

	// Quality control
	QCGood = 49 // SeaDataNet flag '1' stored as a character code

	// Viewer widget bounds
	MinVectors     = 40
	MaxVectors     = 800
	DefaultVectors = 100
	MinScale       = 0.1
	MaxScale       = 1.0
	DefaultScale   = 0.5

	// Bathymetric contour drawn on the vector map
	BathyContourLevel = -1000.0

	// File Paths (relative to the data directory)
	DefaultDataDir        = "data"
	DefaultArchiveDir     = "archive"
	DefaultCatalogFile    = "zarr_table.csv"
	DefaultBathymetryFile = "bathy6min.nc"
	DefaultTransformedDir = "transformed_netCDF"
	DefaultReportsDir     = "reports"
	DefaultLogsDir        = "logs"

	// Survey file discovery
	SurveyFilePattern = "*.nc"
	ManifestFileName  = "MANIFEST"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100
	DefaultBurstSize = 50

	// Batch transforms
	DefaultWorkers = 4

	// API Endpoints (internal)
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
