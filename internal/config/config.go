package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "adcpview/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Viewer    ViewerConfig    `yaml:"viewer" envconfig:"VIEWER"`
	OTel      OTelConfig      `yaml:"otel" envconfig:"OTEL"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/adcpview.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration. Relative entries are
// resolved against DataDir, and a relative DataDir against the executable.
type PathsConfig struct {
	DataDir        string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ArchiveDir     string `yaml:"archive_dir" envconfig:"ARCHIVE_DIR" default:"archive"`
	CatalogFile    string `yaml:"catalog_file" envconfig:"CATALOG_FILE" default:"zarr_table.csv"`
	BathymetryFile string `yaml:"bathymetry_file" envconfig:"BATHYMETRY_FILE" default:"bathy6min.nc"`
	TransformedDir string `yaml:"transformed_dir" envconfig:"TRANSFORMED_DIR" default:"transformed_netCDF"`
	ReportsDir     string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// ViewerConfig contains rendering and session defaults
type ViewerConfig struct {
	PlotWidthInches  float64 `yaml:"plot_width_inches" envconfig:"PLOT_WIDTH_INCHES" default:"5"`
	PlotHeightInches float64 `yaml:"plot_height_inches" envconfig:"PLOT_HEIGHT_INCHES" default:"4"`
	PersistOnInfo    bool    `yaml:"persist_on_info" envconfig:"PERSIST_ON_INFO" default:"false"`
	Workers          int     `yaml:"workers" envconfig:"WORKERS" default:"4"`
}

// OTelConfig contains OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"adcpview"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to load config from "+configFile, err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file on top of the defaults
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfigs merges file config with env config. An env value wins when it
// differs from the default; otherwise the file value is used.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()
	out := envConfig

	out.Server.Port = pick(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	out.Server.ReadTimeout = pick(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	out.Server.WriteTimeout = pick(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	out.Server.IdleTimeout = pick(envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	out.Server.MaxHeaderBytes = pick(envConfig.Server.MaxHeaderBytes, fileConfig.Server.MaxHeaderBytes, def.Server.MaxHeaderBytes)
	out.Server.ShutdownTimeout = pick(envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	out.Server.RequestTimeout = pick(envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout, def.Server.RequestTimeout)

	if strings.Join(envConfig.Security.AllowedOrigins, ",") == strings.Join(def.Security.AllowedOrigins, ",") {
		out.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	out.Security.EnableCORS = pick(envConfig.Security.EnableCORS, fileConfig.Security.EnableCORS, def.Security.EnableCORS)
	out.Security.RateLimit.Enabled = pick(envConfig.Security.RateLimit.Enabled, fileConfig.Security.RateLimit.Enabled, def.Security.RateLimit.Enabled)
	out.Security.RateLimit.RPS = pick(envConfig.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS, def.Security.RateLimit.RPS)
	out.Security.RateLimit.Burst = pick(envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, def.Security.RateLimit.Burst)

	out.Logging.Level = pick(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	out.Logging.Format = pick(envConfig.Logging.Format, fileConfig.Logging.Format, def.Logging.Format)
	out.Logging.Output = pick(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	out.Logging.FilePath = pick(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)
	out.Logging.Development = pick(envConfig.Logging.Development, fileConfig.Logging.Development, def.Logging.Development)

	out.Paths.DataDir = pick(envConfig.Paths.DataDir, fileConfig.Paths.DataDir, def.Paths.DataDir)
	out.Paths.ArchiveDir = pick(envConfig.Paths.ArchiveDir, fileConfig.Paths.ArchiveDir, def.Paths.ArchiveDir)
	out.Paths.CatalogFile = pick(envConfig.Paths.CatalogFile, fileConfig.Paths.CatalogFile, def.Paths.CatalogFile)
	out.Paths.BathymetryFile = pick(envConfig.Paths.BathymetryFile, fileConfig.Paths.BathymetryFile, def.Paths.BathymetryFile)
	out.Paths.TransformedDir = pick(envConfig.Paths.TransformedDir, fileConfig.Paths.TransformedDir, def.Paths.TransformedDir)
	out.Paths.ReportsDir = pick(envConfig.Paths.ReportsDir, fileConfig.Paths.ReportsDir, def.Paths.ReportsDir)
	out.Paths.LogsDir = pick(envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir, def.Paths.LogsDir)

	out.WebSocket.ReadBufferSize = pick(envConfig.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize, def.WebSocket.ReadBufferSize)
	out.WebSocket.WriteBufferSize = pick(envConfig.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize, def.WebSocket.WriteBufferSize)
	out.WebSocket.PingPeriod = pick(envConfig.WebSocket.PingPeriod, fileConfig.WebSocket.PingPeriod, def.WebSocket.PingPeriod)
	out.WebSocket.PongWait = pick(envConfig.WebSocket.PongWait, fileConfig.WebSocket.PongWait, def.WebSocket.PongWait)

	out.Viewer.PlotWidthInches = pick(envConfig.Viewer.PlotWidthInches, fileConfig.Viewer.PlotWidthInches, def.Viewer.PlotWidthInches)
	out.Viewer.PlotHeightInches = pick(envConfig.Viewer.PlotHeightInches, fileConfig.Viewer.PlotHeightInches, def.Viewer.PlotHeightInches)
	out.Viewer.PersistOnInfo = pick(envConfig.Viewer.PersistOnInfo, fileConfig.Viewer.PersistOnInfo, def.Viewer.PersistOnInfo)
	out.Viewer.Workers = pick(envConfig.Viewer.Workers, fileConfig.Viewer.Workers, def.Viewer.Workers)

	out.OTel.ServiceName = pick(envConfig.OTel.ServiceName, fileConfig.OTel.ServiceName, def.OTel.ServiceName)
	out.OTel.Environment = pick(envConfig.OTel.Environment, fileConfig.OTel.Environment, def.OTel.Environment)
	out.OTel.TracingEnabled = pick(envConfig.OTel.TracingEnabled, fileConfig.OTel.TracingEnabled, def.OTel.TracingEnabled)
	out.OTel.MetricsEnabled = pick(envConfig.OTel.MetricsEnabled, fileConfig.OTel.MetricsEnabled, def.OTel.MetricsEnabled)

	return out
}

func pick[T comparable](env, file, def T) T {
	if env != def {
		return env
	}
	return file
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Paths.DataDir == "" {
		return fmt.Errorf("data directory must be set")
	}

	if c.Viewer.Workers < 1 {
		return fmt.Errorf("viewer workers must be at least 1, got %d", c.Viewer.Workers)
	}

	if c.Viewer.PlotWidthInches <= 0 || c.Viewer.PlotHeightInches <= 0 {
		return fmt.Errorf("plot size must be positive")
	}

	// JSON is the only supported log format
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "adcpview.log")
	}

	return nil
}

// getConfigFilePath returns the path to the config file. A file named by
// ConfigFileEnv that does not exist leaves the defaults in place.
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	// Check for config file in common locations
	locations := []string{
		"adcpview.yaml",
		"configs/adcpview.yaml",
		"../configs/adcpview.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/adcpview.log",
		},
		Paths: PathsConfig{
			DataDir:        DefaultDataDir,
			ArchiveDir:     DefaultArchiveDir,
			CatalogFile:    DefaultCatalogFile,
			BathymetryFile: DefaultBathymetryFile,
			TransformedDir: DefaultTransformedDir,
			ReportsDir:     DefaultReportsDir,
			LogsDir:        DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Viewer: ViewerConfig{
			PlotWidthInches:  5,
			PlotHeightInches: 4,
			Workers:          DefaultWorkers,
		},
		OTel: OTelConfig{
			ServiceName:    AppName,
			Environment:    "development",
			MetricsEnabled: true,
		},
	}
}
