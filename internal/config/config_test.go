package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adcpview/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "zarr_table.csv", cfg.Paths.CatalogFile)
				assert.Equal(t, "transformed_netCDF", cfg.Paths.TransformedDir)
				assert.Equal(t, 4, cfg.Viewer.Workers)
				assert.False(t, cfg.Viewer.PersistOnInfo)
			},
		},
		{
			name: "env overrides",
			env: map[string]string{
				"ADCPVIEW_SERVER_PORT":            "9090",
				"ADCPVIEW_PATHS_DATA_DIR":         "/srv/adcp",
				"ADCPVIEW_LOGGING_LEVEL":          "debug",
				"ADCPVIEW_VIEWER_PERSIST_ON_INFO": "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/srv/adcp", cfg.Paths.DataDir)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.True(t, cfg.Viewer.PersistOnInfo)
			},
		},
		{
			name: "file values apply where env keeps defaults",
			env:  map[string]string{"ADCPVIEW_SERVER_PORT": "7070"},
			file: "server:\n  port: 6060\npaths:\n  catalog_file: catalog.xlsx\nviewer:\n  workers: 2\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port, "env wins")
				assert.Equal(t, "catalog.xlsx", cfg.Paths.CatalogFile)
				assert.Equal(t, 2, cfg.Viewer.Workers)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"ADCPVIEW_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "adcpview.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
				t.Setenv(ConfigFileEnv, path)
			} else {
				t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
			}

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestGetConfigFilePath(t *testing.T) {
	present := filepath.Join(t.TempDir(), "adcpview.yaml")
	require.NoError(t, os.WriteFile(present, []byte("server:\n  port: 9000\n"), 0644))

	t.Setenv(ConfigFileEnv, present)
	assert.Equal(t, present, getConfigFilePath())

	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Empty(t, getConfigFilePath())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "zero workers", mutate: func(c *Config) { c.Viewer.Workers = 0 }, wantErr: true},
		{name: "negative plot size", mutate: func(c *Config) { c.Viewer.PlotWidthInches = -1 }, wantErr: true},
		{name: "no origins with cors", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{name: "empty data dir", mutate: func(c *Config) { c.Paths.DataDir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalisesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, filepath.Join("logs", "adcpview.log"), cfg.Logging.FilePath)
}
