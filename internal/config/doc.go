// Package config provides centralized configuration management for the ADCP
// viewer. It loads configuration from environment variables and an optional
// YAML file, validates it, and resolves the file system layout.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (ADCPVIEW_CONFIG or adcpview.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ADCPVIEW_* for namespacing:
//
//	ADCPVIEW_SERVER_PORT=8080
//	ADCPVIEW_PATHS_DATA_DIR=/srv/adcp
//	ADCPVIEW_PATHS_CATALOG_FILE=zarr_table.csv
//	ADCPVIEW_LOGGING_LEVEL=debug
//
// # Paths
//
// Paths resolves the data directory and everything beneath it: the survey
// archive, the catalog table, the bathymetry grid, the transformed output
// sink, generated reports and logs.
package config
