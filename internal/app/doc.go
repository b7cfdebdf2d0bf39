// Package app wires the ADCP viewer server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from the environment and an optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Resolve the data directory and create the writable outputs
//	4. Load the survey catalog and the bathymetry grid concurrently
//	5. Start the WebSocket hub and create the viewer and health services
//	6. Mount the HTTP handlers behind the middleware chain
//
// The catalog is required. A missing bathymetry grid is logged and the
// vector maps are drawn without the contour and land mask.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM. Stop then drains the HTTP server,
// closes every viewer session and its survey file, stops the hub and the
// runtime collector and flushes the telemetry providers.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
