// Package services implements the viewer's business logic between the HTTP
// handlers and the data packages.
//
// # Sessions
//
// A Session holds one viewer's state: the survey file it has open, the
// transformed dataset, the slider bounds and the latest View. Selection is an
// immutable value describing every control; Session.Apply runs the whole
// pipeline for one selection:
//
//	resolve year range and file against the catalog
//	reopen and transform the file when it changed
//	reset (file or years changed) or clamp the filter ranges
//	filter by bounding box, build the vector map and time series
//
// Runs of one session are serialised. Session.Listen consumes a change
// channel and collapses queued selections to the newest before running,
// publishing each result to the session's websocket subscribers.
//
// # Other services
//
//	- ViewerService.Info: metadata record of a file, optionally persisting
//	  the transformed dataset
//	- ViewerService.Report: PDF report of a file
//	- HealthService: liveness, readiness and runtime statistics
package services
