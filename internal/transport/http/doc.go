// Package http implements the HTTP handlers of the ADCP viewer. Handlers are
// a thin layer over the services package: they parse and validate requests,
// call a service and format the response.
//
// # Routes
//
//	GET    /api/catalog?from=&to=                    year-filtered catalog
//	GET    /api/catalog/files?from=&to=              offered survey files
//	GET    /api/catalog/export.{csv,xlsx}            catalog download
//	GET    /api/catalog/{file}/tables                summary and details tables
//	GET    /api/files/{file}/metadata?format=&persist=
//	GET    /api/files/{file}/report.pdf
//	POST   /api/sessions
//	GET    /api/sessions/{id}/view
//	PUT    /api/sessions/{id}/selection[?async=true]
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/plots/vectors.{png,svg,pdf}
//	GET    /api/sessions/{id}/plots/series/{name}.{png,svg,pdf}
//	GET    /api/health, /api/health/ready, /api/health/live, /api/version
//	GET    /api/stats, /api/stats/health
//	POST   /api/log/client
//	GET    /ws
//
// # Error Handling
//
// Errors are written as RFC 7807 problem details by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Validation Failed",
//	    "status": 400,
//	    "detail": "invalid selection: vectors failed gte=40",
//	    "instance": "/api/sessions/5c1f.../selection",
//	    "field": "vectors",
//	    "trace_id": "..."
//	}
//
// # WebSocket
//
// A browser connects to /ws, subscribes to its session with
// {"type":"subscribe","session_id":"..."} and then receives a "view" or
// "error" message for every selection sent with ?async=true.
package http
