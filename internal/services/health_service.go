package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"adcpview/internal/config"
	"adcpview/internal/infrastructure"
)

// ClientCounter reports connected push clients.
type ClientCounter interface {
	ClientCount() int
}

// RuntimeSampler samples process statistics for the detailed health view.
type RuntimeSampler interface {
	GetCurrentStats(ctx context.Context) *infrastructure.RuntimeStats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	viewer    *ViewerService
	hub       ClientCounter
	sampler   RuntimeSampler
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	SurveyFiles      int     `json:"survey_files"`
	CatalogEntries   int     `json:"catalog_entries"`
	Sessions         int     `json:"sessions"`
	WebSocketClients int     `json:"websocket_clients"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a new health service. viewer and hub may be nil.
func NewHealthService(version, buildTime, buildID string, paths *config.Paths, viewer *ViewerService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		viewer:    viewer,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger,
	}
}

// SetRuntimeSampler adds runtime statistics to GetDetailedHealth.
func (hs *HealthService) SetRuntimeSampler(s RuntimeSampler) {
	hs.sampler = s
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the inputs the viewer needs are in place.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"archive": hs.checkArchiveHealth(),
			"catalog": hs.checkCatalogHealth(),
		},
	}
	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]any {
	result := map[string]any{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.viewer != nil {
		names, err := hs.viewer.ArchiveFiles(ctx)
		if err != nil {
			return stats, err
		}
		stats.SurveyFiles = len(names)
		stats.CatalogEntries = hs.viewer.catalog.Len()
		stats.Sessions = hs.viewer.SessionCount()
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	return stats, nil
}

func (hs *HealthService) checkArchiveHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	info, err := os.Stat(hs.paths.ArchiveDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Archive directory not found: %s", hs.paths.ArchiveDir),
		}
	}
	return ServiceHealth{Status: "ready", Message: "Archive directory is readable"}
}

func (hs *HealthService) checkCatalogHealth() ServiceHealth {
	if hs.viewer == nil || hs.viewer.catalog == nil {
		return ServiceHealth{Status: "not_ready", Message: "catalog not loaded"}
	}
	if hs.viewer.catalog.Len() == 0 {
		return ServiceHealth{Status: "not_ready", Message: "catalog is empty"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d catalog entries", hs.viewer.catalog.Len()),
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]any {
	stats, err := hs.SystemStats(ctx)
	detail := map[string]any{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
	if err != nil {
		detail["stats_error"] = err.Error()
	}
	if hs.sampler != nil {
		detail["system"] = hs.sampler.GetCurrentStats(ctx).FormatStats()
	}
	return detail
}
