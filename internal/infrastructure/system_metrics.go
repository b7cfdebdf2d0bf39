package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ResourceCounter reports the viewer resources held by the process.
type ResourceCounter interface {
	OpenHandles() int
	SessionCount() int
}

// SystemMetrics records process and viewer resource gauges
type SystemMetrics struct {
	goRoutines    metric.Int64Gauge
	memoryUsage   metric.Int64Gauge
	memorySystem  metric.Int64Gauge
	gcPause       metric.Float64Histogram
	processUptime metric.Float64Gauge
	openHandles   metric.Int64Gauge
	sessions      metric.Int64Gauge
}

// NewSystemMetrics creates the gauges on meter
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	memoryUsage, err := meter.Int64Gauge(
		"system_memory_usage_bytes",
		metric.WithDescription("Heap bytes in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64Gauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"system_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	openHandles, err := meter.Int64Gauge(
		"adcp_open_survey_handles",
		metric.WithDescription("Survey files currently held open"),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := meter.Int64Gauge(
		"adcp_viewer_sessions",
		metric.WithDescription("Live viewer sessions"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:    goRoutines,
		memoryUsage:   memoryUsage,
		memorySystem:  memorySystem,
		gcPause:       gcPause,
		processUptime: processUptime,
		openHandles:   openHandles,
		sessions:      sessions,
	}, nil
}

// RuntimeStats holds one sample of the process state
type RuntimeStats struct {
	GoRoutines    int64
	MemoryUsage   int64
	MemorySystem  int64
	GCCount       uint32
	LastGCPause   time.Duration
	CPUCount      int
	ProcessUptime time.Duration
	OpenHandles   int64
	Sessions      int64
	Timestamp     time.Time
}

// Collect samples the runtime and resources and records the gauges
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time, resources ResourceCounter) *RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &RuntimeStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		MemoryUsage:   int64(memStats.Alloc),
		MemorySystem:  int64(memStats.Sys),
		GCCount:       memStats.NumGC,
		LastGCPause:   time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}
	if resources != nil {
		stats.OpenHandles = int64(resources.OpenHandles())
		stats.Sessions = int64(resources.SessionCount())
	}

	sm.goRoutines.Record(ctx, stats.GoRoutines)
	sm.memoryUsage.Record(ctx, stats.MemoryUsage)
	sm.memorySystem.Record(ctx, stats.MemorySystem)
	sm.processUptime.Record(ctx, stats.ProcessUptime.Seconds())
	sm.openHandles.Record(ctx, stats.OpenHandles)
	sm.sessions.Record(ctx, stats.Sessions)
	if stats.LastGCPause > 0 {
		sm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}

	return stats
}

// FormatStats returns the sample as a JSON-friendly map
func (stats *RuntimeStats) FormatStats() map[string]any {
	return map[string]any{
		"runtime": map[string]any{
			"goroutines":       stats.GoRoutines,
			"memory_usage_mb":  stats.MemoryUsage / 1024 / 1024,
			"memory_system_mb": stats.MemorySystem / 1024 / 1024,
			"gc_count":         stats.GCCount,
			"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
			"cpu_count":        stats.CPUCount,
			"uptime_seconds":   stats.ProcessUptime.Seconds(),
		},
		"viewer": map[string]any{
			"open_handles": stats.OpenHandles,
			"sessions":     stats.Sessions,
		},
		"timestamp": stats.Timestamp.Format(time.RFC3339),
	}
}

// SystemMetricsCollector samples SystemMetrics on an interval
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	resources     ResourceCounter
	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewSystemMetricsCollector creates a collector. resources may be nil.
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration, resources ResourceCounter) (*SystemMetricsCollector, error) {
	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		resources:     resources,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start collects until Stop is called or ctx is done. It blocks.
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.metrics.Collect(ctx, smc.startTime, smc.resources)

	for {
		select {
		case <-ticker.C:
			smc.metrics.Collect(ctx, smc.startTime, smc.resources)
		case <-smc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the collection loop
func (smc *SystemMetricsCollector) Stop() {
	smc.stopOnce.Do(func() { close(smc.stopCh) })
}

// GetCurrentStats samples and returns the current statistics
func (smc *SystemMetricsCollector) GetCurrentStats(ctx context.Context) *RuntimeStats {
	return smc.metrics.Collect(ctx, smc.startTime, smc.resources)
}
