// Package metrics records export outcomes as Prometheus metrics.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/export"
)

const namespace = "mr3mf"

// Collector implements export.Recorder on its own registry.
type Collector struct {
	registry *prometheus.Registry

	exportsTotal   *prometheus.CounterVec
	objectsTotal   prometheus.Counter
	verticesTotal  prometheus.Counter
	trianglesTotal prometheus.Counter
	instancesTotal prometheus.Counter
	bytesWritten   prometheus.Counter
	exportDuration prometheus.Histogram

	cacheHits   prometheus.Gauge
	cacheMisses prometheus.Gauge

	logger *zap.Logger
}

var _ export.Recorder = (*Collector)(nil)

// NewCollector creates a collector with a fresh registry.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of package writes by status",
			},
			[]string{"status"},
		),
		objectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Total number of objects written",
		}),
		verticesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vertices_total",
			Help:      "Total number of vertices written",
		}),
		trianglesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triangles_total",
			Help:      "Total number of triangles written",
		}),
		instancesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_total",
			Help:      "Total number of component instances written",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total number of package bytes written",
		}),
		exportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Package write duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		cacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asset_cache_hits",
			Help:      "Asset cache hits of the last run",
		}),
		cacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asset_cache_misses",
			Help:      "Asset cache misses of the last run",
		}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// RecordExport implements export.Recorder. Geometry counters only grow for
// successful writes.
func (c *Collector) RecordExport(status string, stats export.Stats) {
	c.exportsTotal.WithLabelValues(status).Inc()
	c.exportDuration.Observe(stats.Duration.Seconds())
	c.bytesWritten.Add(float64(stats.Bytes))
	if status != export.StatusOK {
		return
	}
	c.objectsTotal.Add(float64(stats.Objects))
	c.verticesTotal.Add(float64(stats.Vertices))
	c.trianglesTotal.Add(float64(stats.Triangles))
	c.instancesTotal.Add(float64(stats.Instances))
}

// SetCacheStats records the asset cache counters.
func (c *Collector) SetCacheStats(hits, misses int) {
	c.cacheHits.Set(float64(hits))
	c.cacheMisses.Set(float64(misses))
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
