// Package metrics collects Prometheus metrics for builds. Metrics are kept
// on a private registry and written out as a node-exporter textfile, since
// niter is a short-lived process with nothing to scrape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "niter").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the registry metrics are registered with.
	// Default: a new private registry.
	Registry *prometheus.Registry
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Collector holds the build metrics. A nil *Collector is valid and records
// nothing, so callers never need to check for it.
type Collector struct {
	registry *prometheus.Registry

	syncOps         *prometheus.CounterVec
	syncErrors      *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	cacheHits       prometheus.Counter
	resolveDuration *prometheus.HistogramVec
	resolveErrors   prometheus.Counter
}

// New creates a collector.
//
// Metrics collected:
//   - niter_sync_operations_total: completed operations by action
//   - niter_sync_errors_total: failed operations by action
//   - niter_download_bytes_total: bytes written by downloads
//   - niter_download_cache_hits_total: downloads served from the cache
//   - niter_resolve_duration_seconds: resolution time by source kind
//   - niter_resolve_errors_total: failed resolutions
func New(opts ...Option) *Collector {
	cfg := Config{Namespace: "niter"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		registry: cfg.Registry,

		syncOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "sync_operations_total",
			Help:        "Total number of completed synchronization operations",
			ConstLabels: cfg.ConstLabels,
		}, []string{"action"}),

		syncErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "sync_errors_total",
			Help:        "Total number of failed synchronization operations",
			ConstLabels: cfg.ConstLabels,
		}, []string{"action"}),

		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "download_bytes_total",
			Help:        "Total bytes written by downloads",
			ConstLabels: cfg.ConstLabels,
		}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "download_cache_hits_total",
			Help:        "Total downloads served from the local cache",
			ConstLabels: cfg.ConstLabels,
		}),

		resolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "resolve_duration_seconds",
			Help:        "Mod resolution duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		resolveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "resolve_errors_total",
			Help:        "Total number of failed mod resolutions",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// SyncOp records a finished synchronization operation.
func (c *Collector) SyncOp(action string, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.syncErrors.WithLabelValues(action).Inc()
		return
	}
	c.syncOps.WithLabelValues(action).Inc()
}

// Download records a completed download.
func (c *Collector) Download(size int64, fromCache bool) {
	if c == nil {
		return
	}
	c.downloadBytes.Add(float64(size))
	if fromCache {
		c.cacheHits.Inc()
	}
}

// Resolve records one resolution attempt.
func (c *Collector) Resolve(source string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.resolveDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		c.resolveErrors.Inc()
	}
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
