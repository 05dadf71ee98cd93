// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// shared by the build, publish, and serve paths.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the metric set.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "assetkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for stage durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the metric set.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "assetkit",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the pipeline metrics.
type Metrics struct {
	BuildsTotal      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	Assets           prometheus.Gauge
	Endpoints        prometheus.Gauge
	CompressedBytes  *prometheus.CounterVec
	RequestsTotal    *prometheus.CounterVec
	PublishedObjects *prometheus.CounterVec
}

// NewMetrics registers the metric set.
//
// Metrics collected:
//   - assetkit_builds_total: builds by result (ok, error, unchanged)
//   - assetkit_stage_duration_seconds: build stage durations
//   - assetkit_assets: assets in the last build
//   - assetkit_endpoints: endpoints in the last build
//   - assetkit_compressed_bytes_total: bytes written per encoding
//   - assetkit_requests_total: static requests by encoding and status
//   - assetkit_published_objects_total: uploads by result
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "builds_total",
			Help:        "Total number of manifest builds",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stage_duration_seconds",
			Help:        "Build stage duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"stage"}),

		Assets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "assets",
			Help:        "Number of assets in the last build",
			ConstLabels: config.ConstLabels,
		}),

		Endpoints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "endpoints",
			Help:        "Number of endpoints in the last build",
			ConstLabels: config.ConstLabels,
		}),

		CompressedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "compressed_bytes_total",
			Help:        "Bytes written to compressed variants",
			ConstLabels: config.ConstLabels,
		}, []string{"encoding"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Static asset requests by negotiated encoding and status",
			ConstLabels: config.ConstLabels,
		}, []string{"encoding", "status"}),

		PublishedObjects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "published_objects_total",
			Help:        "Objects uploaded to storage by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// Discard returns metrics registered on a private registry, for callers that
// do not export metrics.
func Discard() *Metrics {
	return NewMetrics(WithRegistry(prometheus.NewRegistry()))
}
