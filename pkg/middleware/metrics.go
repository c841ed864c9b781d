package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/store"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
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
		Namespace: "vstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for stores.
type metrics struct {
	updatesTotal   *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	updateErrors   *prometheus.CounterVec
	listeners      *prometheus.GaugeVec
	version        *prometheus.GaugeVec
	bindingsOpen   *prometheus.GaugeVec
}

// globalMetrics is created on the first call to Prometheus and shared by
// every store; the store label tells them apart.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of store updates by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "status"}),

		updateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Update duration including listener fan-out, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		updateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_errors_total",
			Help:        "Total number of failed mutations by cause",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "error_type"}),

		listeners: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listeners",
			Help:        "Number of listeners registered when the last update started",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		version: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "version",
			Help:        "Last published state version",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		bindingsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "devtools_watchers",
			Help:        "Number of connected devtools watch clients",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for store
// updates.
//
// Metrics collected:
//   - vstore_updates_total: Counter of updates by store and status
//   - vstore_update_duration_seconds: Histogram of update duration
//   - vstore_update_errors_total: Counter of failed mutations by cause
//   - vstore_listeners: Gauge of listeners per store
//   - vstore_version: Gauge of the last published version
//   - vstore_devtools_watchers: Gauge of devtools watch clients
//
// Example:
//
//	kit, err := vstore.Create(state,
//	    store.WithName("cart"),
//	    store.WithMiddleware(middleware.Prometheus()),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) store.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return store.MiddlewareFunc(func(ctx context.Context, info store.UpdateInfo, next func() error) error {
		start := time.Now()
		err := next()
		m.updateDuration.WithLabelValues(info.Store).Observe(time.Since(start).Seconds())
		m.listeners.WithLabelValues(info.Store).Set(float64(info.Listeners))

		status := "success"
		if err != nil {
			status = "error"
			m.updateErrors.WithLabelValues(info.Store, categorizeError(err)).Inc()
		} else {
			m.version.WithLabelValues(info.Store).Set(float64(info.Version))
		}
		m.updatesTotal.WithLabelValues(info.Store, status).Inc()
		return err
	})
}

// categorizeError maps a mutation failure to a low-cardinality label.
func categorizeError(err error) string {
	var merr *draft.MutationError
	if errors.As(err, &merr) && merr.Panicked {
		return "panic"
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, draft.ErrPathNotFound):
		return "path_not_found"
	case errors.Is(err, draft.ErrNotContainer):
		return "not_container"
	case errors.Is(err, draft.ErrIndexOutOfRange), errors.Is(err, draft.ErrInvalidIndex):
		return "index"
	case errors.Is(err, draft.ErrNotNumber):
		return "not_number"
	case errors.Is(err, draft.ErrEmptyPath):
		return "empty_path"
	default:
		return "mutation"
	}
}

// RecordWatcherConnect records a devtools watch client joining.
func RecordWatcherConnect(storeName string) {
	if m := loadMetrics(); m != nil {
		m.bindingsOpen.WithLabelValues(storeName).Inc()
	}
}

// RecordWatcherDisconnect records a devtools watch client leaving.
func RecordWatcherDisconnect(storeName string) {
	if m := loadMetrics(); m != nil {
		m.bindingsOpen.WithLabelValues(storeName).Dec()
	}
}

func loadMetrics() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// Collector exposes the metrics for custom registrations and tests.
type Collector struct {
	UpdatesTotal   *prometheus.CounterVec
	UpdateDuration *prometheus.HistogramVec
	UpdateErrors   *prometheus.CounterVec
	Listeners      *prometheus.GaugeVec
	Version        *prometheus.GaugeVec
	Watchers       *prometheus.GaugeVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	m := loadMetrics()
	if m == nil {
		return nil
	}
	return &Collector{
		UpdatesTotal:   m.updatesTotal,
		UpdateDuration: m.updateDuration,
		UpdateErrors:   m.updateErrors,
		Listeners:      m.listeners,
		Version:        m.version,
		Watchers:       m.bindingsOpen,
	}
}
