// Package metrics provides Prometheus metrics for the autolabel pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	CapabilityDetection      = "detection"
	CapabilityClassification = "classification"

	OpQuery   = "query"
	OpAddBox  = "add_bounding_box"
	OpAddTags = "add_tags"

	OutcomeKept          = "kept"
	OutcomeLowConfidence = "low_confidence"
	OutcomeLabelRejected = "label_rejected"
	OutcomeEmptyBox      = "empty_box"
	OutcomeUnclassified  = "unclassified"
)

// Manager manages all Prometheus metrics for a labeling run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline progress
	assetsFetched  prometheus.Counter
	assetsSkipped  *prometheus.CounterVec
	assetsLabeled  prometheus.Counter
	detections     *prometheus.CounterVec
	boxesCommitted prometheus.Counter
	tagsCommitted  prometheus.Counter
	runDuration    prometheus.Gauge
	lastRunUnix    prometheus.Gauge

	// Remote call latency
	inferenceLatency *prometheus.HistogramVec
	storeLatency     *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "autolabel",
		subsystem:        "pipeline",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	reg := m.registry
	if !m.enabled {
		// Unregistered collectors still count; nothing is exported.
		reg = nil
	}
	auto := promauto.With(reg)

	m.assetsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assets_fetched_total",
		Help:        "Total number of assets fetched from the dataset store",
		ConstLabels: m.constLabels,
	})

	m.assetsSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "assets_skipped_total",
			Help:        "Total number of assets skipped, by reason",
			ConstLabels: m.constLabels,
		},
		[]string{"reason"},
	)

	m.assetsLabeled = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assets_labeled_total",
		Help:        "Total number of assets tagged as auto-labeled",
		ConstLabels: m.constLabels,
	})

	m.detections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "detections_total",
			Help:        "Detections returned by the detector, by filter outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"outcome"},
	)

	m.boxesCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "boxes_committed_total",
		Help:        "Bounding boxes written to the dataset store",
		ConstLabels: m.constLabels,
	})

	m.tagsCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tags_committed_total",
		Help:        "Tag writes issued to the dataset store",
		ConstLabels: m.constLabels,
	})

	m.runDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of the last labeling run",
		ConstLabels: m.constLabels,
	})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_run_unix",
		Help:        "Unix timestamp of the last completed labeling run",
		ConstLabels: m.constLabels,
	})

	m.inferenceLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "inference_latency_milliseconds",
			Help:        "Vision service call latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"capability"},
	)

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_latency_milliseconds",
			Help:        "Dataset store call latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"operation"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)
}

// RecordAssetFetched increments the fetched assets counter.
func RecordAssetFetched() {
	globalManager.assetsFetched.Inc()
}

// RecordAssetSkipped increments the skipped assets counter for reason.
func RecordAssetSkipped(reason string) {
	globalManager.assetsSkipped.WithLabelValues(reason).Inc()
}

// RecordAssetLabeled increments the labeled assets counter.
func RecordAssetLabeled() {
	globalManager.assetsLabeled.Inc()
}

// RecordDetections adds n detections with the given filter outcome.
func RecordDetections(outcome string, n int) {
	if n <= 0 {
		return
	}
	globalManager.detections.WithLabelValues(outcome).Add(float64(n))
}

// RecordBoxCommitted increments the committed boxes counter.
func RecordBoxCommitted() {
	globalManager.boxesCommitted.Inc()
}

// RecordTagCommitted increments the tag writes counter.
func RecordTagCommitted() {
	globalManager.tagsCommitted.Inc()
}

// RecordRunDuration stores the duration of a finished run and its end time.
func RecordRunDuration(seconds float64, endUnix int64) {
	globalManager.runDuration.Set(seconds)
	globalManager.lastRunUnix.Set(float64(endUnix))
}

// RecordInferenceLatency records a vision call latency in milliseconds.
func RecordInferenceLatency(capability string, latencyMs float64) {
	globalManager.inferenceLatency.WithLabelValues(capability).Observe(latencyMs)
}

// RecordStoreLatency records a store call latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in the text exposition format to path,
// for pickup by a node-exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
