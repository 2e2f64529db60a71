package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "window"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	// Direction label values
	DirectionForward  = "forward"
	DirectionBackward = "backward"

	// End label values for evictions
	EndFront = "front"
	EndBack  = "back"

	Source = "source"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple windows or instances.
type Labels struct {
	Window        string // Window name (e.g., "blocks", "kafka")
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Window != "" {
		labels["window"] = l.Window
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	// Window state
	start    prometheus.Gauge
	end      prometheus.Gauge
	size     prometheus.Gauge
	capacity prometheus.Gauge

	// Window fetches
	fetches       *prometheus.CounterVec   // by direction, status
	itemsFetched  *prometheus.CounterVec   // by direction
	shortFetches  *prometheus.CounterVec   // by direction
	fetchDuration *prometheus.HistogramVec // by direction

	// Evictions
	itemsEvicted *prometheus.CounterVec // by end

	// Source queries (ClickHouse, Kafka)
	sourceQueries       *prometheus.CounterVec   // by source, status
	sourceQueryDuration *prometheus.HistogramVec // by source
	sourceGaps          *prometheus.CounterVec   // by source
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., window), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

// newMetrics is the internal constructor that creates and registers all metrics.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		start: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "start",
			Help:      "Logical index of the first resident item",
		}),
		end: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "end",
			Help:      "Logical index one past the last resident item",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "size",
			Help:      "Number of resident items",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "capacity",
			Help:      "Maximum number of resident items",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetches_total",
			Help:      "Total window extensions by direction and status",
		}, []string{"direction", "status"}),
		itemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_fetched_total",
			Help:      "Total items returned by the source by direction",
		}, []string{"direction"}),
		shortFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "short_fetches_total",
			Help:      "Total fetches where the source returned fewer items than requested",
		}, []string{"direction"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch from the source and merge into the window",
			// Buckets cover typical source latencies: 1ms, 5ms, 10ms, 25ms, 50ms,
			// 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"direction"}),
		itemsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_evicted_total",
			Help:      "Total items evicted by the end they were evicted from",
		}, []string{"end"}),
		sourceQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Source,
			Name:      "queries_total",
			Help:      "Total source queries by source and status",
		}, []string{"source", "status"}),
		sourceQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Source,
			Name:      "query_duration_seconds",
			Help:      "Source query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		sourceGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Source,
			Name:      "gaps_total",
			Help:      "Total reads cut short by a missing logical index",
		}, []string{"source"}),
	}

	err := errors.Join(
		reg.Register(m.start),
		reg.Register(m.end),
		reg.Register(m.size),
		reg.Register(m.capacity),
		reg.Register(m.fetches),
		reg.Register(m.itemsFetched),
		reg.Register(m.shortFetches),
		reg.Register(m.fetchDuration),
		reg.Register(m.itemsEvicted),
		reg.Register(m.sourceQueries),
		reg.Register(m.sourceQueryDuration),
		reg.Register(m.sourceGaps),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// UpdateWindowMetrics updates window state gauges.
func (m *Metrics) UpdateWindowMetrics(start int64, size, capacity int) {
	if m == nil {
		return
	}
	m.start.Set(float64(start))
	m.end.Set(float64(start + int64(size)))
	m.size.Set(float64(size))
	m.capacity.Set(float64(capacity))
}

// RecordFetch records a window extension outcome.
// Pass nil error for successful fetches, non-nil for failures.
func (m *Metrics) RecordFetch(direction string, requested, returned int, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.fetches.WithLabelValues(direction, status).Inc()
	m.fetchDuration.WithLabelValues(direction).Observe(durationSeconds)
	if err != nil {
		return
	}
	if returned > 0 {
		m.itemsFetched.WithLabelValues(direction).Add(float64(returned))
	}
	if returned < requested {
		m.shortFetches.WithLabelValues(direction).Inc()
	}
}

// AddEvicted records items evicted from the given end of the window.
func (m *Metrics) AddEvicted(end string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsEvicted.WithLabelValues(end).Add(float64(count))
}

// RecordSourceQuery records a query against a backing source.
func (m *Metrics) RecordSourceQuery(source string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.sourceQueries.WithLabelValues(source, status).Inc()
	m.sourceQueryDuration.WithLabelValues(source).Observe(durationSeconds)
}

// IncSourceGaps records a read cut short by a missing logical index.
func (m *Metrics) IncSourceGaps(source string) {
	if m == nil {
		return
	}
	m.sourceGaps.WithLabelValues(source).Inc()
}
