package metrics

// #region imports
import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #endregion

// #region metrics

// Metrics holds the pipeline's instrumentation on a private registry so
// multiple instances (tests, replays) never collide.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal       prometheus.Counter
	PredictionsTotal *prometheus.CounterVec
	SnapshotErrors   prometheus.Counter
	SnapshotLatency  prometheus.Histogram
	SessionsActive   prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ticks_total",
		Help: "Playback ticks processed.",
	})
	m.PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_predictions_total",
		Help: "Predictions served, by state.",
	}, []string{"state"})
	m.SnapshotErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_snapshot_errors_total",
		Help: "Snapshot computations that fell back to a stale snapshot.",
	})
	m.SnapshotLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_snapshot_latency_seconds",
		Help:    "Latency of snapshot computation per tick.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
	m.SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_sessions_active",
		Help: "Playback sessions currently registered.",
	})

	m.registry.MustRegister(
		m.TicksTotal,
		m.PredictionsTotal,
		m.SnapshotErrors,
		m.SnapshotLatency,
		m.SessionsActive,
	)
	return m
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// #endregion metrics
