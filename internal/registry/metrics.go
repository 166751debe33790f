package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics is an optional core.Metrics implementation backed by
// Prometheus counters/gauges. promauto registers each collector against the
// default registry at construction time, which is what cmd/subtitlectl's
// /metrics endpoint serves.
type promMetrics struct {
	operationsActive prometheus.Gauge
	operationsTotal  *prometheus.CounterVec
	processesActive  prometheus.Gauge
}

// NewPromMetrics builds a core.Metrics backed by the default Prometheus
// registry. Safe to call at most once per process; callers that don't want
// metrics should leave registry.Options.Metrics nil (the default).
func NewPromMetrics() *promMetrics {
	return &promMetrics{
		operationsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subtitlepipe_operations_active",
			Help: "Number of operations currently registered and not yet terminal.",
		}),
		operationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subtitlepipe_operations_total",
			Help: "Total number of operations that reached a terminal state, by state.",
		}, []string{"state"}),
		processesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subtitlepipe_processes_active",
			Help: "Number of child processes (ffmpeg/ffprobe) currently tracked by the registry.",
		}),
	}
}

func (m *promMetrics) OperationStarted() {
	m.operationsActive.Inc()
}

func (m *promMetrics) OperationFinished(state string) {
	m.operationsActive.Dec()
	m.operationsTotal.WithLabelValues(state).Inc()
}

func (m *promMetrics) ProcessSpawned() {
	m.processesActive.Inc()
}

func (m *promMetrics) ProcessExited() {
	m.processesActive.Dec()
}
