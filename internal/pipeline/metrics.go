package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks capture pipeline activity.
type Metrics struct {
	captures  prometheus.Counter
	fallbacks *prometheus.CounterVec
	persisted prometheus.Counter
	failures  prometheus.Counter
}

// NewMetrics registers the pipeline metrics on reg. A nil reg registers
// nothing, for tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solaced_captures_total",
			Help: "Total capture pipeline invocations.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solaced_stage_fallbacks_total",
			Help: "Deterministic fallbacks taken, by pipeline stage.",
		}, []string{"stage"}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solaced_tasks_persisted_total",
			Help: "Tasks written to the store by the pipeline.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solaced_persistence_failures_total",
			Help: "Capture runs that failed at the persistence stage.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.captures, m.fallbacks, m.persisted, m.failures)
	}
	return m
}

func (m *Metrics) capture() { m.captures.Inc() }

func (m *Metrics) fallback(stage string) { m.fallbacks.WithLabelValues(stage).Inc() }

func (m *Metrics) taskPersisted() { m.persisted.Inc() }

func (m *Metrics) persistenceFailure() { m.failures.Inc() }
