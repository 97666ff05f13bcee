package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded by an SQLExecutor
type Metrics struct {
	statements *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates and registers the executor collectors. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relquery",
			Name:      "statements_total",
			Help:      "Number of statements sent to storage, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relquery",
			Name:      "statement_duration_seconds",
			Help:      "Time spent executing statements.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.statements, m.duration)
	}
	return m
}

func (m *Metrics) observe(err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.statements.WithLabelValues(outcome).Inc()
	m.duration.Observe(took.Seconds())
}
