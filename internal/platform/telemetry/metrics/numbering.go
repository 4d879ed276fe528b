package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lims"

// Numbering records counter allocation and release activity.
type Numbering struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewNumbering creates numbering metrics and registers them on reg.
func NewNumbering(reg prometheus.Registerer) (*Numbering, error) {
	if reg == nil {
		return nil, fmt.Errorf("metrics registerer is required")
	}
	m := &Numbering{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "numbering",
			Name:      "operations_total",
			Help:      "Counter operations by operation, category, and outcome.",
		}, []string{"operation", "category", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "numbering",
			Name:      "operation_duration_seconds",
			Help:      "Counter operation latency including transaction retries.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}, []string{"operation"}),
	}
	for _, collector := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register numbering metrics: %w", err)
		}
	}
	return m, nil
}

// Record observes one finished operation. A nil receiver is a no-op.
func (m *Numbering) Record(operation string, category string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, category, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g in Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
