package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and their outcomes.
type CheckoutMetrics struct {
	duration  *prometheus.HistogramVec
	attempts  *prometheus.CounterVec
	conflicts *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_conflicts_total",
		Help: "Checkout failures caused by concurrent stock or slot updates.",
	}, []string{"kind"})
	reg.MustRegister(duration, attempts, conflicts)
	return &CheckoutMetrics{
		duration:  duration,
		attempts:  attempts,
		conflicts: conflicts,
	}
}

// ObserveDuration records the duration of one checkout attempt.
func (c *CheckoutMetrics) ObserveDuration(result string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncAttempt increments the attempt counter for the given result.
func (c *CheckoutMetrics) IncAttempt(result string) {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncConflict increments the conflict counter for the given kind (stock, slot).
func (c *CheckoutMetrics) IncConflict(kind string) {
	if c == nil || c.conflicts == nil {
		return
	}
	c.conflicts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
