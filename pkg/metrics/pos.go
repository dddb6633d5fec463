package metrics

import "github.com/prometheus/client_golang/prometheus"

// POSMetrics records in-store sale activity.
type POSMetrics struct {
	sales   *prometheus.CounterVec
	replays prometheus.Counter
}

// NewPOSMetrics registers the POS metrics on the provided registerer.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		return &POSMetrics{}
	}
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_total",
		Help: "Point-of-sale transactions by result.",
	}, []string{"result"})
	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_idempotent_replays_total",
		Help: "POS requests answered from a previously stored idempotency key.",
	})
	reg.MustRegister(sales, replays)
	return &POSMetrics{sales: sales, replays: replays}
}

// IncSale increments the sale counter for the given result.
func (p *POSMetrics) IncSale(result string) {
	if p == nil || p.sales == nil {
		return
	}
	p.sales.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReplay increments the idempotent replay counter.
func (p *POSMetrics) IncReplay() {
	if p == nil || p.replays == nil {
		return
	}
	p.replays.Inc()
}
