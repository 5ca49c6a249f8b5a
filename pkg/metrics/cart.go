package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart engine activity.
type CartMetrics struct {
	operations  *prometheus.CounterVec
	resyncs     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_total",
		Help: "Cart operations by outcome code.",
	}, []string{"operation", "outcome"})
	resyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_resync_total",
		Help: "Resynchronizing fetches issued after a mutation.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart operations in seconds, including resync.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_checkout_transition_total",
		Help: "Checkout state machine transitions.",
	}, []string{"to"})
	reg.MustRegister(operations, resyncs, duration, transitions)
	return &CartMetrics{
		operations:  operations,
		resyncs:     resyncs,
		duration:    duration,
		transitions: transitions,
	}
}

// ObserveOperation records the outcome and duration of one operation.
func (c *CartMetrics) ObserveOperation(op, outcome string, d time.Duration) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(op), normalizeOutcome(outcome)).Inc()
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

// IncResync counts a resynchronizing fetch triggered by op.
func (c *CartMetrics) IncResync(op string) {
	if c == nil || c.resyncs == nil {
		return
	}
	c.resyncs.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCheckoutTransition counts a checkout state change.
func (c *CartMetrics) IncCheckoutTransition(to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func normalizeOutcome(v string) string {
	if v == "" {
		return "ok"
	}
	return v
}
