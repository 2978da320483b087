package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks payment lifecycle outcomes and stock rejections.
type CheckoutMetrics struct {
	transitions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	commitDuration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sportshub_payment_transitions_total",
		Help: "Payment status transitions by operation and resulting status.",
	}, []string{"operation", "status"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sportshub_checkout_rejections_total",
		Help: "Checkout attempts rejected before commit, by error code.",
	}, []string{"operation", "code"})
	commitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportshub_checkout_commit_duration_seconds",
		Help:    "Time spent holding row locks while committing a payment.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(transitions, rejections, commitDuration)
	return &CheckoutMetrics{
		transitions:    transitions,
		rejections:     rejections,
		commitDuration: commitDuration,
	}
}

// IncTransition counts a payment reaching status through operation.
func (m *CheckoutMetrics) IncTransition(operation, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), normalizeLabel(status)).Inc()
}

// IncRejection counts a rejected checkout attempt.
func (m *CheckoutMetrics) IncRejection(operation, code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// ObserveCommit records how long the commit transaction took.
func (m *CheckoutMetrics) ObserveCommit(d time.Duration) {
	if m == nil || m.commitDuration == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
}
