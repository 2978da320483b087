package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncTransition("process", "COMPLETED")
	m.IncTransition("process", "COMPLETED")
	m.IncRejection("create", "BUSINESS_RULE_VIOLATION")
	m.ObserveCommit(40 * time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "sportshub_payment_transitions_total", "status", "COMPLETED")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "sportshub_checkout_rejections_total", "code", "BUSINESS_RULE_VIOLATION")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	mf := findMetricFamily(mfs, "sportshub_checkout_commit_duration_seconds")
	require.NotNil(t, mf)
	require.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
	require.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.IncTransition("process", "COMPLETED")
	m.IncRejection("create", "x")
	m.ObserveCommit(time.Second)

	empty := NewCheckoutMetrics(nil)
	empty.IncTransition("refund", "REFUNDED")
}
