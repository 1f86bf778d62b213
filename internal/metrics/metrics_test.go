package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		SentimentEvaluations,
		OrdersTotal,
		JobRuns,
		JobDuration,
		RealtimeSubscribers,
		HTTPRequests,
	}
	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)
		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterMetrics(t *testing.T) {
	tests := []struct {
		name    string
		counter *prometheus.CounterVec
		labels  []string
	}{
		{"sentiment", SentimentEvaluations, []string{"BUY"}},
		{"orders", OrdersTotal, []string{"BUY", StatusSuccess}},
		{"jobs", JobRuns, []string{"ingest", StatusError}},
		{"http", HTTPRequests, []string{"GET", "/healthz", "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.counter.WithLabelValues(tt.labels...)
			before := testutil.ToFloat64(c)
			c.Inc()
			assert.Equal(t, before+1, testutil.ToFloat64(c))
		})
	}
}

func TestGauge(t *testing.T) {
	before := testutil.ToFloat64(RealtimeSubscribers)
	RealtimeSubscribers.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RealtimeSubscribers))
	RealtimeSubscribers.Dec()
	assert.Equal(t, before, testutil.ToFloat64(RealtimeSubscribers))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("x")))
}
