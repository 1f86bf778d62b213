package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scoring and trading
var (
	// SentimentEvaluations counts dashboard sentiment results by label
	// ("unavailable" when no sample qualified).
	SentimentEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_sentiment_evaluations_total",
			Help: "Sentiment evaluations by resulting label",
		},
		[]string{"label"},
	)

	// OrdersTotal counts simulated orders by side and outcome.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_orders_total",
			Help: "Simulated orders by side and status",
		},
		[]string{"side", "status"},
	)
)

// Jobs
var (
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_job_runs_total",
			Help: "Per-symbol job runs by job and status",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_job_duration_seconds",
			Help:    "Per-symbol job duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"job"},
	)
)

// Realtime and HTTP
var (
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concierge_realtime_subscribers",
			Help: "Current number of insight subscribers",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
)

// Status labels shared by counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StatusOf maps an error to a status label.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
