package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		verifyRequests,
		verifyDuration,
	)
}

var (
	// result: success|failed|abandoned|pending|unknown|error
	verifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_verify_requests_total",
			Help: "Count of transaction verifications by result.",
		},
		[]string{"result"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_verify_duration_seconds",
			Help:    "Duration of transaction verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)

func ObserveVerify(result string, start time.Time) {
	r := norm(result)
	verifyRequests.WithLabelValues(r).Inc()
	verifyDuration.WithLabelValues(r).Observe(since(start))
}
