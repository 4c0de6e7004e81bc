package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerCallsTotal,
		providerCallDuration,
	)
}

var (
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_provider_calls_total",
			Help: "Calls made to the payment provider by operation and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)

	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_provider_call_duration_seconds",
			Help:    "Latency of payment provider calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "op"},
	)
)

// ObserveProviderCall is meant to be deferred around one provider request.
func ObserveProviderCall(provider, op string, start time.Time, err error) {
	providerCallsTotal.WithLabelValues(norm(provider), norm(op), outcome(err)).Inc()
	providerCallDuration.WithLabelValues(norm(provider), norm(op)).Observe(since(start))
}
