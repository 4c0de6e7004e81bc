package metrics

import (
	"paystack-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		trialsStartedTotal,
		limitRejectionsTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_subscription_transitions_total",
			Help: "Subscription status changes by target status and trigger.",
		},
		[]string{"status", "source"}, // source: verify|webhook|api
	)

	trialsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_trials_started_total",
			Help: "Total number of free trials started at checkout.",
		},
	)

	limitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_limit_rejections_total",
			Help: "Member, invitation and team creations rejected by plan limits.",
		},
		[]string{"limit"}, // seats|teams
	)
)

func IncSubscriptionTransition(status model.SubscriptionStatus, source string) {
	subscriptionTransitionsTotal.WithLabelValues(string(status), norm(source)).Inc()
}

func IncTrialStarted() {
	trialsStartedTotal.Inc()
}

func IncLimitRejection(limit string) {
	limitRejectionsTotal.WithLabelValues(norm(limit)).Inc()
}
