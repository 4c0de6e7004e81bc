package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transactionsInitializedTotal,
		transactionsTotal,
		transactionsRevenueTotal,
	)
}

var (
	transactionsInitializedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_transactions_initialized_total",
			Help: "Transactions initialized with the provider by checkout mode.",
		},
		[]string{"mode"}, // plan|trial|product|amount
	)

	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_transactions_total",
			Help: "Transaction status changes recorded locally.",
		},
		[]string{"status"},
	)

	transactionsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_revenue_minor_total",
			Help: "Sum of successful transaction amounts in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncTransactionInitialized(mode string) {
	transactionsInitializedTotal.WithLabelValues(norm(mode)).Inc()
}

func IncTransaction(status string) {
	transactionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenue(currency string, amount int64) {
	transactionsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
