package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolEmptyAcquires) }

// PoolSnapshot is a point-in-time view of the Postgres pool behind the
// transaction and subscription repositories.
type PoolSnapshot struct {
	Total, Idle, InUse, Max int32
	EmptyAcquires           int64
}

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_db_pool_connections",
			Help: "Connections in the pool serving billing reads and writes, by state.",
		},
		[]string{"state"}, // total, idle, in_use, max
	)
	dbPoolEmptyAcquires = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billing_db_pool_empty_acquires",
		Help: "Acquires since start that had to wait because every connection was busy.",
	})
)

// SetDBPoolStats is called on every scrape.
func SetDBPoolStats(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolEmptyAcquires.Set(float64(s.EmptyAcquires))
}
