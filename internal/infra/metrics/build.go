package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "billing_build_info",
		Help: "Always 1. Labels carry the build and the provider client and settlement currency it runs with.",
	},
	[]string{"version", "commit", "provider", "currency"},
)

// SetBuildInfo publishes the build identity. provider is "paystack" for the
// live client and "noop" for the in-memory one.
func SetBuildInfo(version, commit, provider, currency string) {
	buildInfo.WithLabelValues(version, commit, provider, strings.ToUpper(currency)).Set(1)
}
