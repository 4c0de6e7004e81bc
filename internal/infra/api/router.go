package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"paystack-billing/internal/config"
	"paystack-billing/internal/infra/api/apiv1"
	"paystack-billing/internal/infra/metrics"
)

// PoolStats reports database pool usage for the metrics scrape.
type PoolStats func() metrics.PoolSnapshot

// HealthCheck returns an error when a dependency is unusable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Server   *apiv1.Server
	Gatherer prometheus.Gatherer // nil disables /metrics
	Pool     PoolStats
	Health   map[string]HealthCheck
}

// NewRouter builds the service's HTTP handler: the billing endpoints under
// cfg.Server.BasePath plus /health and the metrics endpoint.
func NewRouter(cfg *config.Config, d RouterDeps, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(logger),
		RequestLog(logger),
		Recover(logger),
		Timeout(cfg.Server.RequestTimeout),
	)

	r.Get("/health", healthHandler(d.Health, logger))

	if cfg.Metrics.Enabled && d.Gatherer != nil {
		h := promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
		r.Get(cfg.Metrics.Path, func(w http.ResponseWriter, req *http.Request) {
			if d.Pool != nil {
				metrics.SetDBPoolStats(d.Pool())
			}
			h.ServeHTTP(w, req)
		})
	}

	apiv1.RegisterAPIV1(r, d.Server, cfg.Server.BasePath,
		TrustedOrigin(cfg.Server.BaseURL, cfg.Server.TrustedOrigins, logger))
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Str("check", name).Msg("health check failed")
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		writeJSON(w, status, resp)
	}
}
