//go:build !integration

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"paystack-billing/internal/config"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/infra/api/apiv1"
	"paystack-billing/internal/infra/metrics"
	"paystack-billing/internal/usecase"
)

type nopTransactions struct{ usecase.TransactionUseCase }

func (nopTransactions) List(ctx context.Context, referenceID string) ([]*model.Transaction, error) {
	return nil, nil
}

type nopSubscriptions struct{ usecase.SubscriptionUseCase }

func (nopSubscriptions) List(ctx context.Context, referenceID string) ([]*model.Subscription, error) {
	return nil, nil
}

type nopWebhooks struct{}

func (nopWebhooks) HandleWebhook(ctx context.Context, body []byte, signature string) error { return nil }

type staticSessions struct{}

func (staticSessions) Session(r *http.Request) (*model.Session, error) {
	return &model.Session{ID: "s", User: &model.User{ID: "usr_1"}}, nil
}

// metrics.MustRegister only fills the first registry it sees.
var testRegistry = func() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	return reg
}()

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			BaseURL:        "https://app.example.com",
			BasePath:       "/paystack",
			TrustedOrigins: []string{"https://billing.example.com"},
			RequestTimeout: time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T, health map[string]HealthCheck) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	srv, err := apiv1.NewServer(apiv1.Deps{
		Transactions:  nopTransactions{},
		Subscriptions: nopSubscriptions{},
		Webhooks:      nopWebhooks{},
		References:    usecase.NewReferenceAuthorizer(usecase.Hooks{}, nil, &logger),
		Catalog:       usecase.NewCatalog(usecase.StaticPlans(nil), nil),
		Sessions:      staticSessions{},
		Currency:      "NGN",
	}, &logger)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(testConfig(), RouterDeps{
		Server:   srv,
		Gatherer: testRegistry,
		Pool: func() metrics.PoolSnapshot {
			return metrics.PoolSnapshot{Total: 4, Idle: 3, InUse: 1, Max: 10, EmptyAcquires: 2}
		},
		Health: health,
	}, &logger)
}

func TestRouter_TrustedOrigin(t *testing.T) {
	h := newTestRouter(t, nil)
	tests := []struct {
		origin string
		want   int
	}{
		{"", http.StatusOK},
		{"https://app.example.com", http.StatusOK},
		{"https://BILLING.example.com", http.StatusOK},
		{"https://evil.example.com", http.StatusForbidden},
		{"http://app.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/paystack/list-subscriptions", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRouter_PublicRoutesSkipOriginCheck(t *testing.T) {
	h := newTestRouter(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/paystack/get-config", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_TraceID(t *testing.T) {
	h := newTestRouter(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("trace id = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-Id", strings.Repeat("x", 100))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("X-Request-Id"); len(got) != 36 {
		t.Fatalf("expected a minted uuid, got %q", got)
	}
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`billing_db_pool_connections{state="in_use"} 1`,
		`billing_db_pool_connections{state="max"} 10`,
		"billing_db_pool_empty_acquires 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q", want)
		}
	}
}

func TestRecover(t *testing.T) {
	logger := zerolog.Nop()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover(&logger))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}
