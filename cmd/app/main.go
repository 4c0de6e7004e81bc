// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"paystack-billing/internal/application"
	"paystack-billing/internal/config"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/adapters/paystack"
	"paystack-billing/internal/infra/api"
	"paystack-billing/internal/infra/api/apiv1"
	"paystack-billing/internal/infra/db/migrate"
	pg "paystack-billing/internal/infra/db/postgres"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/infra/metrics"
	red "paystack-billing/internal/infra/redis"
	"paystack-billing/internal/infra/security"
	"paystack-billing/internal/infra/telegram"
	"paystack-billing/internal/infra/worker"
	"paystack-billing/internal/usecase"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider without a key, console logs)")
	flag.Parse()

	if *devMode {
		// .env is a convenience for local runs only.
		_ = godotenv.Load()
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate.Up(cfg.Database.MigrationsDir, cfg.Database.URL, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
	}

	health := map[string]api.HealthCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}

	// ---- Redis (optional) ----
	var (
		limiter    adapter.RateLimiter
		locker     adapter.Locker
		deliveries repository.DeliveryLog
	)
	if cfg.Redis.Enabled {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		if cfg.RateLimit.InitializePerMinute > 0 {
			limiter = red.NewRateLimiter(redisClient, cfg.RateLimit.InitializePerMinute, time.Minute)
		}
		locker = red.NewLocker(redisClient)
		deliveries = red.NewDeliveryLog(redisClient, cfg.Redis.DedupTTL)
		health["redis"] = redisClient.Ping
	}

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("security.encryption_key must be 32 bytes")
		}
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Paystack ----
	var client any
	if cfg.Paystack.SecretKey == "" {
		logger.Warn().Msg("paystack.secret_key empty; using the in-memory noop client")
		client = paystack.NewNoopClient()
	} else {
		client, err = paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("paystack client")
		}
	}
	provider, err := paystack.NewAdapter(client)
	if err != nil {
		logger.Fatal().Err(err).Msg("paystack adapter")
	}
	signer := paystack.NewSigner(cfg.Paystack.WebhookSecret)
	metrics.SetBuildInfo(version, commit, provider.Name(), cfg.Billing.Currency)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)

	// ---- Operator notifications ----
	var notifier adapter.Notifier
	if cfg.Telegram.Token != "" {
		tn, err := telegram.NewNotifier(&cfg.Telegram, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		notifier = tn
	} else {
		notifier = telegram.NewNoopNotifier(logger)
	}
	notifications := worker.NewPool(2, 10*time.Second, logger)
	notifications.Start(ctx)

	// ---- Billing engine ----
	billing, err := application.NewBilling(cfg, application.Collaborators{
		Transactions:  pg.NewTransactionRepo(pool),
		Subscriptions: pg.NewSubscriptionRepo(pool),
		Users:         userRepo,
		Orgs:          pg.NewOrganizationRepo(pool),
		TxManager:     pg.NewTxManager(pool),
		Deliveries:    deliveries,
		Provider:      provider,
		Verifier:      signer,
		Cipher:        encSvc,
		Limiter:       limiter,
		Locker:        locker,
		Notifier:      notifier,
		Dispatcher:    notifications,
	}, usecase.Hooks{}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("billing")
	}

	// ---- HTTP ----
	srv, err := apiv1.NewServer(apiv1.Deps{
		Transactions:  billing.Transactions,
		Subscriptions: billing.Subscriptions,
		Webhooks:      billing.Webhooks,
		References:    billing.References,
		Catalog:       billing.Catalog,
		Sessions:      api.NewJWTSessions(cfg.Auth, userRepo),
		Currency:      billing.Currency,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api server")
	}
	handler := api.NewRouter(cfg, api.RouterDeps{
		Server:   srv,
		Gatherer: reg,
		Pool:     poolStats(pool),
		Health:   health,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("base_path", cfg.Server.BasePath).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	shutdown(server, notifications, logger)
	cancel()
}

func shutdown(server *http.Server, notifications *worker.Pool, logger *zerolog.Logger) {
	logger.Info().Msg("shutdown requested")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	notifications.Stop()
}

func poolStats(pool *pgxpool.Pool) api.PoolStats {
	return func() metrics.PoolSnapshot {
		s := pool.Stat()
		return metrics.PoolSnapshot{
			Total:         s.TotalConns(),
			Idle:          s.IdleConns(),
			InUse:         s.AcquiredConns(),
			Max:           s.MaxConns(),
			EmptyAcquires: s.EmptyAcquireCount(),
		}
	}
}
