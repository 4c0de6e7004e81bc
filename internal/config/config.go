package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"paystack-billing/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	BaseURL        string        `yaml:"base_url" env:"BILLING_BASE_URL"`
	BasePath       string        `yaml:"base_path"`
	TrustedOrigins []string      `yaml:"trusted_origins" env:"BILLING_TRUSTED_ORIGINS" envSeparator:","`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type DatabaseConfig struct {
	URL           string `yaml:"url" env:"DATABASE_URL"`
	MaxConns      int32  `yaml:"max_conns"`
	MigrationsDir string `yaml:"migrations_dir"`
	AutoMigrate   bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url" env:"REDIS_URL"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	DedupTTL  time.Duration `yaml:"dedup_ttl"`
}

type PaystackConfig struct {
	SecretKey     string        `yaml:"secret_key" env:"PAYSTACK_SECRET_KEY"`
	WebhookSecret string        `yaml:"webhook_secret" env:"PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

type SubscriptionConfig struct {
	Enabled                  bool         `yaml:"enabled"`
	RequireEmailVerification bool         `yaml:"require_email_verification"`
	Plans                    []model.Plan `yaml:"plans"`
}

type OrganizationConfig struct {
	Enabled bool `yaml:"enabled"`
}

type BillingConfig struct {
	Currency                 string             `yaml:"currency"`
	TrialAuthorizationAmount int64              `yaml:"trial_authorization_amount"`
	MinimumAmounts           map[string]int64   `yaml:"minimum_amounts"` // per currency, "default" as fallback
	PlanCodeRequiresAmount   *bool              `yaml:"plan_code_requires_amount"`
	CreateCustomerOnSignUp   bool               `yaml:"create_customer_on_signup"`
	Subscription             SubscriptionConfig `yaml:"subscription"`
	Organization             OrganizationConfig `yaml:"organization"`
	Products                 []model.Product    `yaml:"products"`
}

type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer     string `yaml:"issuer"`
	CookieName string `yaml:"cookie_name"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key" env:"SECURITY_ENCRYPTION_KEY"`
}

type TelegramConfig struct {
	Token    string  `yaml:"token" env:"TELEGRAM_TOKEN"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	Language string  `yaml:"language"` // locale of operator messages, default en
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RateLimitConfig struct {
	InitializePerMinute int `yaml:"initialize_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Paystack  PaystackConfig  `yaml:"paystack"`
	Billing   BillingConfig   `yaml:"billing"`
	Auth      AuthConfig      `yaml:"auth"`
	Security  SecurityConfig  `yaml:"security"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays environment variables,
// applies defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/paystack"
	}
	c.Server.BasePath = "/" + strings.Trim(c.Server.BasePath, "/")
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "migrations"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "billing"
	}
	if c.Redis.DedupTTL <= 0 {
		c.Redis.DedupTTL = 24 * time.Hour
	}
	if c.Paystack.Timeout <= 0 {
		c.Paystack.Timeout = 15 * time.Second
	}
	if c.Paystack.WebhookSecret == "" {
		// Paystack signs webhooks with the account secret key.
		c.Paystack.WebhookSecret = c.Paystack.SecretKey
	}
	c.Billing.Currency = strings.ToUpper(strings.TrimSpace(c.Billing.Currency))
	if c.Billing.Currency == "" {
		c.Billing.Currency = "NGN"
	}
	if c.Billing.TrialAuthorizationAmount <= 0 {
		c.Billing.TrialAuthorizationAmount = 5000
	}
	if c.Billing.MinimumAmounts == nil {
		c.Billing.MinimumAmounts = map[string]int64{}
	}
	if _, ok := c.Billing.MinimumAmounts["default"]; !ok {
		c.Billing.MinimumAmounts["default"] = 5000
	}
	if c.Billing.PlanCodeRequiresAmount == nil {
		yes := true
		c.Billing.PlanCodeRequiresAmount = &yes
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "session_token"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Paystack.SecretKey == "" && !c.Runtime.Dev {
		return errors.New("paystack.secret_key is required")
	}
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute url: %q", c.Server.BaseURL)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when redis.enabled")
	}
	if c.Auth.JWTSecret == "" && !c.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	seen := make(map[string]struct{}, len(c.Billing.Subscription.Plans))
	for i := range c.Billing.Subscription.Plans {
		p := &c.Billing.Subscription.Plans[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("billing.subscription.plans[%d]: %w", i, err)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("billing.subscription.plans: duplicate plan %q", p.Name)
		}
		seen[key] = struct{}{}
	}
	for i := range c.Billing.Products {
		if err := c.Billing.Products[i].Validate(); err != nil {
			return fmt.Errorf("billing.products[%d]: %w", i, err)
		}
	}
	return nil
}

// MinimumAmount returns the plan-code amount floor for currency.
func (b BillingConfig) MinimumAmount(currency string) int64 {
	if v, ok := b.MinimumAmounts[strings.ToUpper(currency)]; ok {
		return v
	}
	return b.MinimumAmounts["default"]
}
