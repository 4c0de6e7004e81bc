package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"paystack-billing/internal/config"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/infra/worker"
	"paystack-billing/internal/usecase"
)

// Dispatcher runs tasks off the request path. *worker.Pool satisfies it.
type Dispatcher interface {
	Submit(task worker.Task) error
}

// Collaborators are the infrastructure pieces the billing engine runs on.
// Orgs, TxManager, Cipher, Limiter, Locker, Deliveries, Notifier and
// Dispatcher are optional.
type Collaborators struct {
	Transactions  repository.TransactionRepository
	Subscriptions repository.SubscriptionRepository
	Users         repository.UserRepository
	Orgs          repository.OrganizationRepository
	TxManager     repository.TransactionManager
	Deliveries    repository.DeliveryLog

	Provider adapter.PaymentProvider
	Verifier adapter.WebhookVerifier
	Cipher   adapter.Cipher
	Limiter  adapter.RateLimiter
	Locker   adapter.Locker
	Notifier adapter.Notifier

	Dispatcher Dispatcher
}

// EntityHooks are the before/after hooks the host identity system calls on
// its own entity writes. A non-nil error from a before hook must abort the write.
type EntityHooks struct {
	BeforeMemberCreate     func(ctx context.Context, orgID string) error
	BeforeInvitationCreate func(ctx context.Context, orgID string) error
	BeforeTeamCreate       func(ctx context.Context, orgID string) error
	// AfterUserCreate never fails the sign-up; provider errors are logged.
	AfterUserCreate func(ctx context.Context, user *model.User) error
}

// Billing is everything the HTTP layer and the host need from the engine.
type Billing struct {
	Catalog       *usecase.Catalog
	References    *usecase.ReferenceAuthorizer
	Transactions  usecase.TransactionUseCase
	Subscriptions usecase.SubscriptionUseCase
	Webhooks      usecase.WebhookUseCase
	Customers     usecase.CustomerUseCase
	Limits        *usecase.LimitEnforcer
	Entity        EntityHooks
	Currency      string
}

// NewBilling builds the engine from configuration. hooks are the deployer's
// callbacks; the operator notifier is chained after them.
func NewBilling(cfg *config.Config, c Collaborators, hooks usecase.Hooks, logger *zerolog.Logger) (*Billing, error) {
	if cfg == nil {
		return nil, errors.New("application: config is nil")
	}
	if c.Verifier == nil {
		return nil, errors.New("application: webhook verifier is required")
	}
	orgs := c.Orgs
	if !cfg.Billing.Organization.Enabled {
		orgs = nil
	}

	catalog := usecase.NewCatalog(
		usecase.StaticPlans(cfg.Billing.Subscription.Plans),
		usecase.StaticProducts(cfg.Billing.Products),
	)
	hooks = withNotifier(hooks, c.Notifier, c.Dispatcher, logger)

	deps := usecase.Deps{
		Transactions:  c.Transactions,
		Subscriptions: c.Subscriptions,
		Users:         c.Users,
		Orgs:          orgs,
		TxManager:     c.TxManager,
		Provider:      c.Provider,
		Catalog:       catalog,
		Cipher:        c.Cipher,
		Limiter:       c.Limiter,
		Locker:        c.Locker,
		Hooks:         hooks,
	}
	refs := usecase.NewReferenceAuthorizer(hooks, orgs, logger)

	txs, err := usecase.NewTransactionUseCase(deps, Options(cfg), refs, logger)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	subs, err := usecase.NewSubscriptionUseCase(deps, logger)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}
	webhooks, err := usecase.NewWebhookUseCase(deps, c.Verifier, c.Deliveries, logger)
	if err != nil {
		return nil, fmt.Errorf("webhooks: %w", err)
	}
	customers, err := usecase.NewCustomerUseCase(deps, cfg.Runtime.Dev, logger)
	if err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}

	b := &Billing{
		Catalog:       catalog,
		References:    refs,
		Transactions:  txs,
		Subscriptions: subs,
		Webhooks:      webhooks,
		Customers:     customers,
		Currency:      cfg.Billing.Currency,
	}
	if orgs != nil {
		b.Limits = usecase.NewLimitEnforcer(c.Subscriptions, orgs, catalog, logger)
	}
	b.Entity = b.entityHooks(cfg.Billing.CreateCustomerOnSignUp, logger)
	return b, nil
}

// Options maps the billing section of cfg onto use case options.
func Options(cfg *config.Config) usecase.BillingOptions {
	requiresAmount := true
	if cfg.Billing.PlanCodeRequiresAmount != nil {
		requiresAmount = *cfg.Billing.PlanCodeRequiresAmount
	}
	return usecase.BillingOptions{
		BaseURL:                  cfg.Server.BaseURL,
		TrustedOrigins:           cfg.Server.TrustedOrigins,
		Currency:                 cfg.Billing.Currency,
		TrialAuthorizationAmount: cfg.Billing.TrialAuthorizationAmount,
		MinimumAmounts:           cfg.Billing.MinimumAmounts,
		PlanCodeRequiresAmount:   requiresAmount,
		SubscriptionsEnabled:     cfg.Billing.Subscription.Enabled,
		RequireEmailVerification: cfg.Billing.Subscription.RequireEmailVerification,
		OrganizationsEnabled:     cfg.Billing.Organization.Enabled,
		Dev:                      cfg.Runtime.Dev,
	}
}

func (b *Billing) entityHooks(createCustomer bool, logger *zerolog.Logger) EntityHooks {
	var h EntityHooks
	if b.Limits != nil {
		seat := func(ctx context.Context, orgID string) error {
			return b.Limits.CheckSeatLimit(ctx, orgID, 1)
		}
		h.BeforeMemberCreate = seat
		h.BeforeInvitationCreate = seat
		h.BeforeTeamCreate = func(ctx context.Context, orgID string) error {
			maxTeams, limited, err := b.Limits.TeamLimit(ctx, orgID)
			if err != nil || !limited {
				return err
			}
			return b.Limits.CheckTeamLimit(ctx, orgID, maxTeams)
		}
	}
	if createCustomer {
		h.AfterUserCreate = func(ctx context.Context, user *model.User) error {
			if _, err := b.Customers.EnsureCustomer(ctx, user); err != nil {
				logging.With(ctx, logger).Warn().Err(err).Msg("create provider customer on sign-up")
			}
			return nil
		}
	}
	return h
}

// withNotifier chains operator notifications after the deployer's hooks.
// Notifications run on d when one is given so a slow chat API never delays
// a checkout or a webhook acknowledgement.
func withNotifier(h usecase.Hooks, n adapter.Notifier, d Dispatcher, logger *zerolog.Logger) usecase.Hooks {
	if n == nil {
		return h
	}
	h.OnSubscriptionComplete = chain(h.OnSubscriptionComplete, notify(n.SubscriptionComplete, d, logger))
	h.OnSubscriptionCancel = chain(h.OnSubscriptionCancel, notify(n.SubscriptionCanceled, d, logger))
	h.OnTrialStart = chain(h.OnTrialStart, notify(n.TrialStarted, d, logger))
	return h
}

type subscriptionHook = func(ctx context.Context, ev usecase.SubscriptionEvent) error

func chain(first, second subscriptionHook) subscriptionHook {
	if first == nil {
		return second
	}
	return func(ctx context.Context, ev usecase.SubscriptionEvent) error {
		err := first(ctx, ev)
		if nerr := second(ctx, ev); err == nil {
			err = nerr
		}
		return err
	}
}

func notify(send func(context.Context, *model.Subscription, *model.Plan) error, d Dispatcher, logger *zerolog.Logger) subscriptionHook {
	return func(ctx context.Context, ev usecase.SubscriptionEvent) error {
		if ev.Subscription == nil {
			return nil
		}
		if d == nil {
			return send(ctx, ev.Subscription, ev.Plan)
		}
		sub := *ev.Subscription
		var plan *model.Plan
		if ev.Plan != nil {
			p := *ev.Plan
			plan = &p
		}
		traceID := logging.TraceIDFrom(ctx)
		err := d.Submit(func(ctx context.Context) error {
			return send(logging.WithTraceID(ctx, traceID), &sub, plan)
		})
		if err != nil {
			logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("notification dropped")
		}
		return nil
	}
}
