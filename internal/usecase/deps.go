package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/logging"
)

// Deps are the collaborators shared by the billing use cases. Orgs, TxManager,
// Cipher, Limiter and Locker may be nil.
type Deps struct {
	Transactions  repository.TransactionRepository
	Subscriptions repository.SubscriptionRepository
	Users         repository.UserRepository
	Orgs          repository.OrganizationRepository
	TxManager     repository.TransactionManager
	Provider      adapter.PaymentProvider
	Catalog       *Catalog
	Cipher        adapter.Cipher
	Limiter       adapter.RateLimiter
	Locker        adapter.Locker
	Hooks         Hooks
}

func (d Deps) validate() error {
	if d.Transactions == nil || d.Subscriptions == nil || d.Users == nil {
		return errors.New("usecase: repositories are required")
	}
	if d.Provider == nil {
		return errors.New("usecase: payment provider is required")
	}
	if d.Catalog == nil {
		return errors.New("usecase: catalog is required")
	}
	return nil
}

// withTx runs fn in a database transaction when a manager is configured and
// directly against the pool otherwise.
func (d Deps) withTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if d.TxManager == nil {
		return fn(ctx, repository.NoTX)
	}
	return d.TxManager.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (d Deps) seal(token string) string {
	if d.Cipher == nil || token == "" {
		return token
	}
	sealed, err := d.Cipher.Encrypt(token)
	if err != nil {
		return ""
	}
	return sealed
}

func (d Deps) open(value string) string {
	if d.Cipher == nil || value == "" {
		return value
	}
	plain, err := d.Cipher.Decrypt(value)
	if err != nil {
		return ""
	}
	return plain
}

// fire runs a lifecycle hook and logs its failure.
func fire[T any](ctx context.Context, log *zerolog.Logger, name string, hook func(context.Context, T) error, ev T) {
	if hook == nil {
		return
	}
	if err := hook(ctx, ev); err != nil {
		logging.With(ctx, log).Warn().Err(err).Str("hook", name).Msg("billing hook failed")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound)
}
