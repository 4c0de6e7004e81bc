package repository

import (
	"context"
	"time"

	"paystack-billing/internal/domain/model"
)

// ConfirmUpdate is applied to a subscription awaiting its first successful charge.
type ConfirmUpdate struct {
	Status       model.SubscriptionStatus
	PeriodStart  time.Time
	PeriodEnd    *time.Time
	CustomerCode string
}

// ProviderAttachment links a local subscription to the provider's recurring one.
type ProviderAttachment struct {
	SubscriptionCode string
	EmailToken       string
	CustomerCode     string
	Status           model.SubscriptionStatus
}

// SubscriptionRepository is the port for billing subscriptions. Every mutating
// method carries its own status predicate and reports whether a row changed.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByPaystackCode(ctx context.Context, tx Tx, code string) (*model.Subscription, error)
	FindByTransactionReference(ctx context.Context, tx Tx, reference, referenceID string) (*model.Subscription, error)
	FindEffective(ctx context.Context, tx Tx, referenceID string) (*model.Subscription, error)
	ListByReferenceID(ctx context.Context, tx Tx, referenceID string) ([]*model.Subscription, error)
	ListByCustomerCode(ctx context.Context, tx Tx, customerCode string) ([]*model.Subscription, error)
	HasTrialHistory(ctx context.Context, tx Tx, referenceID string) (bool, error)

	// Confirm updates the row owned by referenceID for reference, only while it
	// is incomplete or an unconfirmed trial.
	Confirm(ctx context.Context, tx Tx, reference, referenceID string, upd ConfirmUpdate) (bool, error)
	Attach(ctx context.Context, tx Tx, id string, att ProviderAttachment) (bool, error)
	// CancelByPaystackCode cancels the row unless already canceled and returns
	// the row as it was before the update.
	CancelByPaystackCode(ctx context.Context, tx Tx, code string) (*model.Subscription, bool, error)
	UpdateStatusByPaystackCode(ctx context.Context, tx Tx, code string, status model.SubscriptionStatus) (bool, error)
	SetCancelAtPeriodEnd(ctx context.Context, tx Tx, id, referenceID string, cancel bool, status *model.SubscriptionStatus) (bool, error)
	SetEmailToken(ctx context.Context, tx Tx, id, token string) error
}
