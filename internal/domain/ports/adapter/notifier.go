package adapter

import (
	"context"

	"paystack-billing/internal/domain/model"
)

// Notifier tells operators about billing lifecycle changes.
type Notifier interface {
	SubscriptionComplete(ctx context.Context, sub *model.Subscription, plan *model.Plan) error
	SubscriptionCanceled(ctx context.Context, sub *model.Subscription, plan *model.Plan) error
	TrialStarted(ctx context.Context, sub *model.Subscription, plan *model.Plan) error
}
