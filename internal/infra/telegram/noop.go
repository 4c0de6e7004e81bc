package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of sending them. Used when no bot
// token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) SubscriptionComplete(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.note("subscription_complete", sub)
}

func (n *NoopNotifier) SubscriptionCanceled(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.note("subscription_canceled", sub)
}

func (n *NoopNotifier) TrialStarted(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.note("trial_started", sub)
}

func (n *NoopNotifier) note(kind string, sub *model.Subscription) error {
	if sub == nil {
		return nil
	}
	n.log.Debug().
		Str("notification", kind).
		Str("subscription_id", sub.ID).
		Str("reference_id", sub.ReferenceID).
		Msg("[noop-telegram] notification")
	return nil
}
