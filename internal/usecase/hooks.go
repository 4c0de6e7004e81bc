package usecase

import (
	"context"

	"paystack-billing/internal/domain/model"
)

// Action names the billing operation a reference authorization is asked for.
type Action string

const (
	ActionInitializeTransaction Action = "initialize-transaction"
	ActionVerifyTransaction     Action = "verify-transaction"
	ActionListSubscriptions     Action = "list-subscriptions"
	ActionListTransactions      Action = "list-transactions"
	ActionDisableSubscription   Action = "disable-subscription"
	ActionEnableSubscription    Action = "enable-subscription"
	ActionManageLink            Action = "get-subscription-manage-link"
)

type AuthorizeReferenceRequest struct {
	User        *model.User
	Session     *model.Session
	ReferenceID string
	Action      Action
}

// SubscriptionEvent is handed to subscription lifecycle hooks. Plan is nil
// when the subscription's plan is no longer in the catalog.
type SubscriptionEvent struct {
	Subscription *model.Subscription
	Plan         *model.Plan
}

type CustomerEvent struct {
	User         *model.User
	CustomerCode string
}

// Hooks are the deployer's extension points. Every field is optional.
// Hook errors are logged by the caller and never change the outcome of the
// operation that fired them.
type Hooks struct {
	AuthorizeReference func(ctx context.Context, req AuthorizeReferenceRequest) (bool, error)

	OnSubscriptionComplete func(ctx context.Context, ev SubscriptionEvent) error
	OnSubscriptionCreated  func(ctx context.Context, ev SubscriptionEvent) error
	OnSubscriptionCancel   func(ctx context.Context, ev SubscriptionEvent) error
	OnTrialStart           func(ctx context.Context, ev SubscriptionEvent) error
	OnCustomerCreate       func(ctx context.Context, ev CustomerEvent) error

	// OnEvent runs after every authenticated webhook delivery, whether or not
	// the sync step succeeded.
	OnEvent func(ctx context.Context, ev model.WebhookEvent) error
}
