package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	List(ctx context.Context, referenceID string) ([]*model.Subscription, error)
	// Disable stops renewal. Status stays as it is until the provider reports
	// the period end through the webhook.
	Disable(ctx context.Context, req ToggleRequest) (*model.Subscription, error)
	Enable(ctx context.Context, req ToggleRequest) (*model.Subscription, error)
	ManageLink(ctx context.Context, referenceID, subscriptionCode string) (string, error)
}

// ToggleRequest identifies a subscription owned by ReferenceID. SubscriptionCode
// is the provider code, or the local id for locally billed subscriptions; when
// empty the reference's current subscription is used.
type ToggleRequest struct {
	ReferenceID      string `json:"referenceId"`
	SubscriptionCode string `json:"subscriptionCode"`
	EmailToken       string `json:"emailToken,omitempty"`
}

type subscriptionUC struct {
	Deps
	log *zerolog.Logger
}

func NewSubscriptionUseCase(deps Deps, logger *zerolog.Logger) (*subscriptionUC, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &subscriptionUC{Deps: deps, log: logger}, nil
}

func (u *subscriptionUC) List(ctx context.Context, referenceID string) ([]*model.Subscription, error) {
	return u.Subscriptions.ListByReferenceID(ctx, nil, referenceID)
}

var errSubscriptionNotFound = domain.BadRequest(domain.CodeSubscriptionNotFound, "subscription not found")

// locate loads the subscription and checks it belongs to referenceID. Foreign
// rows are reported as missing.
func (u *subscriptionUC) locate(ctx context.Context, referenceID, code string) (*model.Subscription, error) {
	code = strings.TrimSpace(code)
	var (
		sub *model.Subscription
		err error
	)
	if code == "" {
		sub, err = u.Subscriptions.FindEffective(ctx, nil, referenceID)
	} else {
		sub, err = u.Subscriptions.FindByPaystackCode(ctx, nil, code)
		if errors.Is(err, domain.ErrNotFound) {
			sub, err = u.Subscriptions.FindByID(ctx, nil, code)
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	if sub.ReferenceID != referenceID {
		return nil, errSubscriptionNotFound
	}
	return sub, nil
}

// emailToken finds the token the provider needs to toggle sub: the caller's,
// then the stored one, then a fresh fetch.
func (u *subscriptionUC) emailToken(ctx context.Context, sub *model.Subscription, given string) string {
	if t := strings.TrimSpace(given); t != "" {
		return t
	}
	if t := u.open(sub.PaystackEmailToken); t != "" {
		return t
	}
	ps, err := u.Provider.FetchSubscription(ctx, sub.PaystackSubscriptionCode)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("subscription_id", sub.ID).Msg("fetch subscription for email token")
		return ""
	}
	if ps.EmailToken != "" {
		if err := u.Subscriptions.SetEmailToken(ctx, nil, sub.ID, u.seal(ps.EmailToken)); err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Msg("store email token")
		}
	}
	return ps.EmailToken
}

func (u *subscriptionUC) Disable(ctx context.Context, req ToggleRequest) (*model.Subscription, error) {
	return u.toggle(ctx, req, true)
}

func (u *subscriptionUC) Enable(ctx context.Context, req ToggleRequest) (*model.Subscription, error) {
	return u.toggle(ctx, req, false)
}

func (u *subscriptionUC) toggle(ctx context.Context, req ToggleRequest, cancel bool) (*model.Subscription, error) {
	sub, err := u.locate(ctx, req.ReferenceID, req.SubscriptionCode)
	if err != nil {
		return nil, err
	}
	l := logging.With(ctx, u.log).With().Str("subscription_id", sub.ID).Bool("cancel", cancel).Logger()

	failCode := domain.CodeFailedToEnableSubscription
	if cancel {
		failCode = domain.CodeFailedToDisableSubscription
	}

	if sub.ProviderManaged() {
		token := u.emailToken(ctx, sub, req.EmailToken)
		if token == "" {
			return nil, domain.BadRequest(domain.CodeEmailTokenRequired, "email token is required")
		}
		if cancel {
			err = u.Provider.DisableSubscription(ctx, sub.PaystackSubscriptionCode, token)
		} else {
			err = u.Provider.EnableSubscription(ctx, sub.PaystackSubscriptionCode, token)
		}
		if err != nil {
			l.Error().Err(err).Msg("provider toggle failed")
			return nil, domain.BadRequest(failCode, "provider rejected the request")
		}
	}

	var status *model.SubscriptionStatus
	if !cancel && sub.Status == model.SubscriptionStatusNonRenewing {
		active := model.SubscriptionStatusActive
		status = &active
	}
	ok, err := u.Subscriptions.SetCancelAtPeriodEnd(ctx, nil, sub.ID, sub.ReferenceID, cancel, status)
	if err != nil {
		l.Error().Err(err).Msg("update cancel_at_period_end")
		return nil, domain.BadRequest(failCode, "failed to update subscription")
	}
	if !ok {
		return nil, errSubscriptionNotFound
	}
	sub.CancelAtPeriodEnd = cancel
	if status != nil {
		sub.Status = *status
		metrics.IncSubscriptionTransition(*status, "enable")
	}
	l.Info().Bool("provider", sub.ProviderManaged()).Msg("subscription renewal toggled")
	return sub, nil
}

func (u *subscriptionUC) ManageLink(ctx context.Context, referenceID, subscriptionCode string) (string, error) {
	sub, err := u.locate(ctx, referenceID, subscriptionCode)
	if err != nil {
		return "", err
	}
	if !sub.ProviderManaged() {
		return "", errSubscriptionNotFound
	}
	link, err := u.Provider.ManageLink(ctx, sub.PaystackSubscriptionCode)
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("subscription_id", sub.ID).Msg("provider manage link failed")
		return "", domain.BadRequest(domain.CodeFailedToGetManageLink, "failed to get manage link")
	}
	return link, nil
}
