package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/infra/metrics"
)

// reconciler applies a confirmed charge to local state. Verify and the
// charge.success webhook both go through it, so whichever arrives first wins
// and the other finds nothing left to change.
type reconciler struct {
	Deps
	log *zerolog.Logger
	now func() time.Time
}

// SettledError reports a successful charge for a transaction that already
// closed as failed or abandoned. The row keeps its status.
type SettledError struct {
	Reference string
	Status    model.TransactionStatus
}

func (e *SettledError) Error() string {
	return fmt.Sprintf("transaction %s already %s", e.Reference, e.Status)
}

// confirmCharge marks t as paid and confirms the subscription that t opened.
// The subscription is matched by t's reference and t's owner, never by the
// reference alone. It reports whether this call confirmed the subscription.
func (r *reconciler) confirmCharge(ctx context.Context, t *model.Transaction, charge *adapter.Charge, source string) (*model.Subscription, bool, error) {
	l := logging.With(ctx, r.log).With().Str("reference", t.Reference).Str("source", source).Logger()

	paidAt := charge.PaidAtTime()
	if paidAt == nil {
		now := r.now()
		paidAt = &now
	}
	var paystackID string
	if charge.ID != 0 {
		paystackID = strconv.FormatInt(charge.ID, 10)
	}
	changed, err := r.Transactions.MarkStatus(ctx, nil, t.Reference, model.TransactionStatusSuccess, paystackID, paidAt)
	if err != nil {
		return nil, false, fmt.Errorf("mark transaction success: %w", err)
	}
	if changed {
		metrics.IncTransaction(string(model.TransactionStatusSuccess))
		metrics.AddRevenue(t.Currency, charge.Amount)
		l.Info().Int64("amount", charge.Amount).Msg("transaction succeeded")
	} else {
		current, err := r.Transactions.FindByReference(ctx, nil, t.Reference)
		if err != nil {
			return nil, false, fmt.Errorf("reload transaction: %w", err)
		}
		if current.Status != model.TransactionStatusSuccess {
			l.Warn().Str("status", string(current.Status)).Msg("charge for settled transaction ignored")
			return nil, false, &SettledError{Reference: t.Reference, Status: current.Status}
		}
	}

	customerCode := charge.Customer.CustomerCode
	r.syncCustomerCode(ctx, t, customerCode)

	if t.Plan == "" {
		return nil, false, nil
	}
	sub, err := r.Subscriptions.FindByTransactionReference(ctx, nil, t.Reference, t.ReferenceID)
	if errors.Is(err, domain.ErrNotFound) {
		l.Warn().Msg("no subscription for plan transaction")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find subscription: %w", err)
	}
	if !sub.AwaitingConfirmation() {
		return sub, false, nil
	}

	plan, err := r.Catalog.Plan(ctx, sub.Plan)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	now := r.now()
	upd := repository.ConfirmUpdate{
		Status:       model.SubscriptionStatusActive,
		PeriodStart:  now,
		CustomerCode: customerCode,
	}
	if sub.Status == model.SubscriptionStatusTrialing {
		upd.Status = model.SubscriptionStatusTrialing
		upd.PeriodEnd = sub.TrialEnd
	} else {
		var interval model.Interval
		if plan != nil {
			interval = plan.Interval
		}
		end := interval.Advance(now)
		upd.PeriodEnd = &end
	}

	ok, err := r.Subscriptions.Confirm(ctx, nil, t.Reference, t.ReferenceID, upd)
	if err != nil {
		return nil, false, fmt.Errorf("confirm subscription: %w", err)
	}
	if !ok {
		return sub, false, nil
	}
	metrics.IncSubscriptionTransition(upd.Status, source)
	l.Info().Str("subscription_id", sub.ID).Str("status", string(upd.Status)).Msg("subscription confirmed")

	sub.Status = upd.Status
	sub.PeriodStart = &upd.PeriodStart
	sub.PeriodEnd = upd.PeriodEnd
	if customerCode != "" {
		sub.PaystackCustomerCode = customerCode
	}

	if sub.Status == model.SubscriptionStatusTrialing {
		r.convertTrial(ctx, sub, plan, charge)
	}

	fire(ctx, r.log, "subscription_complete", r.Hooks.OnSubscriptionComplete, SubscriptionEvent{Subscription: sub, Plan: plan})
	return sub, true, nil
}

// convertTrial schedules the provider subscription that takes over when the
// trial ends. Only provider-managed plans have one; local plans stay local.
func (r *reconciler) convertTrial(ctx context.Context, sub *model.Subscription, plan *model.Plan, charge *adapter.Charge) {
	if plan == nil || plan.PlanCode == "" || sub.ProviderManaged() {
		return
	}
	l := logging.With(ctx, r.log)
	auth := charge.Authorization.AuthorizationCode
	customer := sub.PaystackCustomerCode
	if auth == "" || customer == "" {
		l.Warn().Str("subscription_id", sub.ID).Msg("trial conversion skipped: missing authorization or customer")
		return
	}
	ps, err := r.Provider.CreateSubscription(ctx, adapter.SubscriptionParams{
		Customer:      customer,
		Plan:          plan.PlanCode,
		Authorization: auth,
		StartDate:     sub.TrialEnd,
	})
	if err != nil {
		l.Error().Err(err).Str("subscription_id", sub.ID).Msg("trial conversion failed")
		return
	}
	att := repository.ProviderAttachment{
		SubscriptionCode: ps.SubscriptionCode,
		EmailToken:       r.seal(ps.EmailToken),
		CustomerCode:     customer,
		Status:           model.SubscriptionStatusTrialing,
	}
	if _, err := r.Subscriptions.Attach(ctx, nil, sub.ID, att); err != nil {
		l.Error().Err(err).Str("subscription_id", sub.ID).Msg("store trial subscription code")
		return
	}
	sub.PaystackSubscriptionCode = ps.SubscriptionCode
}

// syncCustomerCode stores the provider customer code on the billing target
// when it has none yet.
func (r *reconciler) syncCustomerCode(ctx context.Context, t *model.Transaction, code string) {
	if code == "" || t.ReferenceID == "" {
		return
	}
	var err error
	if t.ReferenceID == t.UserID {
		_, err = r.Users.SetCustomerCode(ctx, nil, t.ReferenceID, code)
	} else if r.Orgs != nil {
		_, err = r.Orgs.SetCustomerCode(ctx, nil, t.ReferenceID, code)
	}
	if err != nil && !isNotFound(err) {
		logging.With(ctx, r.log).Warn().Err(err).Str("reference_id", t.ReferenceID).Msg("sync customer code")
	}
}
