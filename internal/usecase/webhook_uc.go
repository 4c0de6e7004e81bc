package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// HandleWebhook authenticates body against signature and syncs local state.
	// Only a bad signature is returned as an error; sync failures are logged.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// SyncError is a failure while applying an authenticated event. It is logged
// and swallowed so the provider does not retry deliveries because of local bugs.
type SyncError struct {
	Event     string
	Reference string
	Err       error
}

func (e *SyncError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("webhook %s (%s): %v", e.Event, e.Reference, e.Err)
	}
	return fmt.Sprintf("webhook %s: %v", e.Event, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

type webhookUC struct {
	Deps
	verifier   adapter.WebhookVerifier
	deliveries repository.DeliveryLog // nil disables replay detection
	rec        *reconciler
	log        *zerolog.Logger
}

func NewWebhookUseCase(deps Deps, verifier adapter.WebhookVerifier, deliveries repository.DeliveryLog, logger *zerolog.Logger) (*webhookUC, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, errors.New("usecase: webhook verifier is required")
	}
	return &webhookUC{
		Deps:       deps,
		verifier:   verifier,
		deliveries: deliveries,
		rec:        &reconciler{Deps: deps, log: logger, now: time.Now},
		log:        logger,
	}, nil
}

func (u *webhookUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	l := logging.With(ctx, u.log)
	if strings.TrimSpace(signature) == "" || !u.verifier.Verify(body, signature) {
		metrics.IncWebhookRejected("signature")
		l.Warn().Int("bytes", len(body)).Msg("webhook signature rejected")
		return domain.Unauthorized(domain.CodeInvalidWebhookSignature, "invalid webhook signature")
	}

	var ev model.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.IncWebhookEvent("unparsable", "error")
		l.Error().Err(err).Msg("signed webhook body is not json")
		return nil
	}

	if u.deliveries != nil {
		sum := sha256.Sum256(body)
		first, err := u.deliveries.FirstDelivery(ctx, hex.EncodeToString(sum[:]))
		if err != nil {
			l.Warn().Err(err).Msg("delivery log unavailable")
		} else if !first {
			metrics.IncWebhookEvent(ev.Event, "duplicate")
			l.Info().Str("event", ev.Event).Msg("duplicate webhook delivery ignored")
			return nil
		}
	}

	result := "ok"
	if err := u.dispatch(ctx, ev); err != nil {
		result = "error"
		var syncErr *SyncError
		if errors.As(err, &syncErr) {
			l.Error().Err(syncErr.Err).Str("event", syncErr.Event).Str("reference", syncErr.Reference).Msg("webhook sync failed")
		} else {
			l.Error().Err(err).Str("event", ev.Event).Msg("webhook sync failed")
		}
	}
	metrics.IncWebhookEvent(ev.Event, result)

	fire(ctx, u.log, "event", u.Hooks.OnEvent, ev)
	return nil
}

func (u *webhookUC) dispatch(ctx context.Context, ev model.WebhookEvent) error {
	switch ev.Event {
	case model.EventChargeSuccess:
		return u.onChargeSuccess(ctx, ev)
	case model.EventChargeFailure:
		return u.onChargeFailure(ctx, ev)
	case model.EventSubscriptionCreate:
		return u.onSubscriptionCreate(ctx, ev)
	case model.EventSubscriptionDisable, model.EventSubscriptionNotRenew:
		return u.onSubscriptionDisable(ctx, ev)
	case model.EventInvoicePaymentFailed:
		return u.onInvoicePaymentFailed(ctx, ev)
	default:
		logging.With(ctx, u.log).Debug().Str("event", ev.Event).Msg("webhook event ignored")
		return nil
	}
}

func (u *webhookUC) onChargeSuccess(ctx context.Context, ev model.WebhookEvent) error {
	var charge adapter.Charge
	if err := json.Unmarshal(ev.Data, &charge); err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	if charge.Reference == "" {
		return &SyncError{Event: ev.Event, Err: errors.New("missing reference")}
	}
	t, err := u.Transactions.FindByReference(ctx, nil, charge.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, u.log).Info().Str("reference", charge.Reference).Msg("charge for unknown transaction")
		return nil
	}
	if err != nil {
		return &SyncError{Event: ev.Event, Reference: charge.Reference, Err: err}
	}
	var settled *SettledError
	if _, _, err := u.rec.confirmCharge(ctx, t, &charge, "webhook"); err != nil && !errors.As(err, &settled) {
		return &SyncError{Event: ev.Event, Reference: charge.Reference, Err: err}
	}
	return nil
}

func (u *webhookUC) onChargeFailure(ctx context.Context, ev model.WebhookEvent) error {
	var charge adapter.Charge
	if err := json.Unmarshal(ev.Data, &charge); err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	changed, err := u.Transactions.MarkStatus(ctx, nil, charge.Reference, model.TransactionStatusFailed, "", nil)
	if err != nil {
		return &SyncError{Event: ev.Event, Reference: charge.Reference, Err: err}
	}
	if !changed {
		logging.With(ctx, u.log).Info().Str("reference", charge.Reference).Msg("charge failure matched no pending transaction")
		return nil
	}
	metrics.IncTransaction(string(model.TransactionStatusFailed))
	return nil
}

// onSubscriptionCreate links the provider subscription to the local row it was
// created for. Candidates come from the metadata reference, else from the
// customer code, narrowed by plan.
func (u *webhookUC) onSubscriptionCreate(ctx context.Context, ev model.WebhookEvent) error {
	var ps adapter.ProviderSubscription
	if err := json.Unmarshal(ev.Data, &ps); err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	if ps.SubscriptionCode == "" {
		return &SyncError{Event: ev.Event, Err: errors.New("missing subscription_code")}
	}
	l := logging.With(ctx, u.log).With().Str("subscription_code", ps.SubscriptionCode).Logger()

	var (
		candidates []*model.Subscription
		err        error
	)
	if ref := ps.Metadata.ReferenceID; ref != "" {
		candidates, err = u.Subscriptions.ListByReferenceID(ctx, nil, ref)
	} else {
		candidates, err = u.Subscriptions.ListByCustomerCode(ctx, nil, ps.Customer.CustomerCode)
	}
	if err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}

	plan, err := u.Catalog.PlanByCode(ctx, ps.Plan.PlanCode)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return &SyncError{Event: ev.Event, Err: err}
	}
	planName := ps.Metadata.Plan
	if plan != nil {
		planName = plan.Name
	} else if planName != "" {
		plan, _ = u.Catalog.Plan(ctx, planName)
	}

	var match *model.Subscription
	for _, s := range candidates {
		if planName != "" && !strings.EqualFold(s.Plan, planName) {
			continue
		}
		if s.PaystackSubscriptionCode == ps.SubscriptionCode {
			l.Debug().Msg("subscription already linked")
			return nil
		}
		if s.PaystackSubscriptionCode != "" {
			continue
		}
		if s.Status == model.SubscriptionStatusCanceled || s.Status == model.SubscriptionStatusIncompleteExpired {
			continue
		}
		match = s
		break
	}
	if match == nil {
		l.Info().Str("plan", planName).Msg("no local subscription for provider subscription")
		return nil
	}

	status := model.SubscriptionStatusActive
	if match.Status == model.SubscriptionStatusTrialing && match.TrialEnd != nil && match.TrialEnd.After(time.Now()) {
		status = model.SubscriptionStatusTrialing
	}
	wasAwaiting := match.AwaitingConfirmation()
	ok, err := u.Subscriptions.Attach(ctx, nil, match.ID, repository.ProviderAttachment{
		SubscriptionCode: ps.SubscriptionCode,
		EmailToken:       u.seal(ps.EmailToken),
		CustomerCode:     ps.Customer.CustomerCode,
		Status:           status,
	})
	if err != nil {
		return &SyncError{Event: ev.Event, Reference: match.PaystackTransactionReference, Err: err}
	}
	if !ok {
		return nil
	}
	metrics.IncSubscriptionTransition(status, "webhook")
	l.Info().Str("subscription_id", match.ID).Str("status", string(status)).Msg("provider subscription linked")

	match.PaystackSubscriptionCode = ps.SubscriptionCode
	match.Status = status
	if ps.Customer.CustomerCode != "" {
		match.PaystackCustomerCode = ps.Customer.CustomerCode
	}
	evt := SubscriptionEvent{Subscription: match, Plan: plan}
	fire(ctx, u.log, "subscription_created", u.Hooks.OnSubscriptionCreated, evt)
	if wasAwaiting {
		fire(ctx, u.log, "subscription_complete", u.Hooks.OnSubscriptionComplete, evt)
	}
	return nil
}

func (u *webhookUC) onSubscriptionDisable(ctx context.Context, ev model.WebhookEvent) error {
	var ps adapter.ProviderSubscription
	if err := json.Unmarshal(ev.Data, &ps); err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	prev, ok, err := u.Subscriptions.CancelByPaystackCode(ctx, nil, ps.SubscriptionCode)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	if !ok {
		return nil
	}
	metrics.IncSubscriptionTransition(model.SubscriptionStatusCanceled, "webhook")
	logging.With(ctx, u.log).Info().
		Str("subscription_id", prev.ID).
		Str("previous_status", string(prev.Status)).
		Msg("subscription canceled")

	plan, err := u.Catalog.Plan(ctx, prev.Plan)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, u.log).Warn().Err(err).Msg("load plan for canceled subscription")
	}
	fire(ctx, u.log, "subscription_cancel", u.Hooks.OnSubscriptionCancel, SubscriptionEvent{Subscription: prev, Plan: plan})
	return nil
}

// invoicePayload is the subset of invoice.* data the engine reads.
type invoicePayload struct {
	Subscription struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription"`
}

func (u *webhookUC) onInvoicePaymentFailed(ctx context.Context, ev model.WebhookEvent) error {
	var inv invoicePayload
	if err := json.Unmarshal(ev.Data, &inv); err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	code := inv.Subscription.SubscriptionCode
	if code == "" {
		return nil
	}
	ok, err := u.Subscriptions.UpdateStatusByPaystackCode(ctx, nil, code, model.SubscriptionStatusPastDue)
	if err != nil {
		return &SyncError{Event: ev.Event, Err: err}
	}
	if ok {
		metrics.IncSubscriptionTransition(model.SubscriptionStatusPastDue, "webhook")
		logging.With(ctx, u.log).Info().Str("subscription_code", code).Msg("subscription past due")
	}
	return nil
}
