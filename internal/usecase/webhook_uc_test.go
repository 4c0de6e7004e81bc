//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/adapters/paystack"
	"paystack-billing/internal/usecase"
)

const testWebhookSecret = "sk_test_webhook"

type webhookFixture struct {
	*billingDeps
	signer *paystack.Signer
	events []string
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{billingDeps: newBillingDeps(), signer: paystack.NewSigner(testWebhookSecret)}
	f.hooks.OnEvent = func(ctx context.Context, ev model.WebhookEvent) error {
		f.events = append(f.events, ev.Event)
		return nil
	}
	return f
}

func (f *webhookFixture) useCase(t *testing.T, deliveries repository.DeliveryLog) usecase.WebhookUseCase {
	t.Helper()
	uc, err := usecase.NewWebhookUseCase(f.deps(), f.signer, deliveries, newTestLogger())
	if err != nil {
		t.Fatalf("NewWebhookUseCase: %v", err)
	}
	return uc
}

func eventBody(t *testing.T, event string, data any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func (f *webhookFixture) deliver(t *testing.T, uc usecase.WebhookUseCase, body []byte) {
	t.Helper()
	if err := uc.HandleWebhook(context.Background(), body, f.signer.Sign(body)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
}

// checkout opens a plan checkout for u and returns its reference.
func (f *webhookFixture) checkout(t *testing.T, u *model.User, plan string) string {
	t.Helper()
	uc := newTransactionUC(t, f.billingDeps, defaultOptions())
	return mustInitialize(t, uc, u, usecase.InitializeRequest{Plan: plan}).Reference
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	ref := f.checkout(t, userA, "starter")
	uc := f.useCase(t, nil)
	body := eventBody(t, model.EventChargeSuccess, map[string]any{"reference": ref, "status": "success", "amount": 250000})

	for name, sig := range map[string]string{
		"missing":   "",
		"wrong":     "deadbeef",
		"other key": paystack.NewSigner("sk_other").Sign(body),
	} {
		t.Run(name, func(t *testing.T) {
			err := uc.HandleWebhook(context.Background(), body, sig)
			requireCode(t, err, domain.CodeInvalidWebhookSignature, http.StatusUnauthorized)
		})
	}

	tx, _ := f.txs.FindByReference(context.Background(), nil, ref)
	if tx.Status != model.TransactionStatusPending {
		t.Fatalf("rejected webhook mutated transaction to %s", tx.Status)
	}
	if s := f.subs.Rows(userA.ID)[0]; s.Status != model.SubscriptionStatusIncomplete {
		t.Fatalf("rejected webhook mutated subscription to %s", s.Status)
	}
	if len(f.events) != 0 {
		t.Fatalf("OnEvent fired for rejected deliveries: %v", f.events)
	}
}

func TestWebhook_ChargeSuccess(t *testing.T) {
	f := newWebhookFixture()
	var completions int
	f.hooks.OnSubscriptionComplete = func(ctx context.Context, ev usecase.SubscriptionEvent) error {
		completions++
		return nil
	}
	ref := f.checkout(t, userA, "starter")
	uc := f.useCase(t, nil)

	body := eventBody(t, model.EventChargeSuccess, map[string]any{
		"id": 99, "reference": ref, "status": "success", "amount": 250000, "currency": "NGN",
		"customer": map[string]any{"customer_code": "CUS_hook"},
	})
	f.deliver(t, uc, body)

	s := f.subs.Rows(userA.ID)[0]
	if s.Status != model.SubscriptionStatusActive || s.PeriodStart == nil || s.PeriodEnd == nil {
		t.Fatalf("subscription not confirmed: %+v", s)
	}
	if s.PaystackCustomerCode != "CUS_hook" {
		t.Fatalf("customer code = %q", s.PaystackCustomerCode)
	}

	// a late verify finds nothing left to do
	tuc := newTransactionUC(t, f.billingDeps, defaultOptions())
	if _, err := tuc.Verify(context.Background(), sessionFor(userA), ref); err != nil {
		t.Fatal(err)
	}
	if completions != 1 {
		t.Fatalf("OnSubscriptionComplete fired %d times", completions)
	}
	if len(f.events) != 1 || f.events[0] != model.EventChargeSuccess {
		t.Fatalf("OnEvent calls = %v", f.events)
	}
}

func TestWebhook_ChargeSuccessOnAbandonedTransaction(t *testing.T) {
	f := newWebhookFixture()
	ref := f.checkout(t, userA, "starter")
	ctx := context.Background()
	if ok, err := f.txs.MarkStatus(ctx, nil, ref, model.TransactionStatusAbandoned, "", nil); err != nil || !ok {
		t.Fatalf("MarkStatus = %v, %v", ok, err)
	}
	uc := f.useCase(t, nil)

	f.deliver(t, uc, eventBody(t, model.EventChargeSuccess, map[string]any{
		"id": 100, "reference": ref, "status": "success", "amount": 250000, "currency": "NGN",
	}))

	tx, _ := f.txs.FindByReference(ctx, nil, ref)
	if tx.Status != model.TransactionStatusAbandoned {
		t.Fatalf("transaction status = %s", tx.Status)
	}
	if s := f.subs.Rows(userA.ID)[0]; s.Status != model.SubscriptionStatusIncomplete {
		t.Fatalf("subscription moved to %s", s.Status)
	}
}

func TestWebhook_ChargeFailureAndUnknownReference(t *testing.T) {
	f := newWebhookFixture()
	ref := f.checkout(t, userA, "starter")
	uc := f.useCase(t, nil)

	f.deliver(t, uc, eventBody(t, model.EventChargeSuccess, map[string]any{"reference": "ref_nobody", "status": "success"}))
	f.deliver(t, uc, eventBody(t, model.EventChargeFailure, map[string]any{"reference": ref, "status": "failed"}))

	tx, _ := f.txs.FindByReference(context.Background(), nil, ref)
	if tx.Status != model.TransactionStatusFailed {
		t.Fatalf("transaction status = %s", tx.Status)
	}
	if s := f.subs.Rows(userA.ID)[0]; s.Status != model.SubscriptionStatusIncomplete {
		t.Fatalf("charge.failure must not touch the subscription, got %s", s.Status)
	}
	if len(f.events) != 2 {
		t.Fatalf("OnEvent calls = %v", f.events)
	}
}

func TestWebhook_SubscriptionCreate(t *testing.T) {
	t.Run("links by metadata reference", func(t *testing.T) {
		f := newWebhookFixture()
		var created, completed int
		f.hooks.OnSubscriptionCreated = func(ctx context.Context, ev usecase.SubscriptionEvent) error {
			created++
			if ev.Plan == nil || ev.Plan.Name != "pro" {
				t.Errorf("hook plan = %+v", ev.Plan)
			}
			return nil
		}
		f.hooks.OnSubscriptionComplete = func(ctx context.Context, ev usecase.SubscriptionEvent) error {
			completed++
			return nil
		}
		f.checkout(t, userA, "pro")
		uc := f.useCase(t, nil)

		body := eventBody(t, model.EventSubscriptionCreate, map[string]any{
			"subscription_code": "SUB_1",
			"email_token":       "tok_1",
			"status":            "active",
			"plan":              map[string]any{"plan_code": "PLN_pro", "name": "Pro"},
			"customer":          map[string]any{"customer_code": "CUS_1"},
			"metadata":          map[string]any{"referenceId": userA.ID},
		})
		f.deliver(t, uc, body)
		f.deliver(t, uc, body)

		s := f.subs.Rows(userA.ID)[0]
		if s.Status != model.SubscriptionStatusActive || s.PaystackSubscriptionCode != "SUB_1" {
			t.Fatalf("subscription not linked: %+v", s)
		}
		if s.PaystackEmailToken != "sealed:tok_1" {
			t.Fatalf("email token stored as %q", s.PaystackEmailToken)
		}
		if created != 1 || completed != 1 {
			t.Fatalf("created=%d completed=%d, want 1 and 1", created, completed)
		}
	})

	t.Run("links by customer code", func(t *testing.T) {
		f := newWebhookFixture()
		sub, _ := model.NewSubscription("pro", userB.ID, "ref_b")
		sub.PaystackCustomerCode = "CUS_b"
		_ = f.subs.Save(context.Background(), nil, sub)
		uc := f.useCase(t, nil)

		f.deliver(t, uc, eventBody(t, model.EventSubscriptionCreate, map[string]any{
			"subscription_code": "SUB_b",
			"plan":              map[string]any{"plan_code": "PLN_pro"},
			"customer":          map[string]any{"customer_code": "CUS_b"},
		}))

		if s := f.subs.Rows(userB.ID)[0]; s.PaystackSubscriptionCode != "SUB_b" {
			t.Fatalf("subscription not linked: %+v", s)
		}
	})

	t.Run("ignores other plans and canceled rows", func(t *testing.T) {
		f := newWebhookFixture()
		ctx := context.Background()
		other, _ := model.NewSubscription("starter", userA.ID, "ref_1")
		canceled, _ := model.NewSubscription("pro", userA.ID, "ref_2")
		canceled.Status = model.SubscriptionStatusCanceled
		_ = f.subs.Save(ctx, nil, other)
		_ = f.subs.Save(ctx, nil, canceled)
		uc := f.useCase(t, nil)

		f.deliver(t, uc, eventBody(t, model.EventSubscriptionCreate, map[string]any{
			"subscription_code": "SUB_x",
			"plan":              map[string]any{"plan_code": "PLN_pro"},
			"metadata":          map[string]any{"referenceId": userA.ID},
		}))

		for _, s := range f.subs.Rows(userA.ID) {
			if s.PaystackSubscriptionCode != "" {
				t.Fatalf("row %s (%s, %s) must not be linked", s.ID, s.Plan, s.Status)
			}
		}
	})

	t.Run("keeps an unexpired trial", func(t *testing.T) {
		f := newWebhookFixture()
		f.checkout(t, userA, "team")
		uc := f.useCase(t, nil)

		f.deliver(t, uc, eventBody(t, model.EventSubscriptionCreate, map[string]any{
			"subscription_code": "SUB_t",
			"plan":              map[string]any{"plan_code": "PLN_team"},
			"metadata":          map[string]any{"referenceId": userA.ID},
		}))

		s := f.subs.Rows(userA.ID)[0]
		if s.Status != model.SubscriptionStatusTrialing || s.PaystackSubscriptionCode != "SUB_t" {
			t.Fatalf("unexpected row %+v", s)
		}
	})
}

func TestWebhook_SubscriptionDisable(t *testing.T) {
	for _, event := range []string{model.EventSubscriptionDisable, model.EventSubscriptionNotRenew} {
		t.Run(event, func(t *testing.T) {
			f := newWebhookFixture()
			var cancels []model.SubscriptionStatus
			f.hooks.OnSubscriptionCancel = func(ctx context.Context, ev usecase.SubscriptionEvent) error {
				cancels = append(cancels, ev.Subscription.Status)
				return nil
			}
			sub, _ := model.NewSubscription("pro", userA.ID, "ref_1")
			sub.Status = model.SubscriptionStatusActive
			sub.PaystackSubscriptionCode = "SUB_1"
			_ = f.subs.Save(context.Background(), nil, sub)
			uc := f.useCase(t, nil)

			body := eventBody(t, event, map[string]any{"subscription_code": "SUB_1", "status": "complete"})
			f.deliver(t, uc, body)
			f.deliver(t, uc, body)

			s := f.subs.Rows(userA.ID)[0]
			if s.Status != model.SubscriptionStatusCanceled || !s.CancelAtPeriodEnd {
				t.Fatalf("subscription not canceled: %+v", s)
			}
			if len(cancels) != 1 {
				t.Fatalf("OnSubscriptionCancel fired %d times", len(cancels))
			}
			if cancels[0] != model.SubscriptionStatusActive {
				t.Fatalf("hook must see the pre-cancel snapshot, got %s", cancels[0])
			}
		})
	}

	t.Run("unknown code is ignored", func(t *testing.T) {
		f := newWebhookFixture()
		uc := f.useCase(t, nil)
		f.deliver(t, uc, eventBody(t, model.EventSubscriptionDisable, map[string]any{"subscription_code": "SUB_missing"}))
		if len(f.events) != 1 {
			t.Fatalf("OnEvent calls = %v", f.events)
		}
	})
}

func TestWebhook_InvoicePaymentFailed(t *testing.T) {
	f := newWebhookFixture()
	sub, _ := model.NewSubscription("pro", userA.ID, "ref_1")
	sub.Status = model.SubscriptionStatusActive
	sub.PaystackSubscriptionCode = "SUB_1"
	_ = f.subs.Save(context.Background(), nil, sub)
	uc := f.useCase(t, nil)

	f.deliver(t, uc, eventBody(t, model.EventInvoicePaymentFailed, map[string]any{
		"subscription": map[string]any{"subscription_code": "SUB_1"},
	}))

	if s := f.subs.Rows(userA.ID)[0]; s.Status != model.SubscriptionStatusPastDue {
		t.Fatalf("status = %s, want past_due", s.Status)
	}
}

func TestWebhook_DuplicateDelivery(t *testing.T) {
	f := newWebhookFixture()
	uc := f.useCase(t, &MockDeliveryLog{})
	body := eventBody(t, "transfer.success", map[string]any{"reference": "trf_1"})

	f.deliver(t, uc, body)
	f.deliver(t, uc, body)

	if len(f.events) != 1 {
		t.Fatalf("OnEvent fired %d times for a replayed delivery", len(f.events))
	}
}

func TestWebhook_SyncFailuresAreAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	uc := f.useCase(t, nil)

	// authenticated but unusable payloads are logged, never returned
	f.deliver(t, uc, eventBody(t, model.EventChargeSuccess, map[string]any{"status": "success"}))
	f.deliver(t, uc, eventBody(t, model.EventSubscriptionCreate, "not an object"))
	f.deliver(t, uc, []byte("{not json"))

	if len(f.events) != 2 {
		t.Fatalf("OnEvent calls = %v, want one per parsed event", f.events)
	}
}
