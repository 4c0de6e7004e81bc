package apiv1

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/usecase"
)

// ===== Catalog =====

func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	plans, err := s.catalog.Plans(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	products, err := s.catalog.Products(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resolved := make([]model.Plan, 0, len(plans))
	for _, p := range plans {
		if p.Currency == "" {
			p.Currency = s.currency
		}
		resolved = append(resolved, p)
	}
	items := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Currency == "" {
			p.Currency = s.currency
		}
		items = append(items, p)
	}
	writeJSON(w, http.StatusOK, ConfigResponse{Currency: s.currency, Plans: resolved, Products: items})
}

// ===== Webhook =====

// Webhook authenticates the raw body with the x-paystack-signature header.
// Everything past the signature check is acknowledged with 200.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, domain.BadRequest(domain.CodeInvalidRequestBody, "webhook body too large"))
		return
	}
	if err := s.webhooks.HandleWebhook(r.Context(), body, r.Header.Get("x-paystack-signature")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

// ===== Transactions =====

func (s *Server) InitializeTransaction(w http.ResponseWriter, r *http.Request) {
	var body InitializeTransactionRequest
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.txs.Initialize(r.Context(), sessionFrom(r.Context()), usecase.InitializeRequest{
		Plan:        body.Plan,
		Product:     body.Product,
		Amount:      body.Amount,
		Currency:    strings.ToUpper(body.Currency),
		Email:       body.Email,
		Metadata:    body.Metadata,
		ReferenceID: referenceFrom(r.Context()),
		CallbackURL: body.CallbackURL,
		Quantity:    body.Quantity,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var body VerifyTransactionRequest
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.Reference) == "" {
		s.fail(w, r, domain.BadRequest(domain.CodeReferenceRequired, "reference is required"))
		return
	}
	res, err := s.txs.Verify(r.Context(), sessionFrom(r.Context()), body.Reference)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txs.List(r.Context(), referenceFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	writeJSON(w, http.StatusOK, ListTransactionsResponse{Transactions: txs})
}

// ===== Subscriptions =====

func (s *Server) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.List(r.Context(), referenceFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []*model.Subscription{}
	}
	writeJSON(w, http.StatusOK, ListSubscriptionsResponse{Subscriptions: subs})
}

func (s *Server) DisableSubscription(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, s.subs.Disable)
}

func (s *Server) EnableSubscription(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, s.subs.Enable)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req usecase.ToggleRequest) (*model.Subscription, error)) {
	var body ToggleSubscriptionRequest
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := op(r.Context(), usecase.ToggleRequest{
		ReferenceID:      referenceFrom(r.Context()),
		SubscriptionCode: body.SubscriptionCode,
		EmailToken:       body.EmailToken,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.With(r.Context(), s.log).Info().
		Str("subscription_id", sub.ID).
		Bool("cancel_at_period_end", sub.CancelAtPeriodEnd).
		Msg("subscription renewal toggled")
	writeJSON(w, http.StatusOK, ToggleSubscriptionResponse{Status: "success", Subscription: sub})
}

func (s *Server) GetManageLink(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := runtime.BindQueryParameter("form", true, false, "subscriptionCode", r.URL.Query(), &code); err != nil {
		s.fail(w, r, domain.BadRequest(domain.CodeInvalidRequestBody, "invalid subscriptionCode"))
		return
	}
	link, err := s.subs.ManageLink(r.Context(), referenceFrom(r.Context()), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ManageLinkResponse{Link: link})
}
