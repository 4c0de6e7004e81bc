package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
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
var _ TransactionUseCase = (*transactionUC)(nil)

type TransactionUseCase interface {
	// Initialize opens a provider checkout for a plan, a product or a raw amount.
	Initialize(ctx context.Context, sess *model.Session, req InitializeRequest) (*InitializeResult, error)
	// Verify asks the provider about reference and reconciles the owner's rows.
	Verify(ctx context.Context, sess *model.Session, reference string) (*VerifyResult, error)
	List(ctx context.Context, referenceID string) ([]*model.Transaction, error)
}

// InitializeRequest carries exactly one of Plan, Product or Amount.
// ReferenceID must already be authorized for the session; empty means the user.
type InitializeRequest struct {
	Plan        string         `json:"plan,omitempty"`
	Product     string         `json:"product,omitempty"`
	Amount      *int64         `json:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Email       string         `json:"email,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ReferenceID string         `json:"referenceId,omitempty"`
	CallbackURL string         `json:"callbackURL,omitempty"`
	Quantity    int            `json:"quantity,omitempty"`
}

type InitializeResult struct {
	URL        string `json:"url"`
	Reference  string `json:"reference"`
	AccessCode string `json:"accessCode"`
	Redirect   bool   `json:"redirect"`
}

// VerifyStatusUnknown is returned for references the caller may not see.
const VerifyStatusUnknown = "unknown"

type VerifyResult struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

const (
	modePlan    = "plan"
	modeProduct = "product"
	modeAmount  = "amount"
)

type transactionUC struct {
	Deps
	opts BillingOptions
	refs *ReferenceAuthorizer
	rec  *reconciler
	log  *zerolog.Logger
}

func NewTransactionUseCase(deps Deps, opts BillingOptions, refs *ReferenceAuthorizer, logger *zerolog.Logger) (*transactionUC, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if refs == nil {
		refs = NewReferenceAuthorizer(deps.Hooks, deps.Orgs, logger)
	}
	if opts.CheckoutLockTTL <= 0 {
		opts.CheckoutLockTTL = 30 * time.Second
	}
	return &transactionUC{
		Deps: deps,
		opts: opts,
		refs: refs,
		rec:  &reconciler{Deps: deps, log: logger, now: time.Now},
		log:  logger,
	}, nil
}

// checkout is the resolved pricing of an initialize request.
type checkout struct {
	mode     string
	plan     *model.Plan
	product  *model.Product
	amount   *int64
	currency string
	trial    bool
	trialEnd time.Time
}

func (u *transactionUC) Initialize(ctx context.Context, sess *model.Session, req InitializeRequest) (*InitializeResult, error) {
	defer logging.TraceDuration(u.log, "TransactionUseCase.Initialize")()

	if sess == nil || sess.User.IsZero() {
		return nil, domain.Unauthorized(domain.CodeUnauthorized, "session required")
	}
	user := sess.User
	referenceID := strings.TrimSpace(req.ReferenceID)
	if referenceID == "" {
		referenceID = user.ID
	}
	ctx = logging.WithReferenceID(logging.WithUserID(ctx, user.ID), referenceID)
	l := logging.With(ctx, u.log)

	if !u.opts.trustedCallback(req.CallbackURL) {
		return nil, domain.Forbidden(domain.CodeUntrustedCallbackURL, "callbackURL must be on a trusted origin")
	}

	if u.Limiter != nil {
		ok, err := u.Limiter.Allow(ctx, "initialize:"+user.ID)
		if err != nil {
			l.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimited("initialize")
			return nil, domain.TooManyRequests("too many checkout attempts, try again shortly")
		}
	}

	co, err := u.resolveCheckout(ctx, user, req)
	if err != nil {
		return nil, err
	}

	if co.mode == modePlan && u.Locker != nil {
		key := "checkout:" + referenceID
		token, err := u.Locker.TryLock(ctx, key, u.opts.CheckoutLockTTL)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return nil, domain.Conflict(domain.CodeCheckoutInProgress, "another checkout for this reference is in progress")
		}
		if err != nil {
			l.Warn().Err(err).Msg("checkout lock unavailable")
		} else {
			defer func() {
				if err := u.Locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					l.Warn().Err(err).Msg("release checkout lock")
				}
			}()
		}
	}

	if co.mode == modePlan {
		if err := u.ensureNotSubscribed(ctx, referenceID, co.plan); err != nil {
			return nil, err
		}
		if days := co.plan.TrialDays(); days > 0 {
			had, err := u.Subscriptions.HasTrialHistory(ctx, nil, referenceID)
			if err != nil {
				return nil, fmt.Errorf("trial history: %w", err)
			}
			if !had {
				co.trial = true
				co.trialEnd = time.Now().AddDate(0, 0, days)
			}
		}
	}

	email, customerCode := u.resolveContact(ctx, user, referenceID)
	if e := strings.TrimSpace(req.Email); e != "" {
		email = e
	}
	if email == "" {
		return nil, domain.BadRequest(domain.CodeEmailRequired, "no email for billing target")
	}

	md := model.NewMetadata(req.Metadata)
	md.ReferenceID = referenceID
	md.UserID = user.ID
	params := adapter.InitializeParams{
		Email:       email,
		Currency:    co.currency,
		CallbackURL: u.opts.absoluteCallback(req.CallbackURL),
	}
	switch co.mode {
	case modePlan:
		md.Plan = co.plan.Name
		if co.trial {
			md.IsTrial = true
			end := co.trialEnd.UTC()
			md.TrialEnd = &end
			amt := u.opts.TrialAuthorizationAmount
			params.Amount = &amt
		} else {
			params.Plan = co.plan.PlanCode
			params.Amount = co.amount
			if co.plan.PlanCode != "" {
				params.Quantity = req.Quantity
			}
		}
	case modeProduct:
		md.Product = co.product.Name
		params.Amount = co.amount
	default:
		params.Amount = co.amount
	}
	params.Metadata = md

	res, err := u.Provider.InitializeTransaction(ctx, params)
	if err != nil {
		l.Error().Err(err).Str("mode", co.mode).Msg("provider initialize failed")
		return nil, domain.BadRequest(domain.CodeFailedToInitialize, "failed to initialize transaction")
	}

	var amount int64
	if params.Amount != nil {
		amount = *params.Amount
	}
	t, err := model.NewTransaction(res.Reference, referenceID, user.ID, amount, co.currency)
	if err != nil {
		return nil, err
	}
	t.Metadata = md
	if co.plan != nil {
		t.Plan = co.plan.Name
	}
	if co.product != nil {
		t.Product = co.product.Name
	}

	var sub *model.Subscription
	if co.mode == modePlan {
		sub, err = model.NewSubscription(co.plan.Name, referenceID, res.Reference)
		if err != nil {
			return nil, err
		}
		sub.PaystackCustomerCode = customerCode
		if req.Quantity > 0 {
			seats := req.Quantity
			sub.Seats = &seats
		} else if n, ok := co.plan.SeatLimit(); ok {
			sub.Seats = &n
		}
		if co.trial {
			sub.StartTrial(time.Now(), co.plan.TrialDays())
			sub.TrialEnd = md.TrialEnd
		}
	}

	err = u.withTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := u.Transactions.Save(ctx, tx, t); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		if sub != nil {
			if err := u.Subscriptions.Save(ctx, tx, sub); err != nil {
				return fmt.Errorf("save subscription: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		l.Error().Err(err).Str("reference", res.Reference).Msg("persist checkout")
		return nil, err
	}

	metrics.IncTransactionInitialized(co.mode)
	if sub != nil {
		metrics.IncSubscriptionTransition(sub.Status, "initialize")
		if co.trial {
			metrics.IncTrialStarted()
			fire(ctx, u.log, "trial_start", u.Hooks.OnTrialStart, SubscriptionEvent{Subscription: sub, Plan: co.plan})
		}
	}
	l.Info().Str("reference", res.Reference).Str("mode", co.mode).Bool("trial", co.trial).Msg("transaction initialized")

	return &InitializeResult{
		URL:        res.AuthorizationURL,
		Reference:  res.Reference,
		AccessCode: res.AccessCode,
		Redirect:   true,
	}, nil
}

// resolveCheckout picks the pricing mode and validates it before any side effect.
func (u *transactionUC) resolveCheckout(ctx context.Context, user *model.User, req InitializeRequest) (*checkout, error) {
	planName := strings.TrimSpace(req.Plan)
	productName := strings.TrimSpace(req.Product)
	if planName != "" && productName != "" {
		return nil, domain.BadRequest(domain.CodeInvalidRequestBody, "plan and product are mutually exclusive")
	}
	if req.Quantity < 0 {
		return nil, domain.BadRequest(domain.CodeInvalidRequestBody, "quantity must not be negative")
	}
	qty := int64(1)
	if req.Quantity > 0 {
		qty = int64(req.Quantity)
	}

	co := &checkout{currency: strings.ToUpper(strings.TrimSpace(req.Currency))}
	switch {
	case planName != "":
		co.mode = modePlan
		if !u.opts.SubscriptionsEnabled {
			return nil, domain.BadRequest(domain.CodeSubscriptionsDisabled, "subscriptions are disabled")
		}
		if u.opts.RequireEmailVerification && !user.EmailVerified {
			return nil, domain.Forbidden(domain.CodeEmailVerificationRequired, "verify your email before subscribing")
		}
		plan, err := u.Catalog.Plan(ctx, planName)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.BadRequest(domain.CodeSubscriptionPlanNotFound, "subscription plan not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load plan: %w", err)
		}
		co.plan = plan
		if co.currency == "" {
			co.currency = strings.ToUpper(plan.Currency)
		}
		if co.currency == "" {
			co.currency = u.opts.Currency
		}
		switch {
		case plan.PlanCode == "":
			amt := plan.Amount * qty
			co.amount = &amt
		case u.opts.PlanCodeRequiresAmount:
			base := plan.Amount
			if base <= 0 {
				base = u.opts.minimumAmount(co.currency)
			}
			amt := base * qty
			co.amount = &amt
		}
	case productName != "":
		co.mode = modeProduct
		product, err := u.Catalog.Product(ctx, productName)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.BadRequest(domain.CodeProductNotFound, "product not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load product: %w", err)
		}
		co.product = product
		if co.currency == "" {
			co.currency = strings.ToUpper(product.Currency)
		}
		amt := int64(math.Round(product.Amount)) * qty
		if amt <= 0 {
			return nil, domain.BadRequest(domain.CodeInvalidAmount, "product amount must be positive")
		}
		co.amount = &amt
	case req.Amount != nil:
		co.mode = modeAmount
		if *req.Amount <= 0 {
			return nil, domain.BadRequest(domain.CodeInvalidAmount, "amount must be a positive integer")
		}
		amt := *req.Amount
		co.amount = &amt
	default:
		return nil, domain.BadRequest(domain.CodeAmountRequired, "one of plan, product or amount is required")
	}
	if co.currency == "" {
		co.currency = u.opts.Currency
	}
	return co, nil
}

// ensureNotSubscribed rejects a checkout for a plan the reference already
// holds through any effective subscription.
func (u *transactionUC) ensureNotSubscribed(ctx context.Context, referenceID string, plan *model.Plan) error {
	subs, err := u.Subscriptions.ListByReferenceID(ctx, nil, referenceID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	for _, s := range subs {
		if s.IsEffective() && strings.EqualFold(s.Plan, plan.Name) {
			return domain.BadRequest(domain.CodeAlreadySubscribed, "already subscribed to this plan")
		}
	}
	return nil
}

// resolveContact finds the email and customer code to bill. An organization
// uses its own billing email and code, then its owner's email, then the acting
// user's.
func (u *transactionUC) resolveContact(ctx context.Context, user *model.User, referenceID string) (email, customerCode string) {
	if referenceID != user.ID && u.Orgs != nil {
		l := logging.With(ctx, u.log)
		org, err := u.Orgs.FindByID(ctx, nil, referenceID)
		switch {
		case err == nil:
			email, customerCode = org.BillingEmail, org.PaystackCustomerCode
		case !isNotFound(err):
			l.Warn().Err(err).Msg("load billing organization")
		}
		if email == "" {
			owner, err := u.Orgs.FindOwner(ctx, nil, referenceID)
			switch {
			case err == nil:
				email = owner.Email
			case !isNotFound(err):
				l.Warn().Err(err).Msg("load organization owner")
			}
		}
	}
	if email == "" {
		email = user.Email
	}
	if customerCode == "" {
		customerCode = user.PaystackCustomerCode
	}
	return email, customerCode
}

func (u *transactionUC) Verify(ctx context.Context, sess *model.Session, reference string) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "TransactionUseCase.Verify")()
	start := time.Now()

	if sess == nil || sess.User.IsZero() {
		return nil, domain.Unauthorized(domain.CodeUnauthorized, "session required")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.BadRequest(domain.CodeReferenceRequired, "reference is required")
	}
	ctx = logging.WithUserID(ctx, sess.User.ID)
	l := logging.With(ctx, u.log).With().Str("reference", reference).Logger()
	unknown := &VerifyResult{Status: VerifyStatusUnknown, Reference: reference}

	t, err := u.Transactions.FindByReference(ctx, nil, reference)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.ObserveVerify("unknown", start)
		return unknown, nil
	}
	if err != nil {
		metrics.ObserveVerify("error", start)
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if !u.refs.Owns(ctx, sess, t.ReferenceID, ActionVerifyTransaction) {
		l.Info().Msg("verify by non-owner ignored")
		metrics.ObserveVerify("unknown", start)
		return unknown, nil
	}

	charge, err := u.Provider.VerifyTransaction(ctx, reference)
	if err != nil {
		l.Error().Err(err).Msg("provider verify failed")
		metrics.ObserveVerify("error", start)
		return nil, domain.BadRequest(domain.CodeFailedToVerify, "failed to verify transaction")
	}

	status := strings.ToLower(charge.Status)
	switch model.TransactionStatus(status) {
	case model.TransactionStatusSuccess:
		var settled *SettledError
		_, _, err := u.rec.confirmCharge(ctx, t, charge, "verify")
		if errors.As(err, &settled) {
			status = string(settled.Status)
		} else if err != nil {
			l.Error().Err(err).Msg("reconcile verified charge")
			metrics.ObserveVerify("error", start)
			return nil, domain.BadRequest(domain.CodeFailedToVerify, "failed to verify transaction")
		}
	case model.TransactionStatusFailed, model.TransactionStatusAbandoned:
		changed, err := u.Transactions.MarkStatus(ctx, nil, reference, model.TransactionStatus(status), "", nil)
		if err != nil {
			l.Error().Err(err).Msg("mark transaction status")
			metrics.ObserveVerify("error", start)
			return nil, domain.BadRequest(domain.CodeFailedToVerify, "failed to verify transaction")
		}
		if changed {
			metrics.IncTransaction(status)
		}
	}
	metrics.ObserveVerify(status, start)

	return &VerifyResult{Status: status, Reference: reference, Amount: charge.Amount, Currency: charge.Currency}, nil
}

func (u *transactionUC) List(ctx context.Context, referenceID string) ([]*model.Transaction, error) {
	return u.Transactions.ListByReferenceID(ctx, nil, referenceID)
}
