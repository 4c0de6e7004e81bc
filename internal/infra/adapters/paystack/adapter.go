package paystack

import (
	"context"
	"errors"
	"strings"
	"time"

	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/infra/metrics"
)

var _ adapter.PaymentProvider = (*Adapter)(nil)

// Adapter implements adapter.PaymentProvider on top of any Paystack client
// shape. It is the only place that knows about SDK response wrappers.
type Adapter struct {
	name string
	ops  *operations
}

// NewAdapter accepts a FlatClient or a NestedClient.
func NewAdapter(client any) (*Adapter, error) {
	if client == nil {
		return nil, ErrUnsupportedClient
	}
	ops, err := operationsFor(client)
	if err != nil {
		return nil, err
	}
	name := "paystack"
	if n, ok := client.(interface{ Name() string }); ok && n.Name() != "" {
		name = n.Name()
	}
	return &Adapter{name: name, ops: ops}, nil
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) observe(op string, start time.Time, err *error) {
	metrics.ObserveProviderCall(a.name, op, start, *err)
}

func (a *Adapter) CreateCustomer(ctx context.Context, p adapter.CustomerParams) (out *adapter.Customer, err error) {
	defer a.observe("customer_create", time.Now(), &err)
	if strings.TrimSpace(p.Email) == "" {
		return nil, errors.New("paystack: customer email is required")
	}
	resp, err := a.ops.customerCreate(ctx, p)
	if err != nil {
		return nil, err
	}
	out = new(adapter.Customer)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) UpdateCustomer(ctx context.Context, code string, p adapter.CustomerParams) (out *adapter.Customer, err error) {
	defer a.observe("customer_update", time.Now(), &err)
	resp, err := a.ops.customerUpdate(ctx, code, p)
	if err != nil {
		return nil, err
	}
	out = new(adapter.Customer)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) InitializeTransaction(ctx context.Context, p adapter.InitializeParams) (out *adapter.InitializeResult, err error) {
	defer a.observe("transaction_initialize", time.Now(), &err)
	resp, err := a.ops.transactionInitialize(ctx, p)
	if err != nil {
		return nil, err
	}
	out = new(adapter.InitializeResult)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	if out.Reference == "" || out.AuthorizationURL == "" {
		err = &Error{Message: "initialize response missing reference or authorization url"}
		return nil, err
	}
	return out, nil
}

func (a *Adapter) VerifyTransaction(ctx context.Context, reference string) (out *adapter.Charge, err error) {
	defer a.observe("transaction_verify", time.Now(), &err)
	resp, err := a.ops.transactionVerify(ctx, reference)
	if err != nil {
		return nil, err
	}
	out = new(adapter.Charge)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	if out.Reference == "" {
		out.Reference = reference
	}
	return out, nil
}

func (a *Adapter) CreateSubscription(ctx context.Context, p adapter.SubscriptionParams) (out *adapter.ProviderSubscription, err error) {
	defer a.observe("subscription_create", time.Now(), &err)
	resp, err := a.ops.subscriptionCreate(ctx, p)
	if err != nil {
		return nil, err
	}
	out = new(adapter.ProviderSubscription)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) FetchSubscription(ctx context.Context, code string) (out *adapter.ProviderSubscription, err error) {
	defer a.observe("subscription_fetch", time.Now(), &err)
	resp, err := a.ops.subscriptionFetch(ctx, code)
	if err != nil {
		return nil, err
	}
	out = new(adapter.ProviderSubscription)
	if err = decode(resp, out); err != nil {
		return nil, err
	}
	return out, nil
}

type toggleBody struct {
	Code  string `json:"code"`
	Token string `json:"token"`
}

func (a *Adapter) DisableSubscription(ctx context.Context, code, emailToken string) (err error) {
	defer a.observe("subscription_disable", time.Now(), &err)
	resp, err := a.ops.subscriptionDisable(ctx, toggleBody{Code: code, Token: emailToken})
	if err != nil {
		return err
	}
	err = decode(resp, nil)
	return err
}

func (a *Adapter) EnableSubscription(ctx context.Context, code, emailToken string) (err error) {
	defer a.observe("subscription_enable", time.Now(), &err)
	resp, err := a.ops.subscriptionEnable(ctx, toggleBody{Code: code, Token: emailToken})
	if err != nil {
		return err
	}
	err = decode(resp, nil)
	return err
}

func (a *Adapter) ManageLink(ctx context.Context, code string) (link string, err error) {
	defer a.observe("subscription_manage_link", time.Now(), &err)
	resp, err := a.ops.subscriptionManageLink(ctx, code)
	if err != nil {
		return "", err
	}
	var out struct {
		Link string `json:"link"`
	}
	if err = decode(resp, &out); err != nil {
		return "", err
	}
	if out.Link == "" {
		err = &Error{Message: "manage link missing from response"}
		return "", err
	}
	return out.Link, nil
}
