package adapter

import (
	"context"
	"encoding/json"
	"time"

	"paystack-billing/internal/domain/model"
)

// CustomerParams creates or updates a provider customer.
type CustomerParams struct {
	Email     string         `json:"email"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// InitializeParams is the transaction initialization payload. Amount is nil
// when the provider should take the amount from Plan.
type InitializeParams struct {
	Email       string         `json:"email"`
	Amount      *int64         `json:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Plan        string         `json:"plan,omitempty"`
	Quantity    int            `json:"quantity,omitempty"`
	Channels    []string       `json:"channels,omitempty"`
	Metadata    model.Metadata `json:"metadata"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Reusable          bool   `json:"reusable"`
	Last4             string `json:"last4,omitempty"`
	CardType          string `json:"card_type,omitempty"`
}

// Charge is a provider transaction as returned by verify and carried by
// charge.* webhook events.
type Charge struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	PaidAt        string          `json:"paid_at"`
	GatewayText   string          `json:"gateway_response,omitempty"`
	Customer      Customer        `json:"customer"`
	Authorization Authorization   `json:"authorization"`
	Plan          json.RawMessage `json:"plan,omitempty"`
	Metadata      model.Metadata  `json:"metadata"`
}

// PaidAtTime parses PaidAt, returning nil when absent or malformed.
func (c *Charge) PaidAtTime() *time.Time {
	if c == nil || c.PaidAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, c.PaidAt)
	if err != nil {
		return nil
	}
	return &t
}

type SubscriptionParams struct {
	Customer      string     `json:"customer"`
	Plan          string     `json:"plan"`
	Authorization string     `json:"authorization,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
}

type ProviderPlan struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Interval string `json:"interval,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

// ProviderSubscription is a provider-side recurring subscription as returned by
// create and fetch and carried by subscription.* webhook events.
type ProviderSubscription struct {
	ID               int64          `json:"id"`
	SubscriptionCode string         `json:"subscription_code"`
	EmailToken       string         `json:"email_token"`
	Status           string         `json:"status"`
	NextPaymentDate  string         `json:"next_payment_date,omitempty"`
	Customer         Customer       `json:"customer"`
	Plan             ProviderPlan   `json:"plan"`
	Metadata         model.Metadata `json:"metadata"`
}

// PaymentProvider is the hex port for the payment provider.
type PaymentProvider interface {
	Name() string

	CreateCustomer(ctx context.Context, p CustomerParams) (*Customer, error)
	UpdateCustomer(ctx context.Context, code string, p CustomerParams) (*Customer, error)

	InitializeTransaction(ctx context.Context, p InitializeParams) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*Charge, error)

	CreateSubscription(ctx context.Context, p SubscriptionParams) (*ProviderSubscription, error)
	FetchSubscription(ctx context.Context, code string) (*ProviderSubscription, error)
	DisableSubscription(ctx context.Context, code, emailToken string) error
	EnableSubscription(ctx context.Context, code, emailToken string) error
	ManageLink(ctx context.Context, code string) (string, error)
}

// WebhookVerifier authenticates a raw webhook body against its signature header.
type WebhookVerifier interface {
	Verify(body []byte, signature string) bool
}
