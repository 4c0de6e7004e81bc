package apiv1

import (
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/usecase"
)

// Request bodies. Business rules live in the use cases; tags only bound shape.

type InitializeTransactionRequest struct {
	Plan        string         `json:"plan,omitempty" validate:"omitempty,max=128"`
	Product     string         `json:"product,omitempty" validate:"omitempty,max=128"`
	Amount      *int64         `json:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty" validate:"omitempty,alpha,len=3"`
	Email       string         `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ReferenceID string         `json:"referenceId,omitempty" validate:"omitempty,max=128"`
	CallbackURL string         `json:"callbackURL,omitempty" validate:"omitempty,max=2048"`
	Quantity    int            `json:"quantity,omitempty" validate:"gte=0,lte=100000"`
}

type VerifyTransactionRequest struct {
	Reference string `json:"reference" validate:"max=200"`
}

type ToggleSubscriptionRequest struct {
	ReferenceID      string `json:"referenceId,omitempty" validate:"omitempty,max=128"`
	SubscriptionCode string `json:"subscriptionCode,omitempty" validate:"omitempty,max=128"`
	EmailToken       string `json:"emailToken,omitempty" validate:"omitempty,max=256"`
}

// Responses.

type ListSubscriptionsResponse struct {
	Subscriptions []*model.Subscription `json:"subscriptions"`
}

type ListTransactionsResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
}

type ToggleSubscriptionResponse struct {
	Status       string              `json:"status"`
	Subscription *model.Subscription `json:"subscription"`
}

type ManageLinkResponse struct {
	Link string `json:"link"`
}

type ConfigResponse struct {
	Currency string          `json:"currency"`
	Plans    []model.Plan    `json:"plans"`
	Products []model.Product `json:"products"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type (
	InitializeTransactionResponse = usecase.InitializeResult
	VerifyTransactionResponse     = usecase.VerifyResult
)
