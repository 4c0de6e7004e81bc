package model

import (
	"strings"
	"time"

	"paystack-billing/internal/domain"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // initialized with the provider, awaiting the payer
	TransactionStatusSuccess   TransactionStatus = "success"   // confirmed by verify or charge.success
	TransactionStatusFailed    TransactionStatus = "failed"    // charge declined or charge.failure
	TransactionStatusAbandoned TransactionStatus = "abandoned" // payer never completed checkout
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed || s == TransactionStatusAbandoned
}

// TransactionStatusesInto lists the statuses a transaction may leave to reach
// target. Only pending rows move; terminal rows never change again.
func TransactionStatusesInto(target TransactionStatus) []TransactionStatus {
	if !target.IsTerminal() {
		return nil
	}
	return []TransactionStatus{TransactionStatusPending}
}

// Transaction is the local record of one payment attempt. Reference is unique
// across the table and is the join key with the provider.
type Transaction struct {
	ID          string            `json:"id"`
	Reference   string            `json:"reference"`
	ReferenceID string            `json:"referenceId"`
	UserID      string            `json:"userId"`
	Amount      int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Plan        string            `json:"plan,omitempty"`
	Product     string            `json:"product,omitempty"`
	Metadata    Metadata          `json:"metadata"`
	PaystackID  string            `json:"paystackId,omitempty"`
	PaidAt      *time.Time        `json:"paidAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewTransaction creates a pending transaction for an initialized provider reference.
func NewTransaction(reference, referenceID, userID string, amount int64, currency string) (*Transaction, error) {
	if strings.TrimSpace(reference) == "" || referenceID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Transaction{
		ID:          NewID(),
		Reference:   reference,
		ReferenceID: referenceID,
		UserID:      userID,
		Amount:      amount,
		Currency:    strings.ToUpper(currency),
		Status:      TransactionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
