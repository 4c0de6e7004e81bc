package repository

import (
	"context"
	"time"

	"paystack-billing/internal/domain/model"
)

// -----------------------------
// Transactions
// -----------------------------

type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Transaction, error)
	ListByReferenceID(ctx context.Context, tx Tx, referenceID string) ([]*model.Transaction, error)
	// MarkStatus moves the row to status only from a status with a legal edge
	// into it, and reports whether a row changed.
	MarkStatus(ctx context.Context, tx Tx, reference string, status model.TransactionStatus, paystackID string, paidAt *time.Time) (bool, error)
}
