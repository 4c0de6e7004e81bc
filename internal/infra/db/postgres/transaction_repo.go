package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, reference, reference_id, user_id, amount, currency, status, plan, product, metadata, paystack_id, paid_at, created_at, updated_at`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO paystack_transactions (` + transactionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  status=$7, metadata=$10, paystack_id=$11, paid_at=$12, updated_at=$14;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.Reference, t.ReferenceID, t.UserID, t.Amount, t.Currency, t.Status,
		t.Plan, t.Product, meta, t.PaystackID, t.PaidAt, t.CreatedAt, t.UpdatedAt)
	return mapExecErr(err)
}

func (r *transactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	q := forUpdate(`SELECT `+transactionColumns+` FROM paystack_transactions WHERE reference=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListByReferenceID(ctx context.Context, tx repository.Tx, referenceID string) ([]*model.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM paystack_transactions WHERE reference_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *transactionRepo) MarkStatus(ctx context.Context, tx repository.Tx, reference string, status model.TransactionStatus, paystackID string, paidAt *time.Time) (bool, error) {
	from := model.TransactionStatusesInto(status)
	if len(from) == 0 {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE paystack_transactions
SET status=$2,
    paystack_id=COALESCE(NULLIF($3, ''), paystack_id),
    paid_at=COALESCE($4, paid_at),
    updated_at=NOW()
WHERE reference=$1 AND status = ANY($5);`
	tag, err := execSQL(ctx, r.pool, tx, q, reference, status, paystackID, paidAt, transactionStatusStrings(from))
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

func transactionStatusStrings(in []model.TransactionStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var meta []byte
	if err := row.Scan(&t.ID, &t.Reference, &t.ReferenceID, &t.UserID, &t.Amount, &t.Currency, &t.Status,
		&t.Plan, &t.Product, &meta, &t.PaystackID, &t.PaidAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return t, nil
}
