package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, plan, reference_id, paystack_customer_code, paystack_subscription_code,
  paystack_transaction_reference, paystack_email_token, status, period_start, period_end,
  trial_start, trial_end, cancel_at_period_end, seats, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO paystack_subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
  plan=$2, paystack_customer_code=$4, paystack_subscription_code=$5, paystack_transaction_reference=$6,
  paystack_email_token=$7, status=$8, period_start=$9, period_end=$10, trial_start=$11, trial_end=$12,
  cancel_at_period_end=$13, seats=$14, updated_at=$16;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.Plan, s.ReferenceID, s.PaystackCustomerCode, s.PaystackSubscriptionCode,
		s.PaystackTransactionReference, s.PaystackEmailToken, s.Status, s.PeriodStart, s.PeriodEnd,
		s.TrialStart, s.TrialEnd, s.CancelAtPeriodEnd, s.Seats, s.CreatedAt, s.UpdatedAt)
	return mapExecErr(err)
}

func (r *subscriptionRepo) findOne(ctx context.Context, tx repository.Tx, where string, args ...interface{}) (*model.Subscription, error) {
	q := forUpdate(`SELECT `+subscriptionColumns+` FROM paystack_subscriptions WHERE `+where, tx)
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) list(ctx context.Context, tx repository.Tx, where string, args ...interface{}) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM paystack_subscriptions WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *subscriptionRepo) FindByPaystackCode(ctx context.Context, tx repository.Tx, code string) (*model.Subscription, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `paystack_subscription_code=$1`, code)
}

func (r *subscriptionRepo) FindByTransactionReference(ctx context.Context, tx repository.Tx, reference, referenceID string) (*model.Subscription, error) {
	return r.findOne(ctx, tx, `paystack_transaction_reference=$1 AND reference_id=$2 ORDER BY created_at DESC LIMIT 1`, reference, referenceID)
}

// effectiveClause matches model.Subscription.IsEffective.
const effectiveClause = `(status IN ('active','non-renewing') OR (status='trialing' AND (period_start IS NOT NULL OR paystack_subscription_code <> '')))`

func (r *subscriptionRepo) FindEffective(ctx context.Context, tx repository.Tx, referenceID string) (*model.Subscription, error) {
	return r.findOne(ctx, tx, `reference_id=$1 AND `+effectiveClause+` ORDER BY created_at DESC LIMIT 1`, referenceID)
}

func (r *subscriptionRepo) ListByReferenceID(ctx context.Context, tx repository.Tx, referenceID string) ([]*model.Subscription, error) {
	return r.list(ctx, tx, `reference_id=$1`, referenceID)
}

func (r *subscriptionRepo) ListByCustomerCode(ctx context.Context, tx repository.Tx, customerCode string) ([]*model.Subscription, error) {
	if customerCode == "" {
		return nil, nil
	}
	return r.list(ctx, tx, `paystack_customer_code=$1`, customerCode)
}

func (r *subscriptionRepo) HasTrialHistory(ctx context.Context, tx repository.Tx, referenceID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM paystack_subscriptions
  WHERE reference_id=$1 AND (trial_start IS NOT NULL OR trial_end IS NOT NULL OR status='trialing')
);`
	row, err := pickRow(ctx, r.pool, tx, q, referenceID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *subscriptionRepo) Confirm(ctx context.Context, tx repository.Tx, reference, referenceID string, upd repository.ConfirmUpdate) (bool, error) {
	const q = `
UPDATE paystack_subscriptions
SET status=$3,
    period_start=$4,
    period_end=$5,
    paystack_customer_code=COALESCE(NULLIF($6, ''), paystack_customer_code),
    updated_at=NOW()
WHERE paystack_transaction_reference=$1
  AND reference_id=$2
  AND (status='incomplete' OR (status='trialing' AND period_start IS NULL));`
	tag, err := execSQL(ctx, r.pool, tx, q, reference, referenceID, upd.Status, upd.PeriodStart, upd.PeriodEnd, upd.CustomerCode)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) Attach(ctx context.Context, tx repository.Tx, id string, att repository.ProviderAttachment) (bool, error) {
	const q = `
UPDATE paystack_subscriptions
SET paystack_subscription_code=$2,
    paystack_email_token=COALESCE(NULLIF($3, ''), paystack_email_token),
    paystack_customer_code=COALESCE(NULLIF($4, ''), paystack_customer_code),
    status=$5,
    period_start=COALESCE(period_start, NOW()),
    updated_at=NOW()
WHERE id=$1 AND status NOT IN ('canceled','incomplete_expired');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, att.SubscriptionCode, att.EmailToken, att.CustomerCode, att.Status)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

// CancelByPaystackCode returns the pre-update row through a CTE so the caller
// sees the status the subscription had before cancellation.
func (r *subscriptionRepo) CancelByPaystackCode(ctx context.Context, tx repository.Tx, code string) (*model.Subscription, bool, error) {
	if code == "" {
		return nil, false, nil
	}
	const q = `
WITH prev AS (
  SELECT ` + subscriptionColumns + `
  FROM paystack_subscriptions
  WHERE paystack_subscription_code=$1 AND status = ANY($2)
  FOR UPDATE
), upd AS (
  UPDATE paystack_subscriptions s
  SET status='canceled', cancel_at_period_end=TRUE, updated_at=NOW()
  FROM prev WHERE s.id = prev.id
  RETURNING s.id
)
SELECT ` + subscriptionColumns + ` FROM prev WHERE id IN (SELECT id FROM upd);`
	from := subscriptionStatusStrings(model.StatusesInto(model.SubscriptionStatusCanceled))
	row, err := pickRow(ctx, r.pool, tx, q, code, from)
	if err != nil {
		return nil, false, err
	}
	s, err := scanSubscription(row)
	if err == domain.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (r *subscriptionRepo) UpdateStatusByPaystackCode(ctx context.Context, tx repository.Tx, code string, status model.SubscriptionStatus) (bool, error) {
	from := model.StatusesInto(status)
	if code == "" || len(from) == 0 {
		return false, nil
	}
	const q = `UPDATE paystack_subscriptions SET status=$2, updated_at=NOW() WHERE paystack_subscription_code=$1 AND status = ANY($3);`
	tag, err := execSQL(ctx, r.pool, tx, q, code, status, subscriptionStatusStrings(from))
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) SetCancelAtPeriodEnd(ctx context.Context, tx repository.Tx, id, referenceID string, cancel bool, status *model.SubscriptionStatus) (bool, error) {
	const q = `
UPDATE paystack_subscriptions
SET cancel_at_period_end=$3, status=COALESCE($4, status), updated_at=NOW()
WHERE id=$1 AND reference_id=$2 AND status NOT IN ('canceled','incomplete_expired');`
	var st *string
	if status != nil {
		v := string(*status)
		st = &v
	}
	tag, err := execSQL(ctx, r.pool, tx, q, id, referenceID, cancel, st)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) SetEmailToken(ctx context.Context, tx repository.Tx, id, token string) error {
	const q = `UPDATE paystack_subscriptions SET paystack_email_token=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, token)
	return mapExecErr(err)
}

func subscriptionStatusStrings(in []model.SubscriptionStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	s := &model.Subscription{}
	var seats *int32
	if err := row.Scan(&s.ID, &s.Plan, &s.ReferenceID, &s.PaystackCustomerCode, &s.PaystackSubscriptionCode,
		&s.PaystackTransactionReference, &s.PaystackEmailToken, &s.Status, &s.PeriodStart, &s.PeriodEnd,
		&s.TrialStart, &s.TrialEnd, &s.CancelAtPeriodEnd, &seats, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	if seats != nil {
		n := int(*seats)
		s.Seats = &n
	}
	return s, nil
}
