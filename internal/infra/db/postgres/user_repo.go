package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
)

var (
	_ repository.UserRepository         = (*userRepo)(nil)
	_ repository.OrganizationRepository = (*organizationRepo)(nil)
)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, name, email_verified, paystack_customer_code FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.PaystackCustomerCode); err != nil {
		if mapScanErr(err) == domain.ErrNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) SetCustomerCode(ctx context.Context, tx repository.Tx, id, code string) (bool, error) {
	const q = `UPDATE users SET paystack_customer_code=$2 WHERE id=$1 AND paystack_customer_code='';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, code)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

type organizationRepo struct{ pool *pgxpool.Pool }

func NewOrganizationRepo(pool *pgxpool.Pool) *organizationRepo {
	return &organizationRepo{pool: pool}
}

func (r *organizationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Organization, error) {
	const q = `SELECT id, name, billing_email, paystack_customer_code FROM organizations WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o := &model.Organization{}
	if err := row.Scan(&o.ID, &o.Name, &o.BillingEmail, &o.PaystackCustomerCode); err != nil {
		return nil, mapScanErr(err)
	}
	return o, nil
}

func (r *organizationRepo) FindOwner(ctx context.Context, tx repository.Tx, orgID string) (*model.User, error) {
	const q = `
SELECT u.id, u.email, u.name, u.email_verified, u.paystack_customer_code
FROM members m JOIN users u ON u.id = m.user_id
WHERE m.organization_id=$1 AND m.role='owner'
ORDER BY m.created_at ASC
LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.PaystackCustomerCode); err != nil {
		return nil, mapScanErr(err)
	}
	return u, nil
}

func (r *organizationRepo) FindMember(ctx context.Context, tx repository.Tx, orgID, userID string) (*model.Member, error) {
	const q = `
SELECT m.id, m.organization_id, m.user_id, m.role, u.email
FROM members m JOIN users u ON u.id = m.user_id
WHERE m.organization_id=$1 AND m.user_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, orgID, userID)
	if err != nil {
		return nil, err
	}
	m := &model.Member{}
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Email); err != nil {
		return nil, mapScanErr(err)
	}
	return m, nil
}

func (r *organizationRepo) CountMembers(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM members WHERE organization_id=$1;`, orgID)
}

func (r *organizationRepo) CountTeams(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM teams WHERE organization_id=$1;`, orgID)
}

func (r *organizationRepo) count(ctx context.Context, tx repository.Tx, q, orgID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, orgID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *organizationRepo) SetCustomerCode(ctx context.Context, tx repository.Tx, id, code string) (bool, error) {
	const q = `UPDATE organizations SET paystack_customer_code=$2 WHERE id=$1 AND paystack_customer_code='';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, code)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}
