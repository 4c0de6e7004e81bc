package repository

import (
	"context"

	"paystack-billing/internal/domain/model"
)

// -----------------------------
// Users and organizations (host-owned tables)
// -----------------------------

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// SetCustomerCode stores code only when the user has none yet.
	SetCustomerCode(ctx context.Context, tx Tx, id, code string) (bool, error)
}

type OrganizationRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Organization, error)
	FindOwner(ctx context.Context, tx Tx, orgID string) (*model.User, error)
	FindMember(ctx context.Context, tx Tx, orgID, userID string) (*model.Member, error)
	CountMembers(ctx context.Context, tx Tx, orgID string) (int, error)
	CountTeams(ctx context.Context, tx Tx, orgID string) (int, error)
	SetCustomerCode(ctx context.Context, tx Tx, id, code string) (bool, error)
}
