package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/metrics"
)

// LimitEnforcer guards member and team creation against the billing target's
// subscription limits.
type LimitEnforcer struct {
	subs    repository.SubscriptionRepository
	orgs    repository.OrganizationRepository
	catalog *Catalog
	log     *zerolog.Logger
}

func NewLimitEnforcer(subs repository.SubscriptionRepository, orgs repository.OrganizationRepository, catalog *Catalog, logger *zerolog.Logger) *LimitEnforcer {
	return &LimitEnforcer{subs: subs, orgs: orgs, catalog: catalog, log: logger}
}

// effectivePlan returns the target's current subscription and its plan. Both
// are nil when the target has no effective subscription.
func (l *LimitEnforcer) effectivePlan(ctx context.Context, referenceID string) (*model.Subscription, *model.Plan, error) {
	sub, err := l.subs.FindEffective(ctx, nil, referenceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find subscription: %w", err)
	}
	plan, err := l.catalog.Plan(ctx, sub.Plan)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	return sub, plan, nil
}

// SeatLimit returns the seat cap for referenceID. The subscription's own seat
// count wins over the plan limit.
func (l *LimitEnforcer) SeatLimit(ctx context.Context, referenceID string) (int, bool, error) {
	sub, plan, err := l.effectivePlan(ctx, referenceID)
	if err != nil || sub == nil {
		return 0, false, err
	}
	if sub.Seats != nil {
		return *sub.Seats, true, nil
	}
	n, ok := plan.SeatLimit()
	return n, ok, nil
}

// TeamLimit returns the team cap of referenceID's plan.
func (l *LimitEnforcer) TeamLimit(ctx context.Context, referenceID string) (int, bool, error) {
	sub, plan, err := l.effectivePlan(ctx, referenceID)
	if err != nil || sub == nil {
		return 0, false, err
	}
	n, ok := plan.TeamLimit()
	return n, ok, nil
}

// CheckSeatLimit rejects adding seatsToAdd members when membership would
// exceed the seat cap. No cap means no limit.
func (l *LimitEnforcer) CheckSeatLimit(ctx context.Context, referenceID string, seatsToAdd int) error {
	seats, ok, err := l.SeatLimit(ctx, referenceID)
	if err != nil || !ok {
		return err
	}
	members, err := l.orgs.CountMembers(ctx, nil, referenceID)
	if err != nil {
		return fmt.Errorf("count members: %w", err)
	}
	if members+seatsToAdd > seats {
		metrics.IncLimitRejection("seats")
		l.log.Info().Str("reference_id", referenceID).Int("members", members).Int("seats", seats).Msg("seat limit reached")
		return domain.Forbidden(domain.CodeSeatLimitReached, fmt.Sprintf("seat limit of %d reached", seats))
	}
	return nil
}

// CheckTeamLimit rejects creating a team when referenceID already holds maxTeams.
func (l *LimitEnforcer) CheckTeamLimit(ctx context.Context, referenceID string, maxTeams int) error {
	teams, err := l.orgs.CountTeams(ctx, nil, referenceID)
	if err != nil {
		return fmt.Errorf("count teams: %w", err)
	}
	if teams >= maxTeams {
		metrics.IncLimitRejection("teams")
		l.log.Info().Str("reference_id", referenceID).Int("teams", teams).Int("max", maxTeams).Msg("team limit reached")
		return domain.Forbidden(domain.CodeTeamLimitReached, fmt.Sprintf("team limit of %d reached", maxTeams))
	}
	return nil
}
