package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
	"paystack-billing/internal/infra/logging"
)

// ReferenceAuthorizer decides which billing target a session may act on.
type ReferenceAuthorizer struct {
	authorize func(ctx context.Context, req AuthorizeReferenceRequest) (bool, error)
	orgs      repository.OrganizationRepository // nil when organizations are disabled
	log       *zerolog.Logger
}

func NewReferenceAuthorizer(hooks Hooks, orgs repository.OrganizationRepository, logger *zerolog.Logger) *ReferenceAuthorizer {
	return &ReferenceAuthorizer{authorize: hooks.AuthorizeReference, orgs: orgs, log: logger}
}

// Resolve returns the billing target for the request. An empty referenceID
// means the acting user. A foreign reference needs the AuthorizeReference hook
// to say yes; without the hook it is always refused.
func (a *ReferenceAuthorizer) Resolve(ctx context.Context, sess *model.Session, referenceID string, action Action) (string, error) {
	if sess == nil || sess.User.IsZero() {
		return "", domain.Unauthorized(domain.CodeUnauthorized, "session required")
	}
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" || referenceID == sess.User.ID {
		return sess.User.ID, nil
	}
	if a.authorize == nil {
		return "", domain.Forbidden(domain.CodeUnauthorizedReference, "not allowed to act on this reference")
	}
	ok, err := a.authorize(ctx, AuthorizeReferenceRequest{User: sess.User, Session: sess, ReferenceID: referenceID, Action: action})
	if err != nil {
		logging.With(ctx, a.log).Warn().Err(err).Str("action", string(action)).Msg("authorize reference hook failed")
		ok = false
	}
	if !ok {
		return "", domain.Forbidden(domain.CodeUnauthorizedReference, "not allowed to act on this reference")
	}
	return referenceID, nil
}

// Owns reports whether the session may mutate state owned by referenceID.
// Besides the hook it accepts owners and admins of an organization, which lets
// a teammate finish a checkout started by someone else.
func (a *ReferenceAuthorizer) Owns(ctx context.Context, sess *model.Session, referenceID string, action Action) bool {
	if sess == nil || sess.User.IsZero() || referenceID == "" {
		return false
	}
	if referenceID == sess.User.ID {
		return true
	}
	if a.authorize != nil {
		ok, err := a.authorize(ctx, AuthorizeReferenceRequest{User: sess.User, Session: sess, ReferenceID: referenceID, Action: action})
		if err != nil {
			logging.With(ctx, a.log).Warn().Err(err).Str("action", string(action)).Msg("authorize reference hook failed")
			return false
		}
		return ok
	}
	if a.orgs == nil {
		return false
	}
	m, err := a.orgs.FindMember(ctx, nil, referenceID, sess.User.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, a.log).Warn().Err(err).Msg("membership lookup failed")
		}
		return false
	}
	return m.Role.CanManageBilling()
}
