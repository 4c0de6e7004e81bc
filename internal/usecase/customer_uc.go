package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/infra/logging"
)

// Compile-time check
var _ CustomerUseCase = (*customerUC)(nil)

type CustomerUseCase interface {
	// EnsureCustomer creates the provider customer for user unless one is
	// already stored, and returns its code.
	EnsureCustomer(ctx context.Context, user *model.User) (string, error)
}

type customerUC struct {
	Deps
	dev bool
	log *zerolog.Logger
}

func NewCustomerUseCase(deps Deps, dev bool, logger *zerolog.Logger) (*customerUC, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &customerUC{Deps: deps, dev: dev, log: logger}, nil
}

func (u *customerUC) EnsureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.IsZero() {
		return "", domain.ErrInvalidArgument
	}
	if user.PaystackCustomerCode != "" {
		return user.PaystackCustomerCode, nil
	}
	if strings.TrimSpace(user.Email) == "" {
		return "", domain.BadRequest(domain.CodeEmailRequired, "user has no email")
	}
	first, last, _ := strings.Cut(strings.TrimSpace(user.Name), " ")
	c, err := u.Provider.CreateCustomer(ctx, adapter.CustomerParams{
		Email:     user.Email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Metadata:  map[string]any{"userId": user.ID},
	})
	if err != nil {
		return "", fmt.Errorf("create provider customer: %w", err)
	}

	stored, err := u.Users.SetCustomerCode(ctx, nil, user.ID, c.CustomerCode)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return "", fmt.Errorf("store customer code: %w", err)
	}
	logging.With(ctx, u.log).Info().
		Str("user_id", user.ID).
		Str("email", logging.Redact(user.Email, u.dev)).
		Bool("stored", stored).
		Msg("provider customer created")

	user.PaystackCustomerCode = c.CustomerCode
	fire(ctx, u.log, "customer_create", u.Hooks.OnCustomerCreate, CustomerEvent{User: user, CustomerCode: c.CustomerCode})
	return c.CustomerCode, nil
}
