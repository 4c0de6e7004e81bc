package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/usecase"
)

// Sessions resolves the host application's session for a request. It returns
// a 401 APIError when the caller is not signed in.
type Sessions interface {
	Session(r *http.Request) (*model.Session, error)
}

type Deps struct {
	Transactions  usecase.TransactionUseCase
	Subscriptions usecase.SubscriptionUseCase
	Webhooks      usecase.WebhookUseCase
	References    *usecase.ReferenceAuthorizer
	Catalog       *usecase.Catalog
	Sessions      Sessions
	Currency      string
}

// Server implements the billing HTTP surface.
type Server struct {
	txs      usecase.TransactionUseCase
	subs     usecase.SubscriptionUseCase
	webhooks usecase.WebhookUseCase
	refs     *usecase.ReferenceAuthorizer
	catalog  *usecase.Catalog
	sessions Sessions
	currency string
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) (*Server, error) {
	if d.Transactions == nil || d.Subscriptions == nil || d.Webhooks == nil {
		return nil, errors.New("apiv1: use cases are required")
	}
	if d.References == nil || d.Catalog == nil || d.Sessions == nil {
		return nil, errors.New("apiv1: references, catalog and sessions are required")
	}
	return &Server{
		txs:      d.Transactions,
		subs:     d.Subscriptions,
		webhooks: d.Webhooks,
		refs:     d.References,
		catalog:  d.Catalog,
		sessions: d.Sessions,
		currency: strings.ToUpper(d.Currency),
		validate: validator.New(),
		log:      logger,
	}, nil
}

type ctxKey int

const (
	ctxSession ctxKey = iota
	ctxReference
)

func sessionFrom(ctx context.Context) *model.Session {
	s, _ := ctx.Value(ctxSession).(*model.Session)
	return s
}

// referenceFrom returns the billing target the reference middleware authorized.
func referenceFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxReference).(string)
	return s
}
