package paystack

import "context"

// Paystack SDKs come in two shapes: one exposes flat verb functions, the other
// groups operations under resource namespaces. Responses are returned untyped
// because each SDK wraps them differently. The Adapter accepts either shape.

// FlatClient exposes every provider operation as a top-level verb.
type FlatClient interface {
	CustomerCreate(ctx context.Context, body any) (any, error)
	CustomerUpdate(ctx context.Context, code string, body any) (any, error)
	TransactionInitialize(ctx context.Context, body any) (any, error)
	TransactionVerify(ctx context.Context, reference string) (any, error)
	SubscriptionCreate(ctx context.Context, body any) (any, error)
	SubscriptionFetch(ctx context.Context, code string) (any, error)
	SubscriptionDisable(ctx context.Context, body any) (any, error)
	SubscriptionEnable(ctx context.Context, body any) (any, error)
	SubscriptionManageLink(ctx context.Context, code string) (any, error)
}

// NestedClient groups operations by resource.
type NestedClient interface {
	Customer() CustomerAPI
	Transaction() TransactionAPI
	Subscription() SubscriptionAPI
}

type CustomerAPI interface {
	Create(ctx context.Context, body any) (any, error)
	Update(ctx context.Context, code string, body any) (any, error)
}

type TransactionAPI interface {
	Initialize(ctx context.Context, body any) (any, error)
	Verify(ctx context.Context, reference string) (any, error)
}

type SubscriptionAPI interface {
	Create(ctx context.Context, body any) (any, error)
	Fetch(ctx context.Context, code string) (any, error)
	Disable(ctx context.Context, body any) (any, error)
	Enable(ctx context.Context, body any) (any, error)
	ManageLink(ctx context.Context, code string) (any, error)
}

// operations is the normalized call table both shapes are reduced to.
type operations struct {
	customerCreate         func(ctx context.Context, body any) (any, error)
	customerUpdate         func(ctx context.Context, code string, body any) (any, error)
	transactionInitialize  func(ctx context.Context, body any) (any, error)
	transactionVerify      func(ctx context.Context, reference string) (any, error)
	subscriptionCreate     func(ctx context.Context, body any) (any, error)
	subscriptionFetch      func(ctx context.Context, code string) (any, error)
	subscriptionDisable    func(ctx context.Context, body any) (any, error)
	subscriptionEnable     func(ctx context.Context, body any) (any, error)
	subscriptionManageLink func(ctx context.Context, code string) (any, error)
}

func operationsFor(client any) (*operations, error) {
	switch c := client.(type) {
	case NestedClient:
		cu, tr, su := c.Customer(), c.Transaction(), c.Subscription()
		if cu == nil || tr == nil || su == nil {
			return nil, ErrUnsupportedClient
		}
		return &operations{
			customerCreate:         cu.Create,
			customerUpdate:         cu.Update,
			transactionInitialize:  tr.Initialize,
			transactionVerify:      tr.Verify,
			subscriptionCreate:     su.Create,
			subscriptionFetch:      su.Fetch,
			subscriptionDisable:    su.Disable,
			subscriptionEnable:     su.Enable,
			subscriptionManageLink: su.ManageLink,
		}, nil
	case FlatClient:
		return &operations{
			customerCreate:         c.CustomerCreate,
			customerUpdate:         c.CustomerUpdate,
			transactionInitialize:  c.TransactionInitialize,
			transactionVerify:      c.TransactionVerify,
			subscriptionCreate:     c.SubscriptionCreate,
			subscriptionFetch:      c.SubscriptionFetch,
			subscriptionDisable:    c.SubscriptionDisable,
			subscriptionEnable:     c.SubscriptionEnable,
			subscriptionManageLink: c.SubscriptionManageLink,
		}, nil
	default:
		return nil, ErrUnsupportedClient
	}
}
