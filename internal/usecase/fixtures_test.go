//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/usecase"
)

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }

var (
	userA = &model.User{ID: "user_a", Email: "a@example.com", Name: "Ada Lovelace", EmailVerified: true}
	userB = &model.User{ID: "user_b", Email: "b@example.com", Name: "Bola", EmailVerified: true}
)

func sessionFor(u *model.User) *model.Session {
	return &model.Session{ID: "sess_" + u.ID, User: u}
}

func testPlans() []model.Plan {
	return []model.Plan{
		{Name: "starter", Amount: 250000, Currency: "NGN", Interval: model.IntervalMonthly},
		{Name: "pro", PlanCode: "PLN_pro", Interval: model.IntervalMonthly, Limits: &model.PlanLimits{Seats: intPtr(3), Teams: intPtr(2)}},
		{Name: "team", PlanCode: "PLN_team", Amount: 900000, Interval: model.IntervalAnnually, FreeTrial: &model.FreeTrial{Days: 14}},
		{Name: "local-trial", Amount: 100000, Interval: model.IntervalMonthly, FreeTrial: &model.FreeTrial{Days: 7}},
	}
}

func testProducts() []model.Product {
	return []model.Product{
		{Name: "credits-100", Amount: 150000.4, Currency: "NGN"},
	}
}

// billingDeps bundles the fakes behind a Deps value.
type billingDeps struct {
	txs      *MockTransactionRepo
	subs     *MockSubscriptionRepo
	users    *MockUserRepo
	orgs     *MockOrganizationRepo
	provider *MockProvider
	txm      *MockTxManager
	hooks    usecase.Hooks
}

func newBillingDeps() *billingDeps {
	return &billingDeps{
		txs:      NewMockTransactionRepo(),
		subs:     NewMockSubscriptionRepo(),
		users:    NewMockUserRepo(userA, userB),
		orgs:     NewMockOrganizationRepo(),
		provider: NewMockProvider(),
		txm:      &MockTxManager{},
	}
}

func (d *billingDeps) deps() usecase.Deps {
	return usecase.Deps{
		Transactions:  d.txs,
		Subscriptions: d.subs,
		Users:         d.users,
		Orgs:          d.orgs,
		TxManager:     d.txm,
		Provider:      d.provider,
		Catalog:       usecase.NewCatalog(usecase.StaticPlans(testPlans()), usecase.StaticProducts(testProducts())),
		Cipher:        prefixCipher{},
		Hooks:         d.hooks,
	}
}

func defaultOptions() usecase.BillingOptions {
	return usecase.BillingOptions{
		BaseURL:                  "https://app.example.com",
		TrustedOrigins:           []string{"https://billing.example.com"},
		Currency:                 "NGN",
		TrialAuthorizationAmount: 5000,
		MinimumAmounts:           map[string]int64{"default": 5000, "USD": 200},
		PlanCodeRequiresAmount:   true,
		SubscriptionsEnabled:     true,
		OrganizationsEnabled:     true,
	}
}

func newTransactionUC(t *testing.T, d *billingDeps, opts usecase.BillingOptions) usecase.TransactionUseCase {
	t.Helper()
	uc, err := usecase.NewTransactionUseCase(d.deps(), opts, nil, newTestLogger())
	if err != nil {
		t.Fatalf("NewTransactionUseCase: %v", err)
	}
	return uc
}

func requireCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, apiErr.Code)
	}
	if status != 0 && apiErr.Status != status {
		t.Fatalf("expected status %d, got %d", status, apiErr.Status)
	}
}

func mustInitialize(t *testing.T, uc usecase.TransactionUseCase, u *model.User, req usecase.InitializeRequest) *usecase.InitializeResult {
	t.Helper()
	res, err := uc.Initialize(context.Background(), sessionFor(u), req)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return res
}
