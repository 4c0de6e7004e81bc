//go:build !integration

package usecase_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

//
// ---------------- transactions ----------------
//

type MockTransactionRepo struct {
	mu    sync.Mutex
	byRef map[string]*model.Transaction
	order []string

	SaveErr error
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{byRef: map[string]*model.Transaction{}}
}

func (m *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[t.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *t
	m.byRef[t.Reference] = &cp
	m.order = append(m.order, t.Reference)
	return nil
}

func (m *MockTransactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTransactionRepo) ListByReferenceID(ctx context.Context, tx repository.Tx, referenceID string) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for i := len(m.order) - 1; i >= 0; i-- {
		if t := m.byRef[m.order[i]]; t.ReferenceID == referenceID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTransactionRepo) MarkStatus(ctx context.Context, tx repository.Tx, reference string, status model.TransactionStatus, paystackID string, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byRef[reference]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, from := range model.TransactionStatusesInto(status) {
		if t.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	t.Status = status
	if paystackID != "" {
		t.PaystackID = paystackID
	}
	if paidAt != nil {
		t.PaidAt = paidAt
	}
	return true, nil
}

func (m *MockTransactionRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRef)
}

//
// ---------------- subscriptions ----------------
//

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	rows []*model.Subscription // insertion order
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo { return &MockSubscriptionRepo{} }

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == s.ID {
			cp := *s
			m.rows[i] = &cp
			return nil
		}
	}
	cp := *s
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *MockSubscriptionRepo) first(match func(*model.Subscription) bool) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if match(m.rows[i]) {
			cp := *m.rows[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) all(match func(*model.Subscription) bool) []*model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for i := len(m.rows) - 1; i >= 0; i-- {
		if match(m.rows[i]) {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return m.first(func(s *model.Subscription) bool { return s.ID == id })
}

func (m *MockSubscriptionRepo) FindByPaystackCode(ctx context.Context, tx repository.Tx, code string) (*model.Subscription, error) {
	return m.first(func(s *model.Subscription) bool { return code != "" && s.PaystackSubscriptionCode == code })
}

func (m *MockSubscriptionRepo) FindByTransactionReference(ctx context.Context, tx repository.Tx, reference, referenceID string) (*model.Subscription, error) {
	return m.first(func(s *model.Subscription) bool {
		return s.PaystackTransactionReference == reference && s.ReferenceID == referenceID
	})
}

func (m *MockSubscriptionRepo) FindEffective(ctx context.Context, tx repository.Tx, referenceID string) (*model.Subscription, error) {
	return m.first(func(s *model.Subscription) bool { return s.ReferenceID == referenceID && s.IsEffective() })
}

func (m *MockSubscriptionRepo) ListByReferenceID(ctx context.Context, tx repository.Tx, referenceID string) ([]*model.Subscription, error) {
	return m.all(func(s *model.Subscription) bool { return s.ReferenceID == referenceID }), nil
}

func (m *MockSubscriptionRepo) ListByCustomerCode(ctx context.Context, tx repository.Tx, customerCode string) ([]*model.Subscription, error) {
	if customerCode == "" {
		return nil, nil
	}
	return m.all(func(s *model.Subscription) bool { return s.PaystackCustomerCode == customerCode }), nil
}

func (m *MockSubscriptionRepo) HasTrialHistory(ctx context.Context, tx repository.Tx, referenceID string) (bool, error) {
	return len(m.all(func(s *model.Subscription) bool { return s.ReferenceID == referenceID && s.HasTrialMarker() })) > 0, nil
}

func (m *MockSubscriptionRepo) Confirm(ctx context.Context, tx repository.Tx, reference, referenceID string, upd repository.ConfirmUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.PaystackTransactionReference != reference || s.ReferenceID != referenceID || !s.AwaitingConfirmation() {
			continue
		}
		s.Status = upd.Status
		start := upd.PeriodStart
		s.PeriodStart = &start
		s.PeriodEnd = upd.PeriodEnd
		if upd.CustomerCode != "" {
			s.PaystackCustomerCode = upd.CustomerCode
		}
		return true, nil
	}
	return false, nil
}

func (m *MockSubscriptionRepo) Attach(ctx context.Context, tx repository.Tx, id string, att repository.ProviderAttachment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ID != id || s.Status == model.SubscriptionStatusCanceled || s.Status == model.SubscriptionStatusIncompleteExpired {
			continue
		}
		s.PaystackSubscriptionCode = att.SubscriptionCode
		if att.EmailToken != "" {
			s.PaystackEmailToken = att.EmailToken
		}
		if att.CustomerCode != "" {
			s.PaystackCustomerCode = att.CustomerCode
		}
		s.Status = att.Status
		if s.PeriodStart == nil {
			now := time.Now()
			s.PeriodStart = &now
		}
		return true, nil
	}
	return false, nil
}

func (m *MockSubscriptionRepo) CancelByPaystackCode(ctx context.Context, tx repository.Tx, code string) (*model.Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if code == "" || s.PaystackSubscriptionCode != code || !s.Status.CanTransitionTo(model.SubscriptionStatusCanceled) || s.Status == model.SubscriptionStatusCanceled {
			continue
		}
		prev := *s
		s.Status = model.SubscriptionStatusCanceled
		s.CancelAtPeriodEnd = true
		return &prev, true, nil
	}
	return nil, false, nil
}

func (m *MockSubscriptionRepo) UpdateStatusByPaystackCode(ctx context.Context, tx repository.Tx, code string, status model.SubscriptionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if code == "" || s.PaystackSubscriptionCode != code || s.Status == status || !s.Status.CanTransitionTo(status) {
			continue
		}
		s.Status = status
		return true, nil
	}
	return false, nil
}

func (m *MockSubscriptionRepo) SetCancelAtPeriodEnd(ctx context.Context, tx repository.Tx, id, referenceID string, cancel bool, status *model.SubscriptionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ID != id || s.ReferenceID != referenceID || s.Status == model.SubscriptionStatusCanceled || s.Status == model.SubscriptionStatusIncompleteExpired {
			continue
		}
		s.CancelAtPeriodEnd = cancel
		if status != nil {
			s.Status = *status
		}
		return true, nil
	}
	return false, nil
}

func (m *MockSubscriptionRepo) SetEmailToken(ctx context.Context, tx repository.Tx, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ID == id {
			s.PaystackEmailToken = token
			return nil
		}
	}
	return domain.ErrNotFound
}

// Rows returns copies of every row for referenceID, newest first.
func (m *MockSubscriptionRepo) Rows(referenceID string) []*model.Subscription {
	return m.all(func(s *model.Subscription) bool { return s.ReferenceID == referenceID })
}

//
// ---------------- users & organizations ----------------
//

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	m := &MockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) SetCustomerCode(ctx context.Context, tx repository.Tx, id, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.PaystackCustomerCode != "" {
		return false, nil
	}
	u.PaystackCustomerCode = code
	return true, nil
}

type MockOrganizationRepo struct {
	mu      sync.Mutex
	orgs    map[string]*model.Organization
	members map[string][]*model.Member
	users   map[string]*model.User
	teams   map[string]int
}

func NewMockOrganizationRepo() *MockOrganizationRepo {
	return &MockOrganizationRepo{
		orgs:    map[string]*model.Organization{},
		members: map[string][]*model.Member{},
		users:   map[string]*model.User{},
		teams:   map[string]int{},
	}
}

func (m *MockOrganizationRepo) AddOrg(o *model.Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orgs[o.ID] = &cp
}

func (m *MockOrganizationRepo) AddMember(orgID string, u *model.User, role model.MemberRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	m.members[orgID] = append(m.members[orgID], &model.Member{
		ID: model.NewID(), OrganizationID: orgID, UserID: u.ID, Role: role, Email: u.Email,
	})
}

func (m *MockOrganizationRepo) SetTeams(orgID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[orgID] = n
}

func (m *MockOrganizationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrganizationRepo) FindOwner(ctx context.Context, tx repository.Tx, orgID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members[orgID] {
		if mem.Role == model.MemberRoleOwner {
			cp := *m.users[mem.UserID]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrganizationRepo) FindMember(ctx context.Context, tx repository.Tx, orgID, userID string) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members[orgID] {
		if mem.UserID == userID {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrganizationRepo) CountMembers(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members[orgID]), nil
}

func (m *MockOrganizationRepo) CountTeams(ctx context.Context, tx repository.Tx, orgID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teams[orgID], nil
}

func (m *MockOrganizationRepo) SetCustomerCode(ctx context.Context, tx repository.Tx, id, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok || o.PaystackCustomerCode != "" {
		return false, nil
	}
	o.PaystackCustomerCode = code
	return true, nil
}

//
// ---------------- infra ----------------
//

type MockTxManager struct{ Calls int }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	return fn(ctx, nil)
}

type MockDeliveryLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (m *MockDeliveryLog) FirstDelivery(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]struct{}{}
	}
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

type MockLimiter struct {
	Allowed bool
	Keys    []string
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.Keys = append(m.Keys, key)
	return m.Allowed, nil
}

// prefixCipher marks values instead of encrypting them.
type prefixCipher struct{}

func (prefixCipher) Encrypt(s string) (string, error) { return "sealed:" + s, nil }
func (prefixCipher) Decrypt(s string) (string, error) { return strings.TrimPrefix(s, "sealed:"), nil }

//
// ---------------- provider ----------------
//

type MockProvider struct {
	mu sync.Mutex

	InitializeFunc   func(ctx context.Context, p adapter.InitializeParams) (*adapter.InitializeResult, error)
	VerifyFunc       func(ctx context.Context, reference string) (*adapter.Charge, error)
	CreateSubFunc    func(ctx context.Context, p adapter.SubscriptionParams) (*adapter.ProviderSubscription, error)
	FetchSubFunc     func(ctx context.Context, code string) (*adapter.ProviderSubscription, error)
	DisableFunc      func(ctx context.Context, code, token string) error
	EnableFunc       func(ctx context.Context, code, token string) error
	ManageLinkFunc   func(ctx context.Context, code string) (string, error)
	CreateCustomerFn func(ctx context.Context, p adapter.CustomerParams) (*adapter.Customer, error)

	Initialized []adapter.InitializeParams
	Calls       map[string]int
	seq         int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Calls: map[string]int{}}
}

func (m *MockProvider) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
}

func (m *MockProvider) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) CreateCustomer(ctx context.Context, p adapter.CustomerParams) (*adapter.Customer, error) {
	m.count("create_customer")
	if m.CreateCustomerFn != nil {
		return m.CreateCustomerFn(ctx, p)
	}
	return &adapter.Customer{ID: 1, CustomerCode: "CUS_" + p.Email, Email: p.Email}, nil
}

func (m *MockProvider) UpdateCustomer(ctx context.Context, code string, p adapter.CustomerParams) (*adapter.Customer, error) {
	m.count("update_customer")
	return &adapter.Customer{CustomerCode: code, Email: p.Email}, nil
}

func (m *MockProvider) InitializeTransaction(ctx context.Context, p adapter.InitializeParams) (*adapter.InitializeResult, error) {
	m.count("initialize")
	m.mu.Lock()
	m.Initialized = append(m.Initialized, p)
	m.seq++
	n := m.seq
	m.mu.Unlock()
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, p)
	}
	ref := "ref_" + string(rune('a'+n-1))
	return &adapter.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + ref,
		AccessCode:       "acc_" + ref,
		Reference:        ref,
	}, nil
}

func (m *MockProvider) LastInitialize() adapter.InitializeParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Initialized[len(m.Initialized)-1]
}

func (m *MockProvider) VerifyTransaction(ctx context.Context, reference string) (*adapter.Charge, error) {
	m.count("verify")
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	return &adapter.Charge{
		ID:            42,
		Reference:     reference,
		Status:        "success",
		Amount:        500000,
		Currency:      "NGN",
		PaidAt:        time.Now().UTC().Format(time.RFC3339),
		Customer:      adapter.Customer{CustomerCode: "CUS_paid"},
		Authorization: adapter.Authorization{AuthorizationCode: "AUTH_1", Reusable: true},
	}, nil
}

func (m *MockProvider) CreateSubscription(ctx context.Context, p adapter.SubscriptionParams) (*adapter.ProviderSubscription, error) {
	m.count("create_subscription")
	if m.CreateSubFunc != nil {
		return m.CreateSubFunc(ctx, p)
	}
	return &adapter.ProviderSubscription{SubscriptionCode: "SUB_trial", EmailToken: "tok_trial", Status: "active"}, nil
}

func (m *MockProvider) FetchSubscription(ctx context.Context, code string) (*adapter.ProviderSubscription, error) {
	m.count("fetch_subscription")
	if m.FetchSubFunc != nil {
		return m.FetchSubFunc(ctx, code)
	}
	return &adapter.ProviderSubscription{SubscriptionCode: code}, nil
}

func (m *MockProvider) DisableSubscription(ctx context.Context, code, token string) error {
	m.count("disable")
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, code, token)
	}
	return nil
}

func (m *MockProvider) EnableSubscription(ctx context.Context, code, token string) error {
	m.count("enable")
	if m.EnableFunc != nil {
		return m.EnableFunc(ctx, code, token)
	}
	return nil
}

func (m *MockProvider) ManageLink(ctx context.Context, code string) (string, error) {
	m.count("manage_link")
	if m.ManageLinkFunc != nil {
		return m.ManageLinkFunc(ctx, code)
	}
	return "https://paystack.com/manage/" + code, nil
}
