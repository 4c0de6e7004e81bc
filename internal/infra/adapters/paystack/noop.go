package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var _ FlatClient = (*NoopClient)(nil)

// NoopClient is an in-memory Paystack in the flat shape, used in dev mode and
// tests. Every initialized transaction verifies as successful unless marked
// otherwise with SetChargeStatus.
type NoopClient struct {
	mu            sync.Mutex
	seq           int
	customers     map[string]map[string]any // code -> customer
	charges       map[string]map[string]any // reference -> charge
	subscriptions map[string]map[string]any // code -> subscription
}

func NewNoopClient() *NoopClient {
	return &NoopClient{
		customers:     make(map[string]map[string]any),
		charges:       make(map[string]map[string]any),
		subscriptions: make(map[string]map[string]any),
	}
}

func (n *NoopClient) Name() string { return "noop" }

func ok(data any) map[string]any {
	return map[string]any{"status": true, "message": "ok", "data": data}
}

func notFound(what string) map[string]any {
	return map[string]any{"status": false, "message": what + " not found"}
}

// asMap round-trips a typed request body into a generic map.
func asMap(body any) map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(body)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

func (n *NoopClient) nextCode(prefix string) string {
	n.seq++
	return fmt.Sprintf("%s_noop%d", prefix, n.seq)
}

func (n *NoopClient) CustomerCreate(ctx context.Context, body any) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	in := asMap(body)
	code := n.nextCode("CUS")
	c := map[string]any{"id": n.seq, "customer_code": code, "email": in["email"]}
	n.customers[code] = c
	return ok(c), nil
}

func (n *NoopClient) CustomerUpdate(ctx context.Context, code string, body any) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, found := n.customers[code]
	if !found {
		return notFound("customer"), nil
	}
	for k, v := range asMap(body) {
		c[k] = v
	}
	return ok(c), nil
}

func (n *NoopClient) TransactionInitialize(ctx context.Context, body any) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	in := asMap(body)
	ref, _ := in["reference"].(string)
	if ref == "" {
		ref = strings.ToLower(ulid.Make().String())
	}
	email, _ := in["email"].(string)
	code := n.nextCode("CUS")
	n.customers[code] = map[string]any{"id": n.seq, "customer_code": code, "email": email}
	n.charges[ref] = map[string]any{
		"id":        n.seq,
		"reference": ref,
		"status":    "success",
		"amount":    in["amount"],
		"currency":  in["currency"],
		"paid_at":   time.Now().UTC().Format(time.RFC3339),
		"metadata":  in["metadata"],
		"customer":  map[string]any{"customer_code": code, "email": email},
		"authorization": map[string]any{
			"authorization_code": n.nextCode("AUTH"),
			"reusable":           true,
		},
	}
	return ok(map[string]any{
		"authorization_url": "https://checkout.paystack.test/" + ref,
		"access_code":       "access_" + ref,
		"reference":         ref,
	}), nil
}

// SetChargeStatus overrides the status the next verify returns for reference.
func (n *NoopClient) SetChargeStatus(reference, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, found := n.charges[reference]; found {
		c["status"] = status
	}
}

func (n *NoopClient) TransactionVerify(ctx context.Context, reference string) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, found := n.charges[reference]
	if !found {
		return notFound("transaction"), nil
	}
	return ok(c), nil
}

func (n *NoopClient) SubscriptionCreate(ctx context.Context, body any) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	in := asMap(body)
	code := n.nextCode("SUB")
	s := map[string]any{
		"id":                n.seq,
		"subscription_code": code,
		"email_token":       n.nextCode("tok"),
		"status":            "active",
		"customer":          map[string]any{"customer_code": in["customer"]},
		"plan":              map[string]any{"plan_code": in["plan"]},
	}
	n.subscriptions[code] = s
	return ok(s), nil
}

func (n *NoopClient) SubscriptionFetch(ctx context.Context, code string) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, found := n.subscriptions[code]
	if !found {
		return notFound("subscription"), nil
	}
	return ok(s), nil
}

func (n *NoopClient) toggle(body any, status string) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	in := asMap(body)
	code, _ := in["code"].(string)
	s, found := n.subscriptions[code]
	if !found {
		return notFound("subscription"), nil
	}
	if token, _ := in["token"].(string); token != s["email_token"] {
		return map[string]any{"status": false, "message": "invalid email token"}, nil
	}
	s["status"] = status
	return map[string]any{"status": true, "message": "Subscription " + status}, nil
}

func (n *NoopClient) SubscriptionDisable(ctx context.Context, body any) (any, error) {
	return n.toggle(body, "non-renewing")
}

func (n *NoopClient) SubscriptionEnable(ctx context.Context, body any) (any, error) {
	return n.toggle(body, "active")
}

func (n *NoopClient) SubscriptionManageLink(ctx context.Context, code string) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, found := n.subscriptions[code]; !found {
		return notFound("subscription"), nil
	}
	return ok(map[string]any{"link": "https://paystack.test/manage/" + code}), nil
}
