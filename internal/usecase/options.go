package usecase

import (
	"net/url"
	"strings"
	"time"
)

// BillingOptions is the billing behaviour the deployer configures.
type BillingOptions struct {
	BaseURL        string
	TrustedOrigins []string

	Currency                 string
	TrialAuthorizationAmount int64
	MinimumAmounts           map[string]int64 // per currency, "default" as fallback
	PlanCodeRequiresAmount   bool

	SubscriptionsEnabled     bool
	RequireEmailVerification bool
	OrganizationsEnabled     bool

	CheckoutLockTTL time.Duration
	Dev             bool
}

func (o BillingOptions) minimumAmount(currency string) int64 {
	if v, ok := o.MinimumAmounts[strings.ToUpper(currency)]; ok {
		return v
	}
	return o.MinimumAmounts["default"]
}

func origin(u *url.URL) string {
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// trustedCallback reports whether raw may be used as a post-checkout
// redirect. Relative paths are accepted; absolute URLs must share the origin
// of BaseURL or one of TrustedOrigins.
func (o BillingOptions) trustedCallback(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	want := make([]string, 0, len(o.TrustedOrigins)+1)
	if base, err := url.Parse(o.BaseURL); err == nil && base.Host != "" {
		want = append(want, origin(base))
	}
	for _, t := range o.TrustedOrigins {
		if tu, err := url.Parse(strings.TrimSpace(t)); err == nil && tu.Host != "" {
			want = append(want, origin(tu))
		}
	}
	got := origin(u)
	for _, w := range want {
		if got == w {
			return true
		}
	}
	return false
}

// absoluteCallback turns a relative callback path into a URL under BaseURL.
func (o BillingOptions) absoluteCallback(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return raw
	}
	base, err := url.Parse(o.BaseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
