package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.paystack.co"

var _ NestedClient = (*Client)(nil)

// Client is a minimal Paystack REST client in the nested shape. Responses are
// returned as the raw provider envelope.
type Client struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewClient(secretKey, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("paystack secret key empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid paystack base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string { return "paystack" }

func (c *Client) Customer() CustomerAPI         { return customerAPI{c} }
func (c *Client) Transaction() TransactionAPI   { return transactionAPI{c} }
func (c *Client) Subscription() SubscriptionAPI { return subscriptionAPI{c} }

// do sends one request and returns the response body. Non-2xx responses are
// turned into *Error carrying the provider message.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("paystack: encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var out struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &out)
		if out.Message == "" {
			out.Message = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: out.Message}
	}
	return raw, nil
}

type customerAPI struct{ c *Client }

func (a customerAPI) Create(ctx context.Context, body any) (any, error) {
	return a.c.do(ctx, http.MethodPost, "/customer", body)
}

func (a customerAPI) Update(ctx context.Context, code string, body any) (any, error) {
	return a.c.do(ctx, http.MethodPut, "/customer/"+url.PathEscape(code), body)
}

type transactionAPI struct{ c *Client }

func (a transactionAPI) Initialize(ctx context.Context, body any) (any, error) {
	return a.c.do(ctx, http.MethodPost, "/transaction/initialize", body)
}

func (a transactionAPI) Verify(ctx context.Context, reference string) (any, error) {
	return a.c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
}

type subscriptionAPI struct{ c *Client }

func (a subscriptionAPI) Create(ctx context.Context, body any) (any, error) {
	return a.c.do(ctx, http.MethodPost, "/subscription", body)
}

func (a subscriptionAPI) Fetch(ctx context.Context, code string) (any, error) {
	return a.c.do(ctx, http.MethodGet, "/subscription/"+url.PathEscape(code), nil)
}

func (a subscriptionAPI) Disable(ctx context.Context, body any) (any, error) {
	return a.c.do(ctx, http.MethodPost, "/subscription/disable", body)
}

func (a subscriptionAPI) Enable(ctx context.Context, body any) (any, error) {
	return a.c.do(ctx, http.MethodPost, "/subscription/enable", body)
}

func (a subscriptionAPI) ManageLink(ctx context.Context, code string) (any, error) {
	return a.c.do(ctx, http.MethodGet, "/subscription/"+url.PathEscape(code)+"/manage/link", nil)
}
