package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"paystack-billing/internal/domain/ports/adapter"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

var _ adapter.WebhookVerifier = (*Signer)(nil)

// Signer computes and checks webhook signatures with the account secret key.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA512 of body.
func (s *Signer) Sign(body []byte) string {
	h := hmac.New(sha512.New, s.secret)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify compares in constant time. An empty secret never verifies.
func (s *Signer) Verify(body []byte, signature string) bool {
	if len(s.secret) == 0 {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha512.Size {
		return false
	}
	h := hmac.New(sha512.New, s.secret)
	h.Write(body)
	return hmac.Equal(h.Sum(nil), got)
}
