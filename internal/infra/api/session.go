package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"paystack-billing/internal/config"
	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
)

// ===== Host session resolution =====

// SessionClaims is the token the host application issues. Subject is the user id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTSessions resolves the caller's session from a bearer token or the
// session cookie and loads the user it names.
type JWTSessions struct {
	secret []byte
	issuer string
	cookie string
	users  repository.UserRepository
}

func NewJWTSessions(cfg config.AuthConfig, users repository.UserRepository) *JWTSessions {
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "session_token"
	}
	return &JWTSessions{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, cookie: cookie, users: users}
}

// Mint issues a session token for userID. The host normally does this; the
// billing service uses it in development and tests.
func (s *JWTSessions) Mint(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}
	now := time.Now()
	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

var errNoSession = domain.Unauthorized(domain.CodeUnauthorized, "authentication required")

func (s *JWTSessions) Session(r *http.Request) (*model.Session, error) {
	raw := tokenFromRequest(r, s.cookie)
	if raw == "" {
		return nil, errNoSession
	}
	claims, err := s.parse(raw)
	if err != nil {
		return nil, errNoSession
	}
	user, err := s.users.FindByID(r.Context(), nil, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
		return nil, errNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return &model.Session{ID: claims.ID, User: user}, nil
}

func tokenFromRequest(r *http.Request, cookie string) string {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *JWTSessions) parse(tok string) (*SessionClaims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("session secret not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
