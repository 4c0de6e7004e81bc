package apiv1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/infra/logging"
	"paystack-billing/internal/usecase"
)

const maxBodyBytes = 1 << 20

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Session(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if sess == nil || sess.User.IsZero() {
			s.fail(w, r, domain.Unauthorized(domain.CodeUnauthorized, "authentication required"))
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		ctx = logging.WithUserID(ctx, sess.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reference authorizes the referenceId named by the request, from the JSON
// body for writes and the query string for reads, for action.
func (s *Server) reference(action usecase.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			candidate, err := peekReferenceID(r)
			if err != nil {
				s.fail(w, r, domain.BadRequest(domain.CodeInvalidRequestBody, "malformed request"))
				return
			}
			ref, err := s.refs.Resolve(r.Context(), sessionFrom(r.Context()), candidate, action)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxReference, ref)
			ctx = logging.WithReferenceID(ctx, ref)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// peekReferenceID reads referenceId without consuming the body.
func peekReferenceID(r *http.Request) (string, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		var ref string
		if err := runtime.BindQueryParameter("form", true, false, "referenceId", r.URL.Query(), &ref); err != nil {
			return "", err
		}
		return ref, nil
	}
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	if len(body) > maxBodyBytes {
		return "", errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	var peek struct {
		ReferenceID string `json:"referenceId"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return "", err
	}
	return peek.ReferenceID, nil
}
