package apiv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/infra/logging"
)

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps err onto its APIError. Anything else is logged and reported as a
// bare 500 so raw provider or database errors never reach the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := domain.AsAPIError(err); ok {
		writeJSON(w, apiErr.Status, apiErr)
		return
	}
	logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, &domain.APIError{Code: "INTERNAL_ERROR", Message: "internal error"})
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.BadRequest(domain.CodeInvalidRequestBody, "request body is not valid JSON")
	}
	if err := s.validate.Struct(dst); err != nil {
		return domain.BadRequest(domain.CodeInvalidRequestBody, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
