package paystack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedClient = errors.New("paystack: client exposes neither the flat nor the nested operation set")
	ErrEmptyResponse     = errors.New("paystack: empty response")
)

// maxEnvelopeDepth bounds how many wrappers are peeled off a response.
const maxEnvelopeDepth = 4

// Error is a provider-reported failure. Message is safe to log but is never
// sent to API clients.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("paystack: %d %s", e.StatusCode, e.Message)
	}
	return "paystack: " + e.Message
}

// toJSON turns an untyped SDK response into JSON bytes.
func toJSON(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrEmptyResponse
	case json.RawMessage:
		return x, nil
	case []byte:
		return x, nil
	case string:
		if !json.Valid([]byte(x)) {
			return json.Marshal(x)
		}
		return []byte(x), nil
	default:
		return json.Marshal(x)
	}
}

// unwrap peels the wrappers SDKs put around the provider payload:
//
//	{status, message, data}         provider REST envelope
//	{data, error, response}         SDK result envelope
//	{data: {status, message, data}} both of the above
//
// Anything else is taken as the payload itself. A non-null error field or a
// boolean false status becomes an *Error.
func unwrap(b []byte) (json.RawMessage, error) {
	cur := json.RawMessage(bytes.TrimSpace(b))
	if len(cur) == 0 {
		return nil, ErrEmptyResponse
	}
	for i := 0; i < maxEnvelopeDepth; i++ {
		if len(cur) == 0 || cur[0] != '{' {
			return cur, nil
		}
		var env map[string]json.RawMessage
		if err := json.Unmarshal(cur, &env); err != nil {
			return nil, fmt.Errorf("paystack: decode response: %w", err)
		}
		if raw, ok := env["error"]; ok && !isNull(raw) {
			return nil, &Error{Message: errorMessage(raw, env)}
		}
		if raw, ok := env["status"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("false")) {
			return nil, &Error{Message: errorMessage(nil, env)}
		}
		data, hasData := env["data"]
		if !hasData || !isEnvelope(env) {
			return cur, nil
		}
		if isNull(data) {
			return nil, ErrEmptyResponse
		}
		cur = bytes.TrimSpace(data)
	}
	return cur, nil
}

func isEnvelope(env map[string]json.RawMessage) bool {
	for _, k := range []string{"status", "message", "error", "response"} {
		if _, ok := env[k]; ok {
			return true
		}
	}
	// a lone {"data": ...} is still a wrapper
	return len(env) == 1
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func errorMessage(errRaw json.RawMessage, env map[string]json.RawMessage) string {
	if len(errRaw) > 0 {
		var s string
		if json.Unmarshal(errRaw, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(errRaw, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	var msg string
	if raw, ok := env["message"]; ok && json.Unmarshal(raw, &msg) == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	return "request failed"
}

// decode unwraps an SDK response into out.
func decode(resp any, out any) error {
	b, err := toJSON(resp)
	if err != nil {
		return err
	}
	payload, err := unwrap(b)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("paystack: decode payload: %w", err)
	}
	return nil
}
