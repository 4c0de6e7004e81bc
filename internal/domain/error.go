package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUserNotFound       = errors.New("user not found")
	ErrLockNotAcquired    = errors.New("lock not acquired")
)

// Stable machine-readable error codes returned to API clients.
const (
	CodeUnauthorized                = "UNAUTHORIZED"
	CodeUnauthorizedReference       = "UNAUTHORIZED_REFERENCE"
	CodeUntrustedCallbackURL        = "UNTRUSTED_CALLBACK_URL"
	CodeEmailVerificationRequired   = "EMAIL_VERIFICATION_REQUIRED"
	CodeSubscriptionsDisabled       = "SUBSCRIPTIONS_DISABLED"
	CodeSubscriptionPlanNotFound    = "SUBSCRIPTION_PLAN_NOT_FOUND"
	CodeProductNotFound             = "PRODUCT_NOT_FOUND"
	CodeSubscriptionNotFound        = "SUBSCRIPTION_NOT_FOUND"
	CodeAmountRequired              = "AMOUNT_REQUIRED"
	CodeInvalidAmount               = "INVALID_AMOUNT"
	CodeEmailRequired               = "EMAIL_REQUIRED"
	CodeEmailTokenRequired          = "EMAIL_TOKEN_REQUIRED"
	CodeReferenceRequired           = "REFERENCE_REQUIRED"
	CodeAlreadySubscribed           = "ALREADY_SUBSCRIBED"
	CodeInvalidRequestBody          = "INVALID_REQUEST_BODY"
	CodeFailedToInitialize          = "FAILED_TO_INITIALIZE_TRANSACTION"
	CodeFailedToVerify              = "FAILED_TO_VERIFY_TRANSACTION"
	CodeFailedToDisableSubscription = "FAILED_TO_DISABLE_SUBSCRIPTION"
	CodeFailedToEnableSubscription  = "FAILED_TO_ENABLE_SUBSCRIPTION"
	CodeFailedToGetManageLink       = "FAILED_TO_GET_MANAGE_LINK"
	CodeSeatLimitReached            = "SEAT_LIMIT_REACHED"
	CodeTeamLimitReached            = "TEAM_LIMIT_REACHED"
	CodeInvalidWebhookSignature     = "INVALID_WEBHOOK_SIGNATURE"
	CodeRateLimited                 = "RATE_LIMITED"
	CodeCheckoutInProgress          = "CHECKOUT_IN_PROGRESS"
)

// APIError is an error that maps onto an HTTP status class and a stable code.
// Raw provider or database errors never travel inside it.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func BadRequest(code, msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: msg}
}

func Unauthorized(code, msg string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: code, Message: msg}
}

func Forbidden(code, msg string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: code, Message: msg}
}

func Conflict(code, msg string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: code, Message: msg}
}

func TooManyRequests(msg string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: msg}
}

// AsAPIError reports whether err wraps an *APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *APIError carrying code.
func HasCode(err error, code string) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == code
}
