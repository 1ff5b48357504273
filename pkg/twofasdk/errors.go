package twofasdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/sentinel/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidChannel     = "invalid_channel"
	ErrorCodeInvalidIdentity    = "invalid_identity"
	ErrorCodeMissingIdentity    = "missing_identity"
	ErrorCodeInvalidCode        = "invalid_code"
	ErrorCodeCodeExpired        = "code_expired"
	ErrorCodeAttemptsExceeded   = "attempts_exceeded"
	ErrorCodeResendCooldown     = "resend_cooldown"
	ErrorCodeResendLimit        = "resend_limit"
	ErrorCodeNoPendingSetup     = "no_pending_setup"
	ErrorCodeNoPendingChallenge = "no_pending_challenge"
	ErrorCodeMethodNotEnabled   = "method_not_enabled"
	ErrorCodeDeliveryFailed     = "delivery_failed"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeSessionRevoked     = "session_revoked"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeInvalidCursor      = "invalid_cursor"
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the body of every non-2xx response. The server writes it and
// the client decodes into it, so callers can switch on Code.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code, e.g. "code_expired"
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`

	// AttemptsRemaining is set on invalid_code for setup and challenge
	// verification.
	AttemptsRemaining int `json:"attempts_remaining,omitempty"`

	// RetryAfterSeconds is set on resend_cooldown and rate_limit_exceeded.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so errors.Is(err, twofasdk.ErrCodeExpired) works on
// decoded responses.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response. A positive RetryAfterSeconds is
// mirrored in the Retry-After header.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfterSeconds))
	}
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithAttempts returns a copy of e that reports the attempts left.
func (e *APIError) WithAttempts(n int) *APIError {
	c := *e
	c.AttemptsRemaining = n
	return &c
}

// WithRetryAfter returns a copy of e that asks the caller to wait seconds.
func (e *APIError) WithRetryAfter(seconds int) *APIError {
	c := *e
	c.RetryAfterSeconds = max(seconds, 1)
	c.Description = fmt.Sprintf("please wait %d seconds before requesting another code", c.RetryAfterSeconds)
	return &c
}

// NewAPIError creates an error with a custom description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidChannel = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidChannel,
		Description: "channel must be one of sms, whatsapp, email, authenticator",
	}

	ErrInvalidIdentity = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidIdentity,
		Description: "the phone number or email address is not valid for this channel",
	}

	// ErrMissingIdentity is returned when setup names no identity and the
	// account has none on file for the channel.
	ErrMissingIdentity = &APIError{
		StatusCode:  http.StatusUnprocessableEntity,
		Code:        ErrorCodeMissingIdentity,
		Description: "this channel needs a phone number or email address the account does not have",
	}

	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCode,
		Description: "invalid code",
	}

	ErrCodeExpired = &APIError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeCodeExpired,
		Description: "code expired, request a new one",
	}

	ErrAttemptsExceeded = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAttemptsExceeded,
		Description: "too many wrong codes, request a new one",
	}

	ErrResendCooldown = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeResendCooldown,
		Description: "please wait before requesting another code",
	}

	ErrResendLimit = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeResendLimit,
		Description: "no more codes can be sent for this request, start over",
	}

	ErrNoPendingSetup = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNoPendingSetup,
		Description: "no setup in progress for this channel",
	}

	ErrNoPendingChallenge = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNoPendingChallenge,
		Description: "no code was sent for this channel",
	}

	ErrMethodNotEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMethodNotEnabled,
		Description: "this method is not enabled",
	}

	// ErrDeliveryFailed is retryable: nothing was enabled or consumed.
	ErrDeliveryFailed = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeDeliveryFailed,
		Description: "failed to send, try again",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrSessionRevoked = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeSessionRevoked,
		Description: "session was revoked",
	}

	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeSessionExpired,
		Description: "session expired",
	}

	ErrInvalidCursor = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCursor,
		Description: "invalid cursor",
	}

	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "the access token is missing, invalid or expired",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse decodes a non-2xx response into an *APIError. Bodies
// that are not JSON become a server_error carrying the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
