package http

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
)

// apiErrorFor maps a service error to the response the caller sees. Each
// known failure keeps its own code; anything else is a server error.
func apiErrorFor(err error) (*twofasdk.APIError, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidChannel), errors.Is(err, domain.ErrUnknownChannel):
		return twofasdk.ErrInvalidChannel, true
	case errors.Is(err, service.ErrInvalidIdentity):
		return twofasdk.ErrInvalidIdentity, true
	case errors.Is(err, service.ErrMissingIdentity):
		return twofasdk.ErrMissingIdentity, true
	case errors.Is(err, service.ErrNoPendingSetup):
		return twofasdk.ErrNoPendingSetup, true
	case errors.Is(err, service.ErrNoPendingChallenge):
		return twofasdk.ErrNoPendingChallenge, true
	case errors.Is(err, service.ErrMethodNotEnabled):
		return twofasdk.ErrMethodNotEnabled, true
	case errors.Is(err, service.ErrDeliveryFailed):
		return twofasdk.ErrDeliveryFailed, true
	case errors.Is(err, service.ErrSessionNotFound):
		return twofasdk.ErrNotFound, true
	case errors.Is(err, service.ErrSessionRevoked):
		return twofasdk.ErrSessionRevoked, true
	case errors.Is(err, service.ErrSessionExpired):
		return twofasdk.ErrSessionExpired, true
	case errors.Is(err, service.ErrInvalidCursor):
		return twofasdk.ErrInvalidCursor, true
	case errors.Is(err, service.ErrInvalidRequest):
		return twofasdk.ErrInvalidRequest, true
	}
	return twofasdk.ErrServerError, false
}

// writeServiceError logs err and writes the matching API error. Expected
// failures log at warn, everything else at error.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())
	apiErr, known := apiErrorFor(err)
	if known {
		log.Warn(msg, "err", err)
	} else {
		log.Error(msg, "err", err)
	}
	apiErr.WriteError(w)
}

// statusError maps a refused code to its API error.
func statusError(status service.VerifyStatus, attemptsRemaining int) *twofasdk.APIError {
	switch status {
	case service.StatusExpired:
		return twofasdk.ErrCodeExpired
	case service.StatusAttemptsExceeded:
		return twofasdk.ErrAttemptsExceeded
	default:
		return twofasdk.ErrInvalidCode.WithAttempts(attemptsRemaining)
	}
}

// deniedError maps a refused resend to its API error.
func deniedError(reason verification.DenyReason, retryAfter time.Duration) *twofasdk.APIError {
	if reason == verification.DenyResendLimit {
		return twofasdk.ErrResendLimit
	}
	return twofasdk.ErrResendCooldown.WithRetryAfter(int(math.Ceil(retryAfter.Seconds())))
}
