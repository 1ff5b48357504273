package service

import (
	"errors"

	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
)

var (
	ErrInvalidChannel     = errors.New("invalid channel")
	ErrNoPendingSetup     = errors.New("no pending setup for channel")
	ErrNoPendingChallenge = errors.New("no pending challenge for channel")
	ErrMissingIdentity    = errors.New("channel requires a phone number or email the account lacks")
	ErrDeliveryFailed     = errors.New("failed to deliver code")
	ErrMethodNotEnabled   = errors.New("method not enabled")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrInvalidRequest     = errors.New("invalid request")

	// ErrInvalidIdentity is returned when a phone number or email fails the
	// channel's format check.
	ErrInvalidIdentity = delivery.ErrInvalidIdentity
)
