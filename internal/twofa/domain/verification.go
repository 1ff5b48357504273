package domain

import "time"

// Purpose separates codes issued during enrollment from codes issued as a
// login challenge so one never supersedes the other.
type Purpose string

const (
	PurposeSetup Purpose = "setup"
	PurposeLogin Purpose = "login"
)

// VerificationSession is an in-flight one-time code for an OTP channel.
type VerificationSession struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Channel          Channel   `json:"channel"`
	Purpose          Purpose   `json:"purpose"`
	Target           string    `json:"target"`
	CodeHash         string    `json:"code_hash"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	ResendEligibleAt time.Time `json:"resend_eligible_at"`
	Attempts         int       `json:"attempts"`
	Resends          int       `json:"resends"`
}

// Expired reports whether the code can no longer be verified at now.
func (s VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CanResend reports whether the cooldown has elapsed at now.
func (s VerificationSession) CanResend(now time.Time) bool {
	return !now.Before(s.ResendEligibleAt)
}
