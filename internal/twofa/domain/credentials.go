package domain

import "time"

// TOTPCredential holds an authenticator secret. Secrets are sealed at rest;
// the plaintext base32 form only exists in memory.
type TOTPCredential struct {
	UserID           string
	Secret           string     // active base32 secret, empty if not enrolled
	ActivatedAt      *time.Time // when Secret became trusted
	PendingSecret    string     // generated by setup, not yet verified
	PendingCreatedAt *time.Time

	FailedAttempts int        // rejected sign-in codes since the last success
	LastFailedAt   *time.Time // when the latest rejection happened
	LastUsedStep   int64      // time step of the last accepted code
}

// Active reports whether a verified secret exists.
func (c TOTPCredential) Active() bool { return c.Secret != "" }

// LockedOut reports whether limit failures were reached and the latest one
// is still within window of now.
func (c TOTPCredential) LockedOut(now time.Time, limit int, window time.Duration) bool {
	if c.FailedAttempts < limit || c.LastFailedAt == nil {
		return false
	}
	return now.Sub(*c.LastFailedAt) < window
}

// Pending reports whether a setup is awaiting verification.
func (c TOTPCredential) Pending() bool { return c.PendingSecret != "" }

// BackupCode is a single-use recovery code.
type BackupCode struct {
	ID         string
	UserID     string
	Code       string // zero-padded digits, only populated when unsealed for listing
	CodeHash   string // keyed fingerprint used for lookup
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// Consumed reports whether the code was already redeemed.
func (b BackupCode) Consumed() bool { return b.ConsumedAt != nil }
