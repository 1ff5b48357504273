package twofasdk

import "time"

// ============================================================================
// Account State Types
// ============================================================================

// MethodState is one channel of an account.
type MethodState struct {
	Channel   string     `json:"channel" example:"SMS"`
	Enabled   bool       `json:"enabled"`
	EnabledAt *time.Time `json:"enabled_at,omitempty"`

	// Target is the masked phone number or email the channel was verified
	// with. Empty for AUTHENTICATOR.
	Target string `json:"target,omitempty" example:"+61*****678"`
}

// AccountState is returned by GET /v1/2fa and by every call that changes
// enrollment.
type AccountState struct {
	UserID string `json:"user_id"`

	// Enabled is true while any method is enabled or unused backup codes
	// remain.
	Enabled bool `json:"enabled"`

	// DefaultMethod is NONE when no method is designated.
	DefaultMethod string        `json:"default_method" example:"AUTHENTICATOR"`
	Methods       []MethodState `json:"methods"`

	BackupCodesRemaining int `json:"backup_codes_remaining"`

	// PendingSetup lists channels with a setup awaiting verification.
	PendingSetup []string `json:"pending_setup"`

	// AuthenticatorRotating is true while a new authenticator secret is
	// pending and the old one still works.
	AuthenticatorRotating bool      `json:"authenticator_rotating"`
	UpdatedAt             time.Time `json:"updated_at,omitzero"`
}

// DisableResponse reports whether a disable changed anything.
type DisableResponse struct {
	Changed bool         `json:"changed"`
	State   AccountState `json:"state"`
}

// SetDefaultRequest names an enabled channel to make the default.
type SetDefaultRequest struct {
	Channel string `json:"channel" example:"EMAIL"`
}

// ============================================================================
// Setup Types
// ============================================================================

// SetupRequest starts enrollment. Both fields are optional: the identity
// falls back to the token's claims and then to the last verified target.
type SetupRequest struct {
	Identity string `json:"identity,omitempty" example:"+61400000000"`

	// Label is the account name shown by authenticator apps.
	Label string `json:"label,omitempty"`
}

// SetupResponse describes how to finish enrollment. OTP channels fill the
// session fields; the authenticator fills the secret fields.
type SetupResponse struct {
	Channel          string    `json:"channel" example:"SMS"`
	SessionID        string    `json:"session_id,omitempty"`
	Target           string    `json:"target,omitempty" example:"+61*****000"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
	ResendEligibleAt time.Time `json:"resend_eligible_at,omitzero"`

	Secret          string `json:"secret,omitempty" example:"JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"`
	ProvisioningURI string `json:"provisioning_uri,omitempty"`

	// QRCode is a base64 PNG of ProvisioningURI.
	QRCode   string `json:"qr_code,omitempty"`
	Rotating bool   `json:"rotating,omitempty"`
}

// VerifyRequest submits a setup code. SessionID is optional; when given it
// must match the pending session.
type VerifyRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Code      string `json:"code" example:"042913"`
}

// ResendRequest asks for a fresh code for the pending setup.
type ResendRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ResendResponse describes the session after a successful resend. The
// session id does not change.
type ResendResponse struct {
	SessionID        string    `json:"session_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	ResendEligibleAt time.Time `json:"resend_eligible_at"`
}

// ============================================================================
// Backup Code Types
// ============================================================================

// BackupCode is one recovery code.
type BackupCode struct {
	Code       string     `json:"code" example:"04291337"`
	CreatedAt  time.Time  `json:"created_at"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// BackupCodesResponse is the current batch.
type BackupCodesResponse struct {
	Codes     []BackupCode `json:"codes"`
	Remaining int          `json:"remaining"`
}

// RedeemBackupCodeRequest consumes one code.
type RedeemBackupCodeRequest struct {
	Code string `json:"code" example:"04291337"`
}

// RedeemBackupCodeResponse reports the codes left after a redemption.
type RedeemBackupCodeResponse struct {
	Redeemed  bool `json:"redeemed"`
	Remaining int  `json:"remaining"`
}

// ============================================================================
// Challenge Types
// ============================================================================

// ChallengeSendRequest asks for a sign-in code on an enabled OTP channel.
type ChallengeSendRequest struct {
	Channel string `json:"channel" example:"SMS"`
}

// ChallengeSendResponse describes the sign-in code that was sent.
type ChallengeSendResponse struct {
	Channel          string    `json:"channel"`
	Target           string    `json:"target" example:"+61*****000"`
	SessionID        string    `json:"session_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	ResendEligibleAt time.Time `json:"resend_eligible_at"`
}

// ChallengeVerifyRequest checks a second factor. Method is a channel name
// or "backup_code".
type ChallengeVerifyRequest struct {
	Method string `json:"method" example:"AUTHENTICATOR"`
	Code   string `json:"code" example:"042913"`
}

// ChallengeVerifyResponse is returned when the second factor was accepted.
type ChallengeVerifyResponse struct {
	Method               string `json:"method"`
	Verified             bool   `json:"verified"`
	BackupCodesRemaining int    `json:"backup_codes_remaining,omitempty"`
}

// ============================================================================
// Device Session Types
// ============================================================================

// RecordSessionRequest registers a new device session. UserAgent and
// IPAddress default to the request's own.
type RecordSessionRequest struct {
	Fingerprint string `json:"fingerprint"`
	UserAgent   string `json:"user_agent,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
}

// DeviceSession is a session with its derived status and risk.
type DeviceSession struct {
	ID          string     `json:"id"`
	Fingerprint string     `json:"fingerprint"`
	UserAgent   string     `json:"user_agent"`
	IPAddress   string     `json:"ip_address"`
	RiskScore   int        `json:"risk_score" example:"30"`
	RiskLevel   string     `json:"risk_level" example:"LOW"`
	Status      string     `json:"status" example:"ONLINE"`
	Current     bool       `json:"current"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// ListSessionsResponse is one page, newest first. NextCursor is empty on
// the last page.
type ListSessionsResponse struct {
	Sessions   []DeviceSession `json:"sessions"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// RevokeFailure names a session a bulk revoke could not transition.
type RevokeFailure struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// RevokeAllResponse lists exactly what a bulk revoke did.
type RevokeAllResponse struct {
	Revoked []string        `json:"revoked"`
	Failed  []RevokeFailure `json:"failed"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the durable store status
	Database string `json:"database"`

	// Verification indicates the verification session backend status
	Verification string `json:"verification"`
}
