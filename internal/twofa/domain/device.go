package domain

import "time"

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Risk thresholds: scores below RiskMediumFloor are LOW, scores above
// RiskHighFloor-1 are HIGH.
const (
	RiskMediumFloor = 34
	RiskHighFloor   = 67
)

// RiskLevelFor maps a score in [0,100] to its level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score < RiskMediumFloor:
		return RiskLow
	case score < RiskHighFloor:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// SessionStatus is derived from activity and revocation.
type SessionStatus string

const (
	StatusOnline  SessionStatus = "ONLINE"
	StatusIdle    SessionStatus = "IDLE"
	StatusOffline SessionStatus = "OFFLINE"
	StatusRevoked SessionStatus = "REVOKED"
)

// Activity windows used when deriving status.
const (
	OnlineWindow = 5 * time.Minute
	IdleWindow   = time.Hour
)

// DeviceSession is an authenticated session bound to an account.
type DeviceSession struct {
	ID          string
	UserID      string
	Fingerprint string
	UserAgent   string
	IPAddress   string
	RiskScore   int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	LastSeenAt  time.Time
	RevokedAt   *time.Time
}

// RiskLevel derives the bucket for the stored score.
func (d DeviceSession) RiskLevel() RiskLevel { return RiskLevelFor(d.RiskScore) }

// Revoked reports whether the session was revoked. Revocation is terminal.
func (d DeviceSession) Revoked() bool { return d.RevokedAt != nil }

// Status derives the session status at now.
func (d DeviceSession) Status(now time.Time) SessionStatus {
	switch {
	case d.Revoked():
		return StatusRevoked
	case !now.Before(d.ExpiresAt), now.Sub(d.LastSeenAt) >= IdleWindow:
		return StatusOffline
	case now.Sub(d.LastSeenAt) >= OnlineWindow:
		return StatusIdle
	default:
		return StatusOnline
	}
}
