package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and so a
// transaction cannot be started from inside another one.
type Store interface {
	Accounts() Accounts
	TOTPCredentials() TOTPCredentials
	BackupCodes() BackupCodes
	DeviceSessions() DeviceSessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccount returns the default method and per-channel method rows for a
	// user. Backup code counts and pending setups are not part of the row and
	// are left zero. Returns ErrNotFound if the user never enrolled.
	GetAccount(ctx context.Context, userID string) (domain.AccountState, error)

	// SaveAccount upserts the account row and every method row in state.
	SaveAccount(ctx context.Context, state domain.AccountState) error

	// DeleteAccount removes the account row and all method rows.
	DeleteAccount(ctx context.Context, userID string) error
}

type TOTPCredentials interface {
	// GetTOTPCredential returns the unsealed credential for a user.
	GetTOTPCredential(ctx context.Context, userID string) (domain.TOTPCredential, error)

	// SaveTOTPCredential upserts the credential. Secrets are sealed before
	// they are written.
	SaveTOTPCredential(ctx context.Context, cred domain.TOTPCredential) error

	// DeleteTOTPCredential erases both the active and the pending secret.
	DeleteTOTPCredential(ctx context.Context, userID string) error

	// RecordTOTPFailure counts a rejected sign-in code and returns the
	// count including it. A failure more than window after the previous
	// one starts a new count. Returns ErrNotFound without a credential.
	RecordTOTPFailure(ctx context.Context, userID string, at time.Time, window time.Duration) (int, error)

	// AcceptTOTPStep records step as the last accepted time step and clears
	// the failure count, but only if step is later than the stored one. It
	// reports false when the step was already used.
	AcceptTOTPStep(ctx context.Context, userID string, step int64) (bool, error)

	// ClearStalePending drops pending secrets created before the cutoff and
	// deletes rows left without any secret.
	ClearStalePending(ctx context.Context, before time.Time) (int64, error)
}

type BackupCodes interface {
	// CreateBackupCode stores one code. Code is sealed, CodeHash is stored as is.
	CreateBackupCode(ctx context.Context, code domain.BackupCode) error

	// ListBackupCodes returns every code for a user, consumed ones included,
	// oldest first with Code unsealed.
	ListBackupCodes(ctx context.Context, userID string) ([]domain.BackupCode, error)

	// ConsumeBackupCode marks an unconsumed code used. It reports false when
	// no unconsumed code with that hash exists.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error)

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of unconsumed codes for a user.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

type DeviceSessions interface {
	// CreateDeviceSession inserts a new session (id is a ULID).
	CreateDeviceSession(ctx context.Context, s domain.DeviceSession) error

	// GetDeviceSession fetches a session by id.
	GetDeviceSession(ctx context.Context, id string) (domain.DeviceSession, error)

	// ListDeviceSessions pages a user's sessions newest first. Only ids
	// strictly lower than before are returned when before is not empty.
	ListDeviceSessions(ctx context.Context, userID, before string, limit int) ([]domain.DeviceSession, error)

	// ListActiveDeviceSessions returns non-revoked, non-expired sessions.
	ListActiveDeviceSessions(ctx context.Context, userID string, now time.Time) ([]domain.DeviceSession, error)

	// SeenBefore reports whether the user ever had a session with the given
	// fingerprint or IP address.
	SeenBefore(ctx context.Context, userID, fingerprint, ipAddress string) (fingerprintSeen, ipSeen bool, err error)

	// RevokeDeviceSession sets revoked_at if it is not already set.
	// Returns ErrNotFound when the session does not exist.
	RevokeDeviceSession(ctx context.Context, id string, at time.Time) error

	// TouchDeviceSession bumps last_seen_at and records the latest IP.
	TouchDeviceSession(ctx context.Context, id, ipAddress string, at time.Time) error

	// DeleteStaleDeviceSessions removes sessions that expired or were revoked
	// before the cutoff (housekeeping).
	DeleteStaleDeviceSessions(ctx context.Context, before time.Time) (int64, error)
}
