package verification

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
)

var ErrNotFound = errors.New("verification: session not found")

// Key scopes a session to one user, channel and purpose. At most one session
// exists per key.
type Key struct {
	UserID  string
	Channel domain.Channel
	Purpose domain.Purpose
}

func (k Key) String() string {
	return k.UserID + ":" + string(k.Purpose) + ":" + k.Channel.PathValue()
}

// KeyOf returns the key a session is stored under.
func KeyOf(s domain.VerificationSession) Key {
	return Key{UserID: s.UserID, Channel: s.Channel, Purpose: s.Purpose}
}

// sameCode reports whether cur still holds the code of loaded.
func sameCode(cur, loaded domain.VerificationSession) bool {
	return cur.ID == loaded.ID && cur.CodeHash == loaded.CodeHash
}

// sameVersion reports whether cur is unchanged since loaded was read.
func sameVersion(cur, loaded domain.VerificationSession) bool {
	return sameCode(cur, loaded) && cur.Attempts == loaded.Attempts && cur.Resends == loaded.Resends
}

// Backend persists sessions. Losing a session only forces the user to start
// over, so volatile stores are fine.
type Backend interface {
	// Load returns the session stored under key or ErrNotFound.
	Load(ctx context.Context, key Key) (domain.VerificationSession, error)

	// Save stores s under its key, replacing any previous session, and
	// forgets it after ttl.
	Save(ctx context.Context, s domain.VerificationSession, ttl time.Duration) error

	// Delete removes the session under key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// Replace stores next only if the session under its key is still the
	// one the caller loaded: same ID, code, attempt count and resend count.
	// It reports false when another writer got there first, so a consumed
	// or resent session is never overwritten with stale state.
	Replace(ctx context.Context, loaded, next domain.VerificationSession, ttl time.Duration) (bool, error)

	// Consume atomically deletes the session under its key only if it still
	// has the loaded ID and code. It reports false when the session was
	// already gone, superseded or resent, which is what makes a code
	// single-use across instances.
	Consume(ctx context.Context, loaded domain.VerificationSession) (bool, error)

	// Sweep drops sessions whose ttl elapsed before now and returns how many
	// were removed. Backends with native expiry return 0.
	Sweep(ctx context.Context, now time.Time) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
