// Package verification manages the lifecycle of one-time codes sent over
// SMS, WhatsApp and email: issuing, verifying, resending and expiring them.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/aussiebroadwan/sentinel/pkg/idx"
	"github.com/aussiebroadwan/sentinel/pkg/syncx"
)

// Config holds the code policy.
type Config struct {
	Digits      int
	TTL         time.Duration // code lifetime
	Cooldown    time.Duration // minimum gap between sends
	Grace       time.Duration // how long an expired session is kept for resend
	MaxAttempts int           // wrong guesses allowed per code
	MaxResends  int           // resends allowed per session
}

// DefaultConfig is 6 digits, 5 minute codes, 60 second cooldown.
func DefaultConfig() Config {
	return Config{
		Digits:      6,
		TTL:         5 * time.Minute,
		Cooldown:    60 * time.Second,
		Grace:       10 * time.Minute,
		MaxAttempts: 5,
		MaxResends:  5,
	}
}

// maxConflicts bounds how often an operation re-reads a session after
// another writer changed it underneath.
const maxConflicts = 8

// ErrConflict is returned when a session kept changing concurrently.
var ErrConflict = errors.New("verification: session changed concurrently")

// Outcome is the result of checking a submitted code.
type Outcome string

const (
	OutcomeVerified         Outcome = "verified"
	OutcomeMismatch         Outcome = "mismatch"
	OutcomeExpired          Outcome = "expired"
	OutcomeAttemptsExceeded Outcome = "attempts_exceeded"
	OutcomeNotFound         Outcome = "not_found"
)

// Result of Verify. Wrong or stale codes are never errors.
type Result struct {
	Outcome           Outcome
	AttemptsRemaining int
	Session           domain.VerificationSession
}

// OK reports whether the code was accepted.
func (r Result) OK() bool { return r.Outcome == OutcomeVerified }

// DenyReason explains a refused resend.
type DenyReason string

const (
	DenyCooldown    DenyReason = "cooldown"
	DenyResendLimit DenyReason = "resend_limit"
)

// Issued is a freshly generated code and the session that holds it. Code is
// the only place the plaintext exists.
type Issued struct {
	Session domain.VerificationSession
	Code    string
}

// ResendResult is either a new code or a denial.
type ResendResult struct {
	Issued     Issued
	Previous   domain.VerificationSession // state before the resend, for Restore
	Denied     bool
	Reason     DenyReason
	RetryAfter time.Duration
}

// Store issues and checks codes. Operations on the same key are serialized.
type Store struct {
	backend Backend
	cfg     Config
	clock   func() time.Time
	ids     *idx.Generator
	locks   syncx.KeyedMutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func NewStore(backend Backend, cfg Config, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		cfg:     cfg,
		clock:   time.Now,
		ids:     idx.NewGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the active policy.
func (s *Store) Config() Config { return s.cfg }

func (s *Store) now() time.Time { return s.clock().UTC() }

// retention is how long the backend keeps a session after it was (re)issued.
func (s *Store) retention(sess domain.VerificationSession, now time.Time) time.Duration {
	return sess.ExpiresAt.Add(s.cfg.Grace).Sub(now)
}

func (s *Store) newCode() (string, string, error) {
	code, err := cryptox.GenerateNumericCode(s.cfg.Digits)
	if err != nil {
		return "", "", err
	}
	hash, err := cryptox.Fingerprint(code)
	if err != nil {
		return "", "", err
	}
	return code, hash, nil
}

// Create validates target for the channel and issues a new code, replacing
// whatever session previously existed under key.
func (s *Store) Create(ctx context.Context, key Key, target string) (Issued, error) {
	if err := delivery.ValidateIdentity(key.Channel, target); err != nil {
		return Issued{}, err
	}

	unlock := s.locks.Lock(key.String())
	defer unlock()

	code, hash, err := s.newCode()
	if err != nil {
		return Issued{}, err
	}

	now := s.now()
	sess := domain.VerificationSession{
		ID:               s.ids.NewAt(now).String(),
		UserID:           key.UserID,
		Channel:          key.Channel,
		Purpose:          key.Purpose,
		Target:           target,
		CodeHash:         hash,
		IssuedAt:         now,
		ExpiresAt:        now.Add(s.cfg.TTL),
		ResendEligibleAt: now.Add(s.cfg.Cooldown),
	}

	if err := s.backend.Save(ctx, sess, s.retention(sess, now)); err != nil {
		return Issued{}, err
	}
	return Issued{Session: sess, Code: code}, nil
}

// Verify checks submitted against the session under key. An empty sessionID
// matches whatever session is current; a non-empty one must match exactly so
// a code from a superseded session is rejected. It fails closed: every
// problem with the code or session is an Outcome, and only backend failures
// are returned as errors.
//
// Writes are conditional on the session still being the one that was read.
// When another instance changed it in between, the check is repeated
// against the fresh state.
func (s *Store) Verify(ctx context.Context, key Key, sessionID, submitted string) (Result, error) {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	for range maxConflicts {
		res, done, err := s.verifyOnce(ctx, key, sessionID, submitted)
		if err != nil || done {
			return res, err
		}
	}
	return Result{}, ErrConflict
}

func (s *Store) verifyOnce(ctx context.Context, key Key, sessionID, submitted string) (Result, bool, error) {
	sess, err := s.backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Result{Outcome: OutcomeNotFound}, true, nil
	}
	if err != nil {
		return Result{}, true, err
	}
	if sessionID != "" && sessionID != sess.ID {
		return Result{Outcome: OutcomeNotFound}, true, nil
	}

	now := s.now()
	if sess.Expired(now) {
		return Result{Outcome: OutcomeExpired, Session: sess}, true, nil
	}
	if sess.Attempts >= s.cfg.MaxAttempts {
		return Result{Outcome: OutcomeAttemptsExceeded, Session: sess}, true, nil
	}

	// Hash even malformed input so every path costs the same.
	hash, err := cryptox.Fingerprint(submitted)
	if err != nil {
		return Result{}, true, err
	}
	match := cryptox.FingerprintEqual(hash, sess.CodeHash) && cryptox.IsNumericCode(submitted, s.cfg.Digits)

	if match {
		consumed, err := s.backend.Consume(ctx, sess)
		if err != nil {
			return Result{}, true, err
		}
		if !consumed {
			return Result{}, false, nil
		}
		return Result{Outcome: OutcomeVerified, Session: sess}, true, nil
	}

	next := sess
	next.Attempts++
	saved, err := s.backend.Replace(ctx, sess, next, s.retention(next, now))
	if err != nil {
		return Result{}, true, err
	}
	if !saved {
		return Result{}, false, nil
	}

	remaining := s.cfg.MaxAttempts - next.Attempts
	if remaining <= 0 {
		return Result{Outcome: OutcomeAttemptsExceeded, Session: next}, true, nil
	}
	return Result{Outcome: OutcomeMismatch, AttemptsRemaining: remaining, Session: next}, true, nil
}

// Resend replaces the code of the session under key, keeping its ID and
// target. It is denied while the cooldown runs or once the resend budget is
// spent. Resending an expired but retained session revives it.
func (s *Store) Resend(ctx context.Context, key Key, sessionID string) (ResendResult, error) {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	for range maxConflicts {
		res, done, err := s.resendOnce(ctx, key, sessionID)
		if err != nil || done {
			return res, err
		}
	}
	return ResendResult{}, ErrConflict
}

func (s *Store) resendOnce(ctx context.Context, key Key, sessionID string) (ResendResult, bool, error) {
	prev, err := s.backend.Load(ctx, key)
	if err != nil {
		return ResendResult{}, true, err
	}
	if sessionID != "" && sessionID != prev.ID {
		return ResendResult{}, true, ErrNotFound
	}

	now := s.now()
	if !prev.CanResend(now) {
		return ResendResult{
			Previous:   prev,
			Denied:     true,
			Reason:     DenyCooldown,
			RetryAfter: prev.ResendEligibleAt.Sub(now),
		}, true, nil
	}
	if prev.Resends >= s.cfg.MaxResends {
		return ResendResult{Previous: prev, Denied: true, Reason: DenyResendLimit}, true, nil
	}

	var code, hash string
	for range 8 {
		if code, hash, err = s.newCode(); err != nil {
			return ResendResult{}, true, err
		}
		if hash != prev.CodeHash {
			break
		}
	}

	next := prev
	next.CodeHash = hash
	next.IssuedAt = now
	next.ExpiresAt = now.Add(s.cfg.TTL)
	next.ResendEligibleAt = now.Add(s.cfg.Cooldown)
	next.Attempts = 0
	next.Resends++

	saved, err := s.backend.Replace(ctx, prev, next, s.retention(next, now))
	if err != nil {
		return ResendResult{}, true, err
	}
	if !saved {
		return ResendResult{}, false, nil
	}
	return ResendResult{Issued: Issued{Session: next, Code: code}, Previous: prev}, true, nil
}

// Restore puts back prev in place of issued, the session a Resend produced
// but could not deliver, so the code the user may already hold keeps
// working. It does nothing if issued was verified, resent or replaced in
// the meantime.
func (s *Store) Restore(ctx context.Context, prev, issued domain.VerificationSession) error {
	key := KeyOf(prev)
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if prev.ID != issued.ID {
		return nil
	}

	ttl := s.retention(prev, s.now())
	if ttl <= 0 {
		_, err := s.backend.Consume(ctx, issued)
		return err
	}
	_, err := s.backend.Replace(ctx, issued, prev, ttl)
	return err
}

// Invalidate drops the session under key. If sessionID is non-empty only
// that exact session is dropped.
func (s *Store) Invalidate(ctx context.Context, key Key, sessionID string) error {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if sessionID == "" {
		return s.backend.Delete(ctx, key)
	}

	for range maxConflicts {
		cur, err := s.backend.Load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to invalidate session: %w", err)
		}
		if cur.ID != sessionID {
			return nil
		}
		consumed, err := s.backend.Consume(ctx, cur)
		if err != nil {
			return fmt.Errorf("failed to invalidate session: %w", err)
		}
		if consumed {
			return nil
		}
	}
	return fmt.Errorf("failed to invalidate session: %w", ErrConflict)
}

// Pending returns the live session under key, if any. Expired sessions still
// in their grace period are returned too; callers check Expired themselves.
func (s *Store) Pending(ctx context.Context, key Key) (domain.VerificationSession, bool, error) {
	sess, err := s.backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return domain.VerificationSession{}, false, nil
	}
	if err != nil {
		return domain.VerificationSession{}, false, err
	}
	return sess, true, nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

// Sweep removes sessions past their retention.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	return s.backend.Sweep(ctx, s.now())
}
