package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/authenticator"
	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
	"github.com/aussiebroadwan/sentinel/pkg/syncx"
)

// MethodBackupCode selects backup code redemption in a challenge.
const MethodBackupCode = "backup_code"

// Authenticator codes have no session to burn, so failures are counted on
// the credential instead.
const (
	DefaultAuthenticatorAttempts = 5
	DefaultAuthenticatorLockout  = 15 * time.Minute
)

// ChallengeResult is returned when a login code is sent.
type ChallengeResult struct {
	ResendResult
	Channel domain.Channel
	Target  string
}

// ChallengeVerifyResult reports a second-factor check at login.
type ChallengeVerifyResult struct {
	Method               string
	Status               VerifyStatus
	AttemptsRemaining    int
	BackupCodesRemaining int
}

// Verified reports whether the second factor was accepted.
func (r ChallengeVerifyResult) Verified() bool { return r.Status == StatusVerified }

// ChallengeService checks a second factor for an already enrolled account.
// Login codes use their own verification keys so they never disturb a setup
// in progress on the same channel.
type ChallengeService struct {
	Store         store.Store
	Sessions      *verification.Store
	Senders       *delivery.Registry
	Authenticator *authenticator.Engine
	BackupCodes   *BackupCodeService
	Metrics       *metrics.Metrics
	Issuer        string
	Clock         func() time.Time

	// AuthenticatorAttempts wrong authenticator codes in a row lock that
	// method for AuthenticatorLockout after the last failure.
	AuthenticatorAttempts int
	AuthenticatorLockout  time.Duration

	locks syncx.KeyedMutex
}

func (s *ChallengeService) authenticatorLimits() (int, time.Duration) {
	attempts, lockout := s.AuthenticatorAttempts, s.AuthenticatorLockout
	if attempts <= 0 {
		attempts = DefaultAuthenticatorAttempts
	}
	if lockout <= 0 {
		lockout = DefaultAuthenticatorLockout
	}
	return attempts, lockout
}

func (s *ChallengeService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func loginKey(userID string, ch domain.Channel) verification.Key {
	return verification.Key{UserID: userID, Channel: ch, Purpose: domain.PurposeLogin}
}

func (s *ChallengeService) enabledMethod(ctx context.Context, userID string, channel domain.Channel) (domain.MethodState, error) {
	state, err := s.Store.Accounts().GetAccount(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.MethodState{}, ErrMethodNotEnabled
	}
	if err != nil {
		return domain.MethodState{}, fmt.Errorf("failed to load account: %w", err)
	}
	m := state.Methods[channel]
	if !m.Enabled {
		return domain.MethodState{}, ErrMethodNotEnabled
	}
	return m, nil
}

// Send delivers a login code to the verified target of an enabled OTP
// channel. A second Send for the same channel counts as a resend and obeys
// the same cooldown and budget.
func (s *ChallengeService) Send(ctx context.Context, userID string, channel domain.Channel) (ChallengeResult, error) {
	if !channel.Valid() {
		return ChallengeResult{}, ErrInvalidChannel
	}
	if !channel.UsesOTP() {
		return ChallengeResult{}, fmt.Errorf("%w: %s does not deliver codes", ErrInvalidChannel, channel)
	}

	unlock := s.locks.Lock(channelLock(userID, channel))
	defer unlock()

	method, err := s.enabledMethod(ctx, userID, channel)
	if err != nil {
		return ChallengeResult{}, err
	}

	key := loginKey(userID, channel)
	msg := func(code string) delivery.Message {
		return delivery.Message{Issuer: s.Issuer, Code: code, Purpose: domain.PurposeLogin, TTL: s.Sessions.Config().TTL}
	}

	// An existing challenge for the same target is resent, not replaced, so
	// repeated sends cannot dodge the cooldown.
	if prev, ok, err := s.Sessions.Pending(ctx, key); err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to load challenge: %w", err)
	} else if ok && prev.Target == method.Target {
		rr, err := resendCode(ctx, s.Sessions, s.Senders, s.Metrics, msg, key, prev.ID, ErrNoPendingChallenge)
		if err != nil {
			return ChallengeResult{}, err
		}
		return ChallengeResult{ResendResult: rr, Channel: channel, Target: method.Target}, nil
	}

	issued, err := s.Sessions.Create(ctx, key, method.Target)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to create challenge: %w", err)
	}
	if err := deliver(ctx, s.Metrics, s.Senders, channel, method.Target, msg(issued.Code)); err != nil {
		if ierr := s.Sessions.Invalidate(ctx, key, issued.Session.ID); ierr != nil {
			slogx.FromContext(ctx).Error("failed to drop undelivered challenge", slog.Any("error", ierr))
		}
		return ChallengeResult{}, err
	}

	return ChallengeResult{
		ResendResult: ResendResult{
			SessionID:        issued.Session.ID,
			ExpiresAt:        issued.Session.ExpiresAt,
			ResendEligibleAt: issued.Session.ResendEligibleAt,
		},
		Channel: channel,
		Target:  method.Target,
	}, nil
}

// Verify checks a second factor. method is a channel name or
// MethodBackupCode.
func (s *ChallengeService) Verify(ctx context.Context, userID, method, code string) (ChallengeVerifyResult, error) {
	if strings.EqualFold(method, MethodBackupCode) {
		res, err := s.BackupCodes.Redeem(ctx, userID, code)
		if err != nil {
			return ChallengeVerifyResult{}, err
		}
		status := StatusInvalidCode
		if res.Redeemed {
			status = StatusVerified
		}
		s.Metrics.Verification(MethodBackupCode, string(domain.PurposeLogin), string(status))
		return ChallengeVerifyResult{Method: MethodBackupCode, Status: status, BackupCodesRemaining: res.Remaining}, nil
	}

	channel, err := domain.ParseChannel(method)
	if err != nil {
		return ChallengeVerifyResult{}, ErrInvalidChannel
	}

	unlock := s.locks.Lock(channelLock(userID, channel))
	defer unlock()

	if _, err := s.enabledMethod(ctx, userID, channel); err != nil {
		return ChallengeVerifyResult{}, err
	}

	res := ChallengeVerifyResult{Method: channel.String()}
	if channel.UsesOTP() {
		out, err := s.Sessions.Verify(ctx, loginKey(userID, channel), "", code)
		if err != nil {
			return ChallengeVerifyResult{}, fmt.Errorf("failed to verify code: %w", err)
		}
		switch out.Outcome {
		case verification.OutcomeNotFound:
			return ChallengeVerifyResult{}, ErrNoPendingChallenge
		case verification.OutcomeExpired:
			res.Status = StatusExpired
		case verification.OutcomeAttemptsExceeded:
			res.Status = StatusAttemptsExceeded
		case verification.OutcomeMismatch:
			res.Status = StatusInvalidCode
			res.AttemptsRemaining = out.AttemptsRemaining
		default:
			res.Status = StatusVerified
		}
	} else {
		res.Status, res.AttemptsRemaining, err = s.verifyAuthenticator(ctx, userID, code)
		if err != nil {
			return ChallengeVerifyResult{}, err
		}
	}

	s.Metrics.Verification(channel.String(), string(domain.PurposeLogin), string(res.Status))
	if res.Verified() {
		slogx.FromContext(ctx).Info("2fa challenge passed",
			slog.String("user_id", userID),
			slog.String("method", res.Method),
		)
	}
	return res, nil
}

// verifyAuthenticator accepts each time step at most once and stops
// checking codes once too many were wrong. Both rules are enforced by
// conditional updates on the credential row, so they hold across instances.
func (s *ChallengeService) verifyAuthenticator(ctx context.Context, userID, code string) (VerifyStatus, int, error) {
	repo := s.Store.TOTPCredentials()
	cred, err := repo.GetTOTPCredential(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return StatusInvalidCode, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to load authenticator: %w", err)
	}
	if !cred.Active() {
		return StatusInvalidCode, 0, nil
	}

	now := s.now()
	limit, lockout := s.authenticatorLimits()
	if cred.LockedOut(now, limit, lockout) {
		return StatusAttemptsExceeded, 0, nil
	}

	if step, ok := s.Authenticator.Match(cred.Secret, code, now); ok {
		fresh, err := repo.AcceptTOTPStep(ctx, userID, step)
		if err != nil {
			return "", 0, fmt.Errorf("failed to record authenticator use: %w", err)
		}
		if fresh {
			return StatusVerified, 0, nil
		}
		slogx.FromContext(ctx).Warn("authenticator code reused", slog.String("user_id", userID))
	}

	failures, err := repo.RecordTOTPFailure(ctx, userID, now, lockout)
	if errors.Is(err, store.ErrNotFound) {
		return StatusInvalidCode, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to record authenticator failure: %w", err)
	}
	if failures >= limit {
		return StatusAttemptsExceeded, 0, nil
	}
	return StatusInvalidCode, limit - failures, nil
}
