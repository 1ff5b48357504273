package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

// VerifyStatus distinguishes the ways a submitted code can be refused.
type VerifyStatus string

const (
	StatusVerified         VerifyStatus = "verified"
	StatusInvalidCode      VerifyStatus = "invalid_code"
	StatusExpired          VerifyStatus = "code_expired"
	StatusAttemptsExceeded VerifyStatus = "attempts_exceeded"
)

// Contact carries identities known from the caller's token, used when a
// setup request does not name one.
type Contact struct {
	Email       string
	PhoneNumber string
}

func (c Contact) forKind(kind domain.IdentityKind) string {
	switch kind {
	case domain.IdentityEmail:
		return c.Email
	case domain.IdentityPhone:
		return c.PhoneNumber
	}
	return ""
}

// SetupInput starts enrollment of one channel.
type SetupInput struct {
	UserID   string
	Channel  domain.Channel
	Identity string  // explicit phone/email, optional
	Contact  Contact // fallback identities
	Label    string  // authenticator account label, defaults to email or user id
}

// SetupResult describes what the user needs to finish enrollment. OTP
// channels fill the session fields, the authenticator fills the secret.
type SetupResult struct {
	Channel          domain.Channel
	SessionID        string
	Target           string
	ExpiresAt        time.Time
	ResendEligibleAt time.Time

	Secret          string
	ProvisioningURI string
	QRCodePNG       []byte
	Rotating        bool // an older authenticator secret stays active until this one verifies
}

// VerifyResult is the outcome of a setup verification. State is only set
// when the channel was enabled.
type VerifyResult struct {
	Status            VerifyStatus
	AttemptsRemaining int
	State             domain.AccountState
}

// Verified reports whether the channel is now enabled.
func (r VerifyResult) Verified() bool { return r.Status == StatusVerified }

// ResendResult is either a freshly sent code or a policy denial.
type ResendResult struct {
	Denied           bool
	Reason           verification.DenyReason
	RetryAfter       time.Duration
	SessionID        string
	ExpiresAt        time.Time
	ResendEligibleAt time.Time
}

// DisableResult reports whether anything changed and the resulting state.
type DisableResult struct {
	Changed bool
	State   domain.AccountState
}

// TwoFactorService is the single writer of account 2FA state. Calls for the
// same user and channel are serialized; different channels run concurrently.
type TwoFactorService struct {
	Store         store.Store
	Sessions      *verification.Store
	Senders       *delivery.Registry
	Authenticator *authenticator.Engine
	Metrics       *metrics.Metrics
	Trust         *TrustService // optional, used when RevokeOnDisable is set
	Issuer        string
	Clock         func() time.Time

	// RevokeOnDisable revokes every other device session when a method is
	// disabled.
	RevokeOnDisable bool

	locks syncx.KeyedMutex
}

func (s *TwoFactorService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func channelLock(userID string, ch domain.Channel) string { return "channel:" + userID + ":" + string(ch) }
func accountLock(userID string) string                     { return "account:" + userID }

func setupKey(userID string, ch domain.Channel) verification.Key {
	return verification.Key{UserID: userID, Channel: ch, Purpose: domain.PurposeSetup}
}

func (s *TwoFactorService) message(code string, purpose domain.Purpose) delivery.Message {
	return delivery.Message{Issuer: s.Issuer, Code: code, Purpose: purpose, TTL: s.Sessions.Config().TTL}
}

// loadState reads the persisted account and derives the enabled flag. A
// user that never enrolled gets an empty state.
func loadState(ctx context.Context, st store.Store, userID string) (domain.AccountState, error) {
	state, err := st.Accounts().GetAccount(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		state = domain.NewAccountState(userID)
	} else if err != nil {
		return domain.AccountState{}, fmt.Errorf("failed to load account: %w", err)
	}

	n, err := st.BackupCodes().CountUserBackupCodes(ctx, userID)
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("failed to count backup codes: %w", err)
	}
	state.BackupCodes = n
	state.Derive()
	return state, nil
}

// GetState returns the account state, including channels with a setup in
// flight.
func (s *TwoFactorService) GetState(ctx context.Context, userID string) (domain.AccountState, error) {
	state, err := loadState(ctx, s.Store, userID)
	if err != nil {
		return domain.AccountState{}, err
	}

	now := s.now()
	for _, ch := range domain.Channels {
		if !ch.UsesOTP() {
			continue
		}
		sess, ok, err := s.Sessions.Pending(ctx, setupKey(userID, ch))
		if err != nil {
			return domain.AccountState{}, fmt.Errorf("failed to load pending setup: %w", err)
		}
		if ok && !sess.Expired(now) {
			state.PendingSetup = append(state.PendingSetup, ch)
		}
	}

	cred, err := s.Store.TOTPCredentials().GetTOTPCredential(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.AccountState{}, fmt.Errorf("failed to load authenticator: %w", err)
	}
	if cred.Pending() {
		state.PendingSetup = append(state.PendingSetup, domain.ChannelAuthenticator)
		state.TOTPRotating = cred.Active()
	}
	return state, nil
}

// resolveIdentity picks the address for an OTP channel: the explicit one,
// then the token's, then the one the channel was last verified with.
func (s *TwoFactorService) resolveIdentity(ctx context.Context, in SetupInput) (string, error) {
	kind := in.Channel.IdentityKind()
	identity := in.Identity
	if identity == "" {
		identity = in.Contact.forKind(kind)
	}
	if identity == "" {
		state, err := s.Store.Accounts().GetAccount(ctx, in.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("failed to load account: %w", err)
		}
		if err == nil {
			identity = state.Methods[in.Channel].Target
		}
	}
	if identity == "" {
		return "", ErrMissingIdentity
	}
	return delivery.NormalizeIdentity(in.Channel, identity), nil
}

// BeginSetup starts enrollment. OTP channels get a code delivered to the
// resolved identity; the authenticator gets a pending secret. Nothing is
// enabled until Verify succeeds.
func (s *TwoFactorService) BeginSetup(ctx context.Context, in SetupInput) (SetupResult, error) {
	if !in.Channel.Valid() {
		return SetupResult{}, ErrInvalidChannel
	}

	unlock := s.locks.Lock(channelLock(in.UserID, in.Channel))
	defer unlock()

	var (
		res SetupResult
		err error
	)
	if in.Channel.UsesOTP() {
		res, err = s.beginOTPSetup(ctx, in)
	} else {
		res, err = s.beginAuthenticatorSetup(ctx, in)
	}
	s.Metrics.Setup(in.Channel.String(), err)
	return res, err
}

func (s *TwoFactorService) beginOTPSetup(ctx context.Context, in SetupInput) (SetupResult, error) {
	l := slogx.FromContext(ctx)

	target, err := s.resolveIdentity(ctx, in)
	if err != nil {
		return SetupResult{}, err
	}
	if err := senderFor(s.Senders, in.Channel, target); err != nil {
		return SetupResult{}, err
	}

	key := setupKey(in.UserID, in.Channel)
	issued, err := s.Sessions.Create(ctx, key, target)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to create verification session: %w", err)
	}

	if err := deliver(ctx, s.Metrics, s.Senders, in.Channel, target, s.message(issued.Code, domain.PurposeSetup)); err != nil {
		if ierr := s.Sessions.Invalidate(ctx, key, issued.Session.ID); ierr != nil {
			l.Error("failed to drop undelivered session", slog.Any("error", ierr))
		}
		return SetupResult{}, err
	}

	l.Info("2fa setup started",
		slog.String("user_id", in.UserID),
		slog.String("channel", in.Channel.String()),
		slog.String("session_id", issued.Session.ID),
	)

	return SetupResult{
		Channel:          in.Channel,
		SessionID:        issued.Session.ID,
		Target:           target,
		ExpiresAt:        issued.Session.ExpiresAt,
		ResendEligibleAt: issued.Session.ResendEligibleAt,
	}, nil
}

func (s *TwoFactorService) beginAuthenticatorSetup(ctx context.Context, in SetupInput) (SetupResult, error) {
	label := in.Label
	if label == "" {
		label = in.Contact.Email
	}
	if label == "" {
		label = in.UserID
	}

	enrollment, err := s.Authenticator.GenerateSecret(label, s.Issuer)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to generate authenticator secret: %w", err)
	}
	qr, err := s.Authenticator.QRCode(enrollment.Secret, label, authenticator.DefaultQRSize)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to render QR code: %w", err)
	}

	cred, err := s.Store.TOTPCredentials().GetTOTPCredential(ctx, in.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return SetupResult{}, fmt.Errorf("failed to load authenticator: %w", err)
	}
	now := s.now()
	cred.UserID = in.UserID
	cred.PendingSecret = enrollment.Secret
	cred.PendingCreatedAt = &now

	// The active secret, if any, keeps working until this one is verified.
	if err := s.Store.TOTPCredentials().SaveTOTPCredential(ctx, cred); err != nil {
		return SetupResult{}, fmt.Errorf("failed to store pending secret: %w", err)
	}

	slogx.FromContext(ctx).Info("2fa setup started",
		slog.String("user_id", in.UserID),
		slog.String("channel", in.Channel.String()),
		slog.Bool("rotating", cred.Active()),
	)

	return SetupResult{
		Channel:         in.Channel,
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.URI,
		QRCodePNG:       qr,
		Rotating:        cred.Active(),
	}, nil
}

// Verify checks a setup code. On success the channel is enabled and made
// the default in one transaction. Wrong and expired codes are statuses, not
// errors; verifying a channel with nothing pending returns ErrNoPendingSetup.
func (s *TwoFactorService) Verify(ctx context.Context, userID string, channel domain.Channel, sessionID, code string) (VerifyResult, error) {
	if !channel.Valid() {
		return VerifyResult{}, ErrInvalidChannel
	}

	unlock := s.locks.Lock(channelLock(userID, channel))
	defer unlock()

	var (
		res VerifyResult
		err error
	)
	if channel.UsesOTP() {
		res, err = s.verifyOTP(ctx, userID, channel, sessionID, code)
	} else {
		res, err = s.verifyAuthenticator(ctx, userID, code)
	}
	if err == nil {
		s.Metrics.Verification(channel.String(), string(domain.PurposeSetup), string(res.Status))
	}
	return res, err
}

func (s *TwoFactorService) verifyOTP(ctx context.Context, userID string, channel domain.Channel, sessionID, code string) (VerifyResult, error) {
	res, err := s.Sessions.Verify(ctx, setupKey(userID, channel), sessionID, code)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to verify code: %w", err)
	}

	switch res.Outcome {
	case verification.OutcomeNotFound:
		return VerifyResult{}, ErrNoPendingSetup
	case verification.OutcomeExpired:
		return VerifyResult{Status: StatusExpired}, nil
	case verification.OutcomeAttemptsExceeded:
		return VerifyResult{Status: StatusAttemptsExceeded}, nil
	case verification.OutcomeMismatch:
		return VerifyResult{Status: StatusInvalidCode, AttemptsRemaining: res.AttemptsRemaining}, nil
	}

	state, err := s.commitEnable(ctx, userID, channel, res.Session.Target, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: StatusVerified, State: state}, nil
}

func (s *TwoFactorService) verifyAuthenticator(ctx context.Context, userID, code string) (VerifyResult, error) {
	cred, err := s.Store.TOTPCredentials().GetTOTPCredential(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return VerifyResult{}, ErrNoPendingSetup
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to load authenticator: %w", err)
	}
	if !cred.Pending() {
		return VerifyResult{}, ErrNoPendingSetup
	}

	now := s.now()
	step, ok := s.Authenticator.Match(cred.PendingSecret, code, now)
	if !ok {
		return VerifyResult{Status: StatusInvalidCode}, nil
	}

	promoted := domain.TOTPCredential{
		UserID:      userID,
		Secret:      cred.PendingSecret,
		ActivatedAt: &now,
	}
	state, err := s.commitEnable(ctx, userID, domain.ChannelAuthenticator, "", func(tx store.Tx) error {
		if err := tx.TOTPCredentials().SaveTOTPCredential(ctx, promoted); err != nil {
			return err
		}
		// The enrollment code must not double as a sign-in code.
		_, err := tx.TOTPCredentials().AcceptTOTPStep(ctx, userID, step)
		return err
	})
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: StatusVerified, State: state}, nil
}

// commitEnable marks channel enabled and default. extra runs in the same
// transaction so credential promotion and enablement land together.
func (s *TwoFactorService) commitEnable(ctx context.Context, userID string, channel domain.Channel, target string, extra func(tx store.Tx) error) (domain.AccountState, error) {
	unlock := s.locks.Lock(accountLock(userID))
	defer unlock()

	var state domain.AccountState
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}

		st, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		st.Methods[channel] = domain.MethodState{
			Channel:   channel,
			Enabled:   true,
			EnabledAt: &now,
			Target:    target,
		}
		st.DefaultMethod = channel
		st.UpdatedAt = now
		st.Derive()

		if err := tx.Accounts().SaveAccount(ctx, st); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		state = st
		return nil
	})
	if err != nil {
		return domain.AccountState{}, err
	}

	slogx.FromContext(ctx).Info("2fa method enabled",
		slog.String("user_id", userID),
		slog.String("channel", channel.String()),
	)
	return state, nil
}

// Resend issues a new code for the pending setup of an OTP channel. It is
// denied during the cooldown and after the resend budget is spent. If the
// new code cannot be delivered the previous one is restored.
func (s *TwoFactorService) Resend(ctx context.Context, userID string, channel domain.Channel, sessionID string) (ResendResult, error) {
	if !channel.Valid() {
		return ResendResult{}, ErrInvalidChannel
	}
	if !channel.UsesOTP() {
		return ResendResult{}, fmt.Errorf("%w: %s has no code to resend", ErrInvalidChannel, channel)
	}

	unlock := s.locks.Lock(channelLock(userID, channel))
	defer unlock()

	return s.resend(ctx, setupKey(userID, channel), sessionID, ErrNoPendingSetup)
}

// resendCode is shared with login challenges; notFound is returned when no
// session exists under key.
func resendCode(ctx context.Context, sessions *verification.Store, senders *delivery.Registry, m *metrics.Metrics, msg func(code string) delivery.Message, key verification.Key, sessionID string, notFound error) (ResendResult, error) {
	rr, err := sessions.Resend(ctx, key, sessionID)
	if errors.Is(err, verification.ErrNotFound) {
		return ResendResult{}, notFound
	}
	if err != nil {
		return ResendResult{}, fmt.Errorf("failed to resend code: %w", err)
	}

	if rr.Denied {
		m.Resend(key.Channel.String(), string(rr.Reason))
		return ResendResult{
			Denied:           true,
			Reason:           rr.Reason,
			RetryAfter:       rr.RetryAfter,
			SessionID:        rr.Previous.ID,
			ExpiresAt:        rr.Previous.ExpiresAt,
			ResendEligibleAt: rr.Previous.ResendEligibleAt,
		}, nil
	}

	sess := rr.Issued.Session
	if err := deliver(ctx, m, senders, key.Channel, sess.Target, msg(rr.Issued.Code)); err != nil {
		if rerr := sessions.Restore(ctx, rr.Previous, rr.Issued.Session); rerr != nil {
			slogx.FromContext(ctx).Error("failed to restore session after failed resend", slog.Any("error", rerr))
		}
		m.Resend(key.Channel.String(), "error")
		return ResendResult{}, err
	}

	m.Resend(key.Channel.String(), "ok")
	return ResendResult{
		SessionID:        sess.ID,
		ExpiresAt:        sess.ExpiresAt,
		ResendEligibleAt: sess.ResendEligibleAt,
	}, nil
}

func (s *TwoFactorService) resend(ctx context.Context, key verification.Key, sessionID string, notFound error) (ResendResult, error) {
	msg := func(code string) delivery.Message { return s.message(code, key.Purpose) }
	return resendCode(ctx, s.Sessions, s.Senders, s.Metrics, msg, key, sessionID, notFound)
}

// CancelSetup abandons an in-flight setup. OTP sessions are invalidated
// right away instead of being left to expire; a pending authenticator
// secret is discarded while any active one is kept. Cancelling with nothing
// pending is a no-op.
func (s *TwoFactorService) CancelSetup(ctx context.Context, userID string, channel domain.Channel) error {
	if !channel.Valid() {
		return ErrInvalidChannel
	}

	unlock := s.locks.Lock(channelLock(userID, channel))
	defer unlock()

	if channel.UsesOTP() {
		if err := s.Sessions.Invalidate(ctx, setupKey(userID, channel), ""); err != nil {
			return fmt.Errorf("failed to cancel setup: %w", err)
		}
		return nil
	}

	cred, err := s.Store.TOTPCredentials().GetTOTPCredential(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load authenticator: %w", err)
	}
	if !cred.Pending() {
		return nil
	}
	if !cred.Active() {
		return s.Store.TOTPCredentials().DeleteTOTPCredential(ctx, userID)
	}
	cred.PendingSecret, cred.PendingCreatedAt = "", nil
	return s.Store.TOTPCredentials().SaveTOTPCredential(ctx, cred)
}

// Disable turns one method off. If it was the default the default becomes
// NONE; no other method is promoted. Disabling the last enabled method also
// discards the backup codes. Disabling a method that is not enabled changes
// nothing and succeeds.
func (s *TwoFactorService) Disable(ctx context.Context, userID string, channel domain.Channel) (DisableResult, error) {
	if !channel.Valid() {
		return DisableResult{}, ErrInvalidChannel
	}

	unlockChannel := s.locks.Lock(channelLock(userID, channel))
	defer unlockChannel()
	unlock := s.locks.Lock(accountLock(userID))
	defer unlock()

	var res DisableResult
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		st, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !st.IsEnabled(channel) {
			res.State = st
			return nil
		}

		prev := st.Methods[channel]
		st.Methods[channel] = domain.MethodState{Channel: channel, Target: prev.Target}
		if st.DefaultMethod == channel {
			st.DefaultMethod = domain.ChannelNone
		}

		if channel == domain.ChannelAuthenticator {
			if err := tx.TOTPCredentials().DeleteTOTPCredential(ctx, userID); err != nil {
				return fmt.Errorf("failed to erase authenticator secret: %w", err)
			}
		}
		if len(st.EnabledMethods()) == 0 && st.BackupCodes > 0 {
			if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
				return fmt.Errorf("failed to delete backup codes: %w", err)
			}
			st.BackupCodes = 0
		}

		st.UpdatedAt = s.now()
		st.Derive()
		if err := tx.Accounts().SaveAccount(ctx, st); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		res = DisableResult{Changed: true, State: st}
		return nil
	})
	if err != nil {
		return DisableResult{}, err
	}

	if res.Changed {
		s.Metrics.Disable(channel.String())
		slogx.FromContext(ctx).Info("2fa method disabled",
			slog.String("user_id", userID),
			slog.String("channel", channel.String()),
		)
		s.revokeOtherSessions(ctx, userID)
	}
	return res, nil
}

// DisableAll turns every method off, erases authenticator secrets and backup
// codes in one transaction, then drops any setup still in flight.
func (s *TwoFactorService) DisableAll(ctx context.Context, userID string) (DisableResult, error) {
	unlock := s.locks.Lock(accountLock(userID))
	defer unlock()

	var changed bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		st, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}
		changed = st.Enabled || st.DefaultMethod != domain.ChannelNone

		if err := tx.Accounts().DeleteAccount(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear methods: %w", err)
		}
		if err := tx.TOTPCredentials().DeleteTOTPCredential(ctx, userID); err != nil {
			return fmt.Errorf("failed to erase authenticator secret: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return DisableResult{}, err
	}

	l := slogx.FromContext(ctx)
	for _, ch := range domain.Channels {
		if !ch.UsesOTP() {
			continue
		}
		if err := s.Sessions.Invalidate(ctx, setupKey(userID, ch), ""); err != nil {
			l.Warn("failed to drop pending setup", slog.String("channel", ch.String()), slog.Any("error", err))
		}
	}

	state := domain.NewAccountState(userID)
	state.Derive()

	if changed {
		s.Metrics.Disable("ALL")
		l.Info("2fa disabled for all methods", slog.String("user_id", userID))
		s.revokeOtherSessions(ctx, userID)
	}
	return DisableResult{Changed: changed, State: state}, nil
}

// SetDefault re-designates the default among enabled methods.
func (s *TwoFactorService) SetDefault(ctx context.Context, userID string, channel domain.Channel) (domain.AccountState, error) {
	if !channel.Valid() {
		return domain.AccountState{}, ErrInvalidChannel
	}

	unlock := s.locks.Lock(accountLock(userID))
	defer unlock()

	var state domain.AccountState
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		st, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !st.IsEnabled(channel) {
			return ErrMethodNotEnabled
		}
		if st.DefaultMethod != channel {
			st.DefaultMethod = channel
			st.UpdatedAt = s.now()
			if err := tx.Accounts().SaveAccount(ctx, st); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}
		}
		state = st
		return nil
	})
	return state, err
}

func (s *TwoFactorService) revokeOtherSessions(ctx context.Context, userID string) {
	if !s.RevokeOnDisable || s.Trust == nil {
		return
	}
	res, err := s.Trust.RevokeAll(ctx, userID, SessionIDFromContext(ctx))
	l := slogx.FromContext(ctx)
	if err != nil {
		l.Error("failed to revoke sessions after disable", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	if len(res.Failed) > 0 {
		l.Warn("some sessions were not revoked after disable",
			slog.String("user_id", userID),
			slog.Int("failed", len(res.Failed)),
		)
	}
}
