package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/aussiebroadwan/sentinel/pkg/idx"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
)

const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

// Risk weights added to the base score of a new session.
const (
	riskBase             = 5
	riskUnseenDevice     = 40
	riskUnseenIP         = 25
	riskNoUserAgent      = 15
	riskManySessions     = 10
	riskManySessionsOver = 5
)

// RecordInput describes a freshly authenticated device.
type RecordInput struct {
	UserID      string
	Fingerprint string
	UserAgent   string
	IPAddress   string
}

// SessionView is a device session with its derived status.
type SessionView struct {
	domain.DeviceSession
	Status  domain.SessionStatus
	Current bool
}

// SessionPage is one page of sessions, newest first. NextCursor is empty on
// the last page.
type SessionPage struct {
	Sessions   []SessionView
	NextCursor string
}

// RevokeFailure names a session a bulk revoke could not transition.
type RevokeFailure struct {
	SessionID string
	Err       error
}

// RevokeAllResult lists exactly which sessions were and were not revoked.
type RevokeAllResult struct {
	Revoked []string
	Failed  []RevokeFailure
}

// TrustService owns device session records.
type TrustService struct {
	Store      store.Store
	Metrics    *metrics.Metrics
	SessionTTL time.Duration
	Clock      func() time.Time
}

func (s *TrustService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// ScoreRisk computes the risk of a new session from what is known about the
// user's history. The result is clamped to [0,100].
func ScoreRisk(fingerprintSeen, ipSeen bool, userAgent string, activeSessions int) int {
	score := riskBase
	if !fingerprintSeen {
		score += riskUnseenDevice
	}
	if !ipSeen {
		score += riskUnseenIP
	}
	if strings.TrimSpace(userAgent) == "" {
		score += riskNoUserAgent
	}
	if activeSessions > riskManySessionsOver {
		score += riskManySessions
	}
	return min(max(score, 0), 100)
}

// Record creates a session for a newly authenticated device.
func (s *TrustService) Record(ctx context.Context, in RecordInput) (domain.DeviceSession, error) {
	if in.UserID == "" || strings.TrimSpace(in.Fingerprint) == "" {
		return domain.DeviceSession{}, fmt.Errorf("%w: fingerprint is required", ErrInvalidRequest)
	}

	now := s.now()
	fpSeen, ipSeen, err := s.Store.DeviceSessions().SeenBefore(ctx, in.UserID, in.Fingerprint, in.IPAddress)
	if err != nil {
		return domain.DeviceSession{}, fmt.Errorf("failed to load session history: %w", err)
	}
	active, err := s.Store.DeviceSessions().ListActiveDeviceSessions(ctx, in.UserID, now)
	if err != nil {
		return domain.DeviceSession{}, fmt.Errorf("failed to load active sessions: %w", err)
	}

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	ds := domain.DeviceSession{
		ID:          idx.NewAt(now).String(),
		UserID:      in.UserID,
		Fingerprint: in.Fingerprint,
		UserAgent:   in.UserAgent,
		IPAddress:   in.IPAddress,
		RiskScore:   ScoreRisk(fpSeen, ipSeen, in.UserAgent, len(active)),
		CreatedAt:   now.Truncate(time.Second),
		ExpiresAt:   now.Add(ttl).Truncate(time.Second),
		LastSeenAt:  now.Truncate(time.Second),
	}
	if err := s.Store.DeviceSessions().CreateDeviceSession(ctx, ds); err != nil {
		return domain.DeviceSession{}, fmt.Errorf("failed to create session: %w", err)
	}

	slogx.FromContext(ctx).Info("device session recorded",
		slog.String("user_id", in.UserID),
		slog.String("session_id", ds.ID),
		slog.Int("risk_score", ds.RiskScore),
		slog.String("risk_level", string(ds.RiskLevel())),
	)
	return ds, nil
}

// List pages the user's sessions newest first. cursor is the NextCursor of
// the previous page. The session in ctx, if any, is flagged Current.
func (s *TrustService) List(ctx context.Context, userID, cursor string, limit int) (SessionPage, error) {
	if cursor != "" {
		if _, err := idx.Parse(cursor); err != nil {
			return SessionPage{}, ErrInvalidCursor
		}
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	// Fetch one extra row to learn whether another page exists.
	rows, err := s.Store.DeviceSessions().ListDeviceSessions(ctx, userID, cursor, limit+1)
	if err != nil {
		return SessionPage{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	var page SessionPage
	if len(rows) > limit {
		rows = rows[:limit]
		page.NextCursor = rows[len(rows)-1].ID
	}

	now := s.now()
	current := SessionIDFromContext(ctx)
	page.Sessions = make([]SessionView, 0, len(rows))
	for _, ds := range rows {
		page.Sessions = append(page.Sessions, SessionView{
			DeviceSession: ds,
			Status:        ds.Status(now),
			Current:       ds.ID == current,
		})
	}
	return page, nil
}

// owned loads a session and hides sessions of other users behind NotFound.
func (s *TrustService) owned(ctx context.Context, userID, sessionID string) (domain.DeviceSession, error) {
	ds, err := s.Store.DeviceSessions().GetDeviceSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DeviceSession{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.DeviceSession{}, fmt.Errorf("failed to load session: %w", err)
	}
	if ds.UserID != userID {
		return domain.DeviceSession{}, ErrSessionNotFound
	}
	return ds, nil
}

// Revoke transitions a session to REVOKED. Revoking a revoked session
// succeeds; a missing session is ErrSessionNotFound.
func (s *TrustService) Revoke(ctx context.Context, userID, sessionID string) error {
	ds, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if ds.Revoked() {
		return nil
	}

	err = s.Store.DeviceSessions().RevokeDeviceSession(ctx, sessionID, s.now())
	s.Metrics.Revocation(err)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	slogx.FromContext(ctx).Info("device session revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeAll revokes every active session of the user except exceptID. Each
// session is revoked on its own so one failure does not hide the others;
// the result names every session that was not revoked.
func (s *TrustService) RevokeAll(ctx context.Context, userID, exceptID string) (RevokeAllResult, error) {
	active, err := s.Store.DeviceSessions().ListActiveDeviceSessions(ctx, userID, s.now())
	if err != nil {
		return RevokeAllResult{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	res := RevokeAllResult{Revoked: []string{}, Failed: []RevokeFailure{}}
	for _, ds := range active {
		if ds.ID == exceptID {
			continue
		}
		err := s.Store.DeviceSessions().RevokeDeviceSession(ctx, ds.ID, s.now())
		s.Metrics.Revocation(err)
		if err != nil {
			res.Failed = append(res.Failed, RevokeFailure{SessionID: ds.ID, Err: err})
			continue
		}
		res.Revoked = append(res.Revoked, ds.ID)
	}

	l := slogx.FromContext(ctx)
	if len(res.Failed) > 0 {
		l.Warn("bulk session revoke partially failed",
			slog.String("user_id", userID),
			slog.Int("revoked", len(res.Revoked)),
			slog.Int("failed", len(res.Failed)),
		)
	} else {
		l.Info("bulk session revoke", slog.String("user_id", userID), slog.Int("revoked", len(res.Revoked)))
	}
	return res, nil
}

// Touch records activity on a session. Revoked and expired sessions cannot
// be brought back.
func (s *TrustService) Touch(ctx context.Context, userID, sessionID, ipAddress string) (SessionView, error) {
	ds, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}

	now := s.now()
	if ds.Revoked() {
		return SessionView{}, ErrSessionRevoked
	}
	if !now.Before(ds.ExpiresAt) {
		return SessionView{}, ErrSessionExpired
	}

	if err := s.Store.DeviceSessions().TouchDeviceSession(ctx, sessionID, ipAddress, now); err != nil {
		return SessionView{}, fmt.Errorf("failed to touch session: %w", err)
	}
	ds.LastSeenAt = now.Truncate(time.Second)
	if ipAddress != "" {
		ds.IPAddress = ipAddress
	}
	return SessionView{
		DeviceSession: ds,
		Status:        ds.Status(now),
		Current:       ds.ID == SessionIDFromContext(ctx),
	}, nil
}
