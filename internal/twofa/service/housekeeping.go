package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
)

const (
	DefaultHousekeepingInterval = 15 * time.Minute
	DefaultDeviceRetention      = 30 * 24 * time.Hour
	DefaultPendingSecretTTL     = 24 * time.Hour
)

// HousekeepingService periodically removes expired verification sessions,
// long dead device sessions and abandoned authenticator setups.
type HousekeepingService struct {
	Store    store.Store
	Sessions *verification.Store
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Interval time.Duration

	DeviceRetention  time.Duration // how long expired or revoked sessions are kept
	PendingSecretTTL time.Duration // how long an unverified authenticator secret is kept
	Clock            func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, DefaultHousekeepingInterval is used.
func NewHousekeepingService(st store.Store, sessions *verification.Store, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Store:            st,
		Sessions:         sessions,
		Metrics:          m,
		Logger:           logger,
		Interval:         interval,
		DeviceRetention:  DefaultDeviceRetention,
		PendingSecretTTL: DefaultPendingSecretTTL,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// Cleanup runs one pass. Each step is independent; a failure in one does
// not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.now()
	successful := 0

	if s.Sessions != nil {
		if n, err := s.Sessions.Sweep(ctx); err != nil {
			s.Logger.Error("failed to sweep verification sessions", "error", err)
		} else {
			s.Metrics.Swept("verification_sessions", int64(n))
			s.Logger.Debug("swept verification sessions", "count", n)
			successful++
		}
	}

	if n, err := s.Store.DeviceSessions().DeleteStaleDeviceSessions(ctx, now.Add(-s.DeviceRetention)); err != nil {
		s.Logger.Error("failed to delete stale device sessions", "error", err)
	} else {
		s.Metrics.Swept("device_sessions", n)
		s.Logger.Debug("deleted stale device sessions", "count", n)
		successful++
	}

	if n, err := s.Store.TOTPCredentials().ClearStalePending(ctx, now.Add(-s.PendingSecretTTL)); err != nil {
		s.Logger.Error("failed to clear abandoned authenticator setups", "error", err)
	} else {
		s.Metrics.Swept("pending_secrets", n)
		s.Logger.Debug("cleared abandoned authenticator setups", "count", n)
		successful++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", successful)
}
