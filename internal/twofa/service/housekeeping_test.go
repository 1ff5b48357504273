package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_Cleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.acceptAll()

	// An OTP setup that will be long expired.
	_, err := f.twofa.BeginSetup(ctx, service.SetupInput{UserID: userID, Channel: domain.ChannelSMS, Identity: phone})
	require.NoError(t, err)

	// An authenticator setup that is never finished.
	_, err = f.twofa.BeginSetup(ctx, service.SetupInput{UserID: userID, Channel: domain.ChannelAuthenticator})
	require.NoError(t, err)

	// A device session that was revoked long ago and one that stays live.
	old := record(t, f, "fp-old", "10.0.0.1")
	require.NoError(t, f.trust.Revoke(ctx, userID, old.ID))

	f.clock.Advance(31 * 24 * time.Hour)
	live := record(t, f, "fp-new", "10.0.0.2")

	hk := service.NewHousekeepingService(f.store, f.sessions, f.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	hk.Clock = f.clock.Now
	require.Equal(t, service.DefaultHousekeepingInterval, hk.Interval)

	hk.Cleanup(ctx)

	_, err = f.store.DeviceSessions().GetDeviceSession(ctx, old.ID)
	require.Error(t, err)
	_, err = f.store.DeviceSessions().GetDeviceSession(ctx, live.ID)
	require.NoError(t, err)

	_, err = f.store.TOTPCredentials().GetTOTPCredential(ctx, userID)
	require.Error(t, err, "abandoned secret is cleared")

	state, err := f.twofa.GetState(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, state.PendingSetup)

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SweptTotal.WithLabelValues("verification_sessions")))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SweptTotal.WithLabelValues("device_sessions")))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SweptTotal.WithLabelValues("pending_secrets")))
}

func TestHousekeeping_StartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	hk := service.NewHousekeepingService(f.store, f.sessions, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Start()
	hk.Stop()
}
