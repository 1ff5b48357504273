package sentinel_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"
)

func TestHealth(t *testing.T) {
	client := setupSentinel(t, true)
	ctx := context.Background()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Verification)
}

// TestAuthenticatorLifecycle enrolls an authenticator, signs in with it and
// with a backup code, then turns 2FA off again.
func TestAuthenticatorLifecycle(t *testing.T) {
	client := setupSentinel(t, true)
	ctx := context.Background()
	sess := login(t, client, "01JAE2E0000000000000000001", "")

	state, err := sess.GetState(ctx)
	require.NoError(t, err)
	require.False(t, state.Enabled)
	require.Equal(t, "NONE", state.DefaultMethod)

	setup, err := sess.BeginSetup(ctx, "authenticator", twofasdk.SetupRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningURI, "issuer=Sentinel")
	require.NotEmpty(t, setup.QRCode)

	totp := gotp.NewDefaultTOTP(setup.Secret)
	state, err = sess.VerifySetup(ctx, "authenticator", twofasdk.VerifyRequest{Code: totp.Now()})
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, "AUTHENTICATOR", state.DefaultMethod)

	// The code that finished setup is spent; sign in with the next one.
	time.Sleep(time.Until(time.Now().Truncate(30*time.Second).Add(31 * time.Second)))
	code := totp.Now()
	res, err := sess.VerifyChallenge(ctx, "authenticator", code)
	require.NoError(t, err)
	require.True(t, res.Verified)

	_, err = sess.VerifyChallenge(ctx, "authenticator", code)
	assertAPIError(t, err, twofasdk.ErrorCodeInvalidCode)

	batch, err := sess.GenerateBackupCodes(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Codes, 10)

	res, err = sess.VerifyChallenge(ctx, "backup_code", batch.Codes[0].Code)
	require.NoError(t, err)
	require.Equal(t, 9, res.BackupCodesRemaining)

	_, err = sess.RedeemBackupCode(ctx, batch.Codes[0].Code)
	assertAPIError(t, err, twofasdk.ErrorCodeInvalidCode)

	disabled, err := sess.Disable(ctx, "authenticator")
	require.NoError(t, err)
	require.True(t, disabled.Changed)
	require.False(t, disabled.State.Enabled, "the last method takes the backup codes with it")
}

func TestEmailSetupWithLogSender(t *testing.T) {
	client := setupSentinel(t, true)
	ctx := context.Background()
	sess := login(t, client, "01JAE2E0000000000000000002", "")

	// The address comes from the token's email claim.
	setup, err := sess.BeginSetup(ctx, "email", twofasdk.SetupRequest{})
	require.NoError(t, err)
	require.Equal(t, "EMAIL", setup.Channel)
	require.NotEmpty(t, setup.SessionID)
	require.NotContains(t, setup.Target, "01JAE2E0000000000000000002")

	_, err = sess.ResendSetup(ctx, "email", twofasdk.ResendRequest{SessionID: setup.SessionID})
	apiErr := assertAPIError(t, err, twofasdk.ErrorCodeResendCooldown)
	require.Positive(t, apiErr.RetryAfterSeconds)

	require.NoError(t, sess.CancelSetup(ctx, "email"))

	state, err := sess.GetState(ctx)
	require.NoError(t, err)
	require.Empty(t, state.PendingSetup)
}

func TestDeviceSessions(t *testing.T) {
	client := setupSentinel(t, true)
	ctx := context.Background()
	const userID = "01JAE2E0000000000000000003"

	laptop, err := login(t, client, userID, "").RecordSession(ctx, twofasdk.RecordSessionRequest{
		Fingerprint: "laptop",
		UserAgent:   "e2e",
	})
	require.NoError(t, err)

	sess := login(t, client, userID, laptop.ID)
	for _, fp := range []string{"phone", "tablet"} {
		_, err := sess.RecordSession(ctx, twofasdk.RecordSessionRequest{Fingerprint: fp, UserAgent: "e2e"})
		require.NoError(t, err)
	}

	page, err := sess.ListSessions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Sessions, 3)

	revoked, err := sess.RevokeOtherSessions(ctx)
	require.NoError(t, err)
	require.Len(t, revoked.Revoked, 2)
	require.NotContains(t, revoked.Revoked, laptop.ID)

	touched, err := sess.TouchSession(ctx, laptop.ID)
	require.NoError(t, err)
	require.Equal(t, "ONLINE", touched.Status)
}

func TestUnauthorized(t *testing.T) {
	client := setupSentinel(t, true)

	_, err := client.NewSession("").GetState(context.Background())
	apiErr := assertAPIError(t, err, twofasdk.ErrorCodeUnauthorized)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

// TestRateLimitChallengeVerify checks sign-in code guessing is throttled per
// user with the default strict profile (5 req/min).
func TestRateLimitChallengeVerify(t *testing.T) {
	client := setupSentinel(t, false)
	ctx := context.Background()
	sess := login(t, client, "01JAE2E0000000000000000004", "")

	for i := range 5 {
		_, err := sess.VerifyChallenge(ctx, "sms", "123456")
		apiErr := assertAPIError(t, err, twofasdk.ErrorCodeMethodNotEnabled)
		require.NotEqual(t, http.StatusTooManyRequests, apiErr.StatusCode, "request %d", i+1)
	}

	_, err := sess.VerifyChallenge(ctx, "sms", "123456")
	apiErr := assertAPIError(t, err, twofasdk.ErrorCodeRateLimitExceeded)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Positive(t, apiErr.RetryAfterSeconds)
}
