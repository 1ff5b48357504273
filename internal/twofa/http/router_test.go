package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	twofahttp "github.com/aussiebroadwan/sentinel/internal/twofa/http"

	"github.com/aussiebroadwan/sentinel/internal/twofa/authenticator"
	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store/drivers/sqldb"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://id.example.com"
	userID     = "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"
	phone      = "+15551234567"
)

var testSecret = []byte(strings.Repeat("s", jwtx.MinSecretLen))

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records delivered messages per recipient. Setting fail makes every
// send fail.
type outbox struct {
	channel domain.Channel

	mu   sync.Mutex
	sent map[string][]delivery.Message
	fail bool
}

func (o *outbox) Channel() domain.Channel { return o.channel }

func (o *outbox) ValidateIdentity(identity string) error {
	return delivery.ValidateIdentity(o.channel, identity)
}

func (o *outbox) Send(_ context.Context, to string, msg delivery.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("gateway unavailable")
	}
	o.sent[to] = append(o.sent[to], msg)
	return nil
}

func (o *outbox) last(t *testing.T, to string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.sent[to]
	require.NotEmpty(t, msgs, "nothing sent to %s", to)
	return msgs[len(msgs)-1].Code
}

func (o *outbox) setFail(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = fail
}

type harness struct {
	clock  *fakeClock
	engine *authenticator.Engine
	sms    *outbox
	email  *outbox
	signer jwtx.Signer
	client *twofasdk.SDKClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqldb.Open(sqldb.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	h := &harness{
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		engine: authenticator.New("Sentinel"),
		sms:    &outbox{channel: domain.ChannelSMS, sent: map[string][]delivery.Message{}},
		email:  &outbox{channel: domain.ChannelEmail, sent: map[string][]delivery.Message{}},
	}

	backend := verification.NewMemoryBackend().WithClock(h.clock.Now)
	sessions := verification.NewStore(backend, verification.DefaultConfig(), verification.WithClock(h.clock.Now))
	senders := delivery.NewRegistry(h.sms, h.email, delivery.NewLogSender(domain.ChannelWhatsApp))
	m := metrics.New(prometheus.NewRegistry())

	trust := &service.TrustService{Store: st, Metrics: m, Clock: h.clock.Now}
	vault := &service.BackupCodeService{Store: st, Metrics: m, Clock: h.clock.Now}

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: testIssuer})
	require.NoError(t, err)
	h.signer = signer

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := twofahttp.NewRouter(verifier, "test", st, sessions, m, logger)
	router.TwoFactorService = &service.TwoFactorService{
		Store:         st,
		Sessions:      sessions,
		Senders:       senders,
		Authenticator: h.engine,
		Metrics:       m,
		Trust:         trust,
		Issuer:        "Sentinel",
		Clock:         h.clock.Now,
	}
	router.BackupCodes = vault
	router.ChallengeService = &service.ChallengeService{
		Store:         st,
		Sessions:      sessions,
		Senders:       senders,
		Authenticator: h.engine,
		BackupCodes:   vault,
		Metrics:       m,
		Issuer:        "Sentinel",
		Clock:         h.clock.Now,
	}
	router.TrustService = trust
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	h.client = twofasdk.NewSDKClient(srv.URL)
	return h
}

// session returns a client authenticated as userID. edit can set the sid
// and contact claims.
func (h *harness) session(t *testing.T, edit func(*jwtx.Claims)) *twofasdk.Session {
	t.Helper()
	claims := jwtx.NewAccessClaims(userID, "", time.Minute, testIssuer, nil, time.Now())
	if edit != nil {
		edit(&claims)
	}
	token, err := h.signer.Sign(claims)
	require.NoError(t, err)
	return h.client.NewSession(token)
}

func requireAPIError(t *testing.T, err error, code string) *twofasdk.APIError {
	t.Helper()
	var apiErr *twofasdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code, apiErr.Description)
	return apiErr
}

func method(state *twofasdk.AccountState, channel string) twofasdk.MethodState {
	for _, m := range state.Methods {
		if m.Channel == channel {
			return m
		}
	}
	return twofasdk.MethodState{}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	live, err := h.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := h.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Verification)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.client.NewSession("").GetState(context.Background())
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeUnauthorized)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = h.client.NewSession("not-a-jwt").GetState(context.Background())
	requireAPIError(t, err, twofasdk.ErrorCodeUnauthorized)
}

func TestSMSEnrollment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	setup, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	require.NoError(t, err)
	require.Equal(t, "SMS", setup.Channel)
	require.NotEmpty(t, setup.SessionID)
	require.NotContains(t, setup.Target, "234", "target is masked")
	require.Equal(t, 5*time.Minute, setup.ExpiresAt.Sub(h.clock.Now()))

	state, err := sess.GetState(ctx)
	require.NoError(t, err)
	require.False(t, state.Enabled)
	require.Equal(t, []string{"SMS"}, state.PendingSetup)

	code := h.sms.last(t, phone)
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	_, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{SessionID: setup.SessionID, Code: wrong})
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeInvalidCode)
	require.Equal(t, 4, apiErr.AttemptsRemaining)

	state, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{SessionID: setup.SessionID, Code: code})
	require.NoError(t, err)
	require.True(t, state.Enabled)
	require.Equal(t, "SMS", state.DefaultMethod)
	require.True(t, method(state, "SMS").Enabled)
	require.NotNil(t, method(state, "SMS").EnabledAt)

	// The code is spent.
	_, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{Code: code})
	requireAPIError(t, err, twofasdk.ErrorCodeNoPendingSetup)
}

func TestSetupIdentityFromToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	sess := h.session(t, func(c *jwtx.Claims) { c.Email = "User@Example.com" })
	_, err := sess.BeginSetup(ctx, "email", twofasdk.SetupRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, h.email.last(t, "user@example.com"))

	// No phone anywhere.
	_, err = sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{})
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeMissingIdentity)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	_, err = sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: "0400 not a number"})
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidIdentity)
}

func TestSetupErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	_, err := sess.BeginSetup(ctx, "pigeon", twofasdk.SetupRequest{})
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidChannel)

	_, err = sess.VerifySetup(ctx, "email", twofasdk.VerifyRequest{Code: "123456"})
	requireAPIError(t, err, twofasdk.ErrorCodeNoPendingSetup)

	_, err = sess.VerifySetup(ctx, "email", twofasdk.VerifyRequest{})
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidRequest)

	h.sms.setFail(true)
	_, err = sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeDeliveryFailed)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)

	state, err := sess.GetState(ctx)
	require.NoError(t, err)
	require.Empty(t, state.PendingSetup, "an undelivered code leaves nothing pending")
}

func TestResendCooldown(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	setup, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	require.NoError(t, err)
	first := h.sms.last(t, phone)

	_, err = sess.ResendSetup(ctx, "sms", twofasdk.ResendRequest{SessionID: setup.SessionID})
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeResendCooldown)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, 60, apiErr.RetryAfterSeconds)

	h.clock.Advance(45 * time.Second)
	_, err = sess.ResendSetup(ctx, "sms", twofasdk.ResendRequest{SessionID: setup.SessionID})
	apiErr = requireAPIError(t, err, twofasdk.ErrorCodeResendCooldown)
	require.Equal(t, 15, apiErr.RetryAfterSeconds)

	h.clock.Advance(15 * time.Second)
	resent, err := sess.ResendSetup(ctx, "sms", twofasdk.ResendRequest{SessionID: setup.SessionID})
	require.NoError(t, err)
	require.Equal(t, setup.SessionID, resent.SessionID)
	require.NotEqual(t, first, h.sms.last(t, phone))

	_, err = sess.ResendSetup(ctx, "email", twofasdk.ResendRequest{})
	requireAPIError(t, err, twofasdk.ErrorCodeNoPendingSetup)
}

func TestExpiredCode(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	_, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	require.NoError(t, err)
	code := h.sms.last(t, phone)

	h.clock.Advance(6 * time.Minute)
	_, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{Code: code})
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeCodeExpired)
	require.Equal(t, http.StatusGone, apiErr.StatusCode)
}

func TestAuthenticatorChallengeAndBackupCodes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	setup, err := sess.BeginSetup(ctx, "authenticator", twofasdk.SetupRequest{Label: "user@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/"))
	require.NotEmpty(t, setup.QRCode)
	require.Empty(t, setup.SessionID)

	code, err := h.engine.Code(setup.Secret, h.clock.Now())
	require.NoError(t, err)
	state, err := sess.VerifySetup(ctx, "authenticator", twofasdk.VerifyRequest{Code: code})
	require.NoError(t, err)
	require.Equal(t, "AUTHENTICATOR", state.DefaultMethod)

	_, err = sess.VerifyChallenge(ctx, "AUTHENTICATOR", code)
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidCode)

	h.clock.Advance(time.Minute)
	code, err = h.engine.Code(setup.Secret, h.clock.Now())
	require.NoError(t, err)
	res, err := sess.VerifyChallenge(ctx, "AUTHENTICATOR", code)
	require.NoError(t, err)
	require.True(t, res.Verified)

	_, err = sess.SendChallenge(ctx, "AUTHENTICATOR")
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidChannel)
	_, err = sess.SendChallenge(ctx, "SMS")
	requireAPIError(t, err, twofasdk.ErrorCodeMethodNotEnabled)

	batch, err := sess.GenerateBackupCodes(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Codes, 10)
	require.Equal(t, 10, batch.Remaining)
	for _, c := range batch.Codes {
		require.Len(t, c.Code, 8)
	}

	res, err = sess.VerifyChallenge(ctx, "backup_code", batch.Codes[0].Code)
	require.NoError(t, err)
	require.Equal(t, 9, res.BackupCodesRemaining)

	_, err = sess.VerifyChallenge(ctx, "backup_code", batch.Codes[0].Code)
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidCode)

	redeemed, err := sess.RedeemBackupCode(ctx, batch.Codes[1].Code)
	require.NoError(t, err)
	require.Equal(t, 8, redeemed.Remaining)

	listed, err := sess.ListBackupCodes(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, listed.Remaining)
	require.True(t, listed.Codes[0].Consumed || listed.Codes[1].Consumed)
}

func TestSMSChallenge(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	_, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	require.NoError(t, err)
	_, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{Code: h.sms.last(t, phone)})
	require.NoError(t, err)

	_, err = sess.VerifyChallenge(ctx, "SMS", "123456")
	requireAPIError(t, err, twofasdk.ErrorCodeNoPendingChallenge)

	sent, err := sess.SendChallenge(ctx, "sms")
	require.NoError(t, err)
	require.Equal(t, "SMS", sent.Channel)

	_, err = sess.SendChallenge(ctx, "sms")
	requireAPIError(t, err, twofasdk.ErrorCodeResendCooldown)

	res, err := sess.VerifyChallenge(ctx, "sms", h.sms.last(t, phone))
	require.NoError(t, err)
	require.Equal(t, "SMS", res.Method)
}

func TestDisableAndDefault(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	for _, ch := range []struct{ channel, to string }{{"sms", phone}, {"email", "user@example.com"}} {
		_, err := sess.BeginSetup(ctx, ch.channel, twofasdk.SetupRequest{Identity: ch.to})
		require.NoError(t, err)
		box := h.sms
		if ch.channel == "email" {
			box = h.email
		}
		_, err = sess.VerifySetup(ctx, ch.channel, twofasdk.VerifyRequest{Code: box.last(t, ch.to)})
		require.NoError(t, err)
	}

	state, err := sess.SetDefault(ctx, "sms")
	require.NoError(t, err)
	require.Equal(t, "SMS", state.DefaultMethod)

	_, err = sess.SetDefault(ctx, "authenticator")
	apiErr := requireAPIError(t, err, twofasdk.ErrorCodeMethodNotEnabled)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)

	res, err := sess.Disable(ctx, "sms")
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "NONE", res.State.DefaultMethod)
	require.True(t, res.State.Enabled, "email is still enabled")

	res, err = sess.Disable(ctx, "sms")
	require.NoError(t, err)
	require.False(t, res.Changed)

	_, err = sess.GenerateBackupCodes(ctx)
	require.NoError(t, err)

	res, err = sess.DisableAll(ctx)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.False(t, res.State.Enabled)
	require.Zero(t, res.State.BackupCodesRemaining)

	codes, err := sess.ListBackupCodes(ctx)
	require.NoError(t, err)
	require.Empty(t, codes.Codes)
}

func TestCancelSetup(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sess := h.session(t, nil)

	_, err := sess.BeginSetup(ctx, "sms", twofasdk.SetupRequest{Identity: phone})
	require.NoError(t, err)
	code := h.sms.last(t, phone)

	require.NoError(t, sess.CancelSetup(ctx, "sms"))
	require.NoError(t, sess.CancelSetup(ctx, "sms"))

	_, err = sess.VerifySetup(ctx, "sms", twofasdk.VerifyRequest{Code: code})
	requireAPIError(t, err, twofasdk.ErrorCodeNoPendingSetup)
}

func TestDeviceSessions(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.session(t, nil).RecordSession(ctx, twofasdk.RecordSessionRequest{Fingerprint: "laptop", UserAgent: "Firefox"})
	require.NoError(t, err)
	require.Equal(t, "ONLINE", first.Status)
	require.Equal(t, "127.0.0.1", first.IPAddress)
	require.Equal(t, 70, first.RiskScore)
	require.Equal(t, "HIGH", first.RiskLevel)

	// From here on the caller is the laptop.
	sess := h.session(t, func(c *jwtx.Claims) { c.SID = first.ID })

	h.clock.Advance(time.Second)
	second, err := sess.RecordSession(ctx, twofasdk.RecordSessionRequest{Fingerprint: "phone", UserAgent: "Safari"})
	require.NoError(t, err)
	require.Equal(t, 45, second.RiskScore)
	require.Equal(t, "MEDIUM", second.RiskLevel)

	page, err := sess.ListSessions(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, page.Sessions, 1)
	require.Equal(t, second.ID, page.Sessions[0].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = sess.ListSessions(ctx, page.NextCursor, 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, page.Sessions[0].ID)
	require.True(t, page.Sessions[0].Current)
	require.Empty(t, page.NextCursor)

	_, err = sess.ListSessions(ctx, "not-a-cursor", 0)
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidCursor)

	revoked, err := sess.RevokeOtherSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, revoked.Revoked)
	require.Empty(t, revoked.Failed)

	_, err = sess.TouchSession(ctx, second.ID)
	requireAPIError(t, err, twofasdk.ErrorCodeSessionRevoked)

	h.clock.Advance(10 * time.Minute)
	touched, err := sess.TouchSession(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "ONLINE", touched.Status)

	require.NoError(t, sess.RevokeSession(ctx, first.ID))
	require.NoError(t, sess.RevokeSession(ctx, first.ID))

	err = sess.RevokeSession(ctx, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZZ")
	requireAPIError(t, err, twofasdk.ErrorCodeNotFound)
}
