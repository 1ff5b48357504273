package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/authenticator"
	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store/drivers/sqldb"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	userID = "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"
	phone  = "+15551234567"
	email  = "user@example.com"
)

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

// mockSender is a testify mock for a delivery channel. Every accepted
// message is recorded so tests can read the code the user would receive.
type mockSender struct {
	mock.Mock
	channel domain.Channel

	mu   sync.Mutex
	sent []delivery.Message
}

func newMockSender(ch domain.Channel) *mockSender {
	return &mockSender{channel: ch}
}

func (m *mockSender) Channel() domain.Channel { return m.channel }

func (m *mockSender) ValidateIdentity(identity string) error {
	return delivery.ValidateIdentity(m.channel, identity)
}

func (m *mockSender) Send(ctx context.Context, to string, msg delivery.Message) error {
	args := m.Called(ctx, to, msg)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// lastCode returns the most recently delivered code.
func (m *mockSender) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no code was delivered on %s", m.channel)
	return m.sent[len(m.sent)-1].Code
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	clock     *fakeClock
	store     *sqldb.Store
	sessions  *verification.Store
	sms       *mockSender
	whatsapp  *mockSender
	email     *mockSender
	engine    *authenticator.Engine
	metrics   *metrics.Metrics
	twofa     *service.TwoFactorService
	vault     *service.BackupCodeService
	challenge *service.ChallengeService
	trust     *service.TrustService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqldb.Open(sqldb.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	backend := verification.NewMemoryBackend().WithClock(clock.Now)
	sessions := verification.NewStore(backend, verification.DefaultConfig(), verification.WithClock(clock.Now))

	f := &fixture{
		clock:    clock,
		store:    st,
		sessions: sessions,
		sms:      newMockSender(domain.ChannelSMS),
		whatsapp: newMockSender(domain.ChannelWhatsApp),
		email:    newMockSender(domain.ChannelEmail),
		engine:   authenticator.New("Sentinel"),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	senders := delivery.NewRegistry(f.sms, f.whatsapp, f.email)

	f.trust = &service.TrustService{Store: st, Metrics: f.metrics, Clock: clock.Now}
	f.vault = &service.BackupCodeService{Store: st, Metrics: f.metrics, Clock: clock.Now}
	f.twofa = &service.TwoFactorService{
		Store:         st,
		Sessions:      sessions,
		Senders:       senders,
		Authenticator: f.engine,
		Metrics:       f.metrics,
		Trust:         f.trust,
		Issuer:        "Sentinel",
		Clock:         clock.Now,
	}
	f.challenge = &service.ChallengeService{
		Store:         st,
		Sessions:      sessions,
		Senders:       senders,
		Authenticator: f.engine,
		BackupCodes:   f.vault,
		Metrics:       f.metrics,
		Issuer:        "Sentinel",
		Clock:         clock.Now,
	}
	return f
}

// acceptAll makes every sender accept messages.
func (f *fixture) acceptAll() {
	for _, s := range []*mockSender{f.sms, f.whatsapp, f.email} {
		s.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	}
}

// enable runs setup and verify for an OTP channel.
func (f *fixture) enable(t *testing.T, ch domain.Channel, identity string) domain.AccountState {
	t.Helper()
	ctx := context.Background()

	res, err := f.twofa.BeginSetup(ctx, service.SetupInput{UserID: userID, Channel: ch, Identity: identity})
	require.NoError(t, err)

	sender := map[domain.Channel]*mockSender{
		domain.ChannelSMS:      f.sms,
		domain.ChannelWhatsApp: f.whatsapp,
		domain.ChannelEmail:    f.email,
	}[ch]
	vr, err := f.twofa.Verify(ctx, userID, ch, res.SessionID, sender.lastCode(t))
	require.NoError(t, err)
	require.True(t, vr.Verified())
	return vr.State
}

// enableAuthenticator runs setup and verify for TOTP and returns the secret.
func (f *fixture) enableAuthenticator(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	res, err := f.twofa.BeginSetup(ctx, service.SetupInput{UserID: userID, Channel: domain.ChannelAuthenticator, Label: email})
	require.NoError(t, err)

	code, err := f.engine.Code(res.Secret, f.clock.Now())
	require.NoError(t, err)
	vr, err := f.twofa.Verify(ctx, userID, domain.ChannelAuthenticator, "", code)
	require.NoError(t, err)
	require.True(t, vr.Verified())
	return res.Secret
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
