package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/stretchr/testify/require"
)

func TestNewWiresApplication(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.LogLevel = "error"
	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeStores() })

	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelWhatsApp, domain.ChannelEmail} {
		_, err := app.senders.For(ch)
		require.NoError(t, err, ch.String())
	}

	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/2fa", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewRejectsLogSenderInProd(t *testing.T) {
	t.Setenv("SENTINEL_MASTER_KEY", "0123456789abcdef0123456789abcdef")

	cfg := validConfig()
	cfg.Env = "prod"
	cfg.LogLevel = "error"
	_, err := New(cfg)
	require.ErrorContains(t, err, "no gateway configured")
}
