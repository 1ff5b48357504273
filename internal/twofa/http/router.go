package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"

	_ "github.com/aussiebroadwan/sentinel/api/twofa" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	sessions *verification.Store
	metrics  *metrics.Metrics

	TwoFactorService *service.TwoFactorService
	BackupCodes      *service.BackupCodeService
	ChallengeService *service.ChallengeService
	TrustService     *service.TrustService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	sessions *verification.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTwoFactor()
	r.registerBackupCodes()
	r.registerChallenge()
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Sentinel Two-Factor Service API
//	@version		0.1.0
//	@description	Second-factor enrollment over SMS, WhatsApp, email and authenticator apps,
//	@description	with backup codes, sign-in challenges and device session management.
//	@description
//	@description				Every /v1 route acts on the user named by the bearer token's sub claim.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sentinel
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				HS256 JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured verifies the bearer token, records the caller's device session
// for the services, then applies the rate limit.
func (r *Router) secured(h http.HandlerFunc, limit httpx.Middleware) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		withCallerSession,
		limit,
	)
}

// withCallerSession hands the token's sid to the services so session lists
// can flag the current one and bulk revokes spare it. The request logger
// gets the caller's user id.
func withCallerSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.WithUserID(r.Context(), httpx.UserIDFromContext(r.Context()))
		if sid := httpx.SessionIDFromContext(ctx); sid != "" {
			ctx = service.ContextWithSessionID(ctx, sid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{TwoFactorService: r.TwoFactorService}

	// Reads - lenient rate limit by user
	r.Mux.Handle("GET /v1/2fa", r.secured(h.HandleState, httpx.RateLimitByUser(httpx.LenientLimit)))

	// Setup and resend send a message, each channel gets its own budget
	r.Mux.Handle("POST /v1/2fa/{channel}/setup",
		r.secured(h.HandleSetup, httpx.RateLimitByUserAndPath(httpx.ModerateLimit, "channel")))
	r.Mux.Handle("POST /v1/2fa/{channel}/resend",
		r.secured(h.HandleResend, httpx.RateLimitByUserAndPath(httpx.ModerateLimit, "channel")))

	// Verify - strict rate limit, every request is a guess
	r.Mux.Handle("POST /v1/2fa/{channel}/verify",
		r.secured(h.HandleVerify, httpx.RateLimitByUserAndPath(httpx.StrictLimit, "channel")))

	r.Mux.Handle("POST /v1/2fa/{channel}/cancel", r.secured(h.HandleCancel, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/2fa/{channel}", r.secured(h.HandleDisable, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/2fa", r.secured(h.HandleDisableAll, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("PUT /v1/2fa/default", r.secured(h.HandleSetDefault, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerBackupCodes() {
	h := &BackupCodesHandler{BackupCodes: r.BackupCodes}

	r.Mux.Handle("GET /v1/2fa/backup-codes", r.secured(h.HandleList, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /v1/2fa/backup-codes", r.secured(h.HandleGenerate, httpx.RateLimitByUser(httpx.ModerateLimit)))

	// Redeem - strict rate limit by user (prevent brute force of backup codes)
	r.Mux.Handle("POST /v1/2fa/backup-codes/redeem", r.secured(h.HandleRedeem, httpx.RateLimitByUser(httpx.StrictLimit)))
}

func (r *Router) registerChallenge() {
	h := &ChallengeHandler{ChallengeService: r.ChallengeService}

	r.Mux.Handle("POST /v1/2fa/challenge/send", r.secured(h.HandleSend, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/2fa/challenge/verify", r.secured(h.HandleVerify, httpx.RateLimitByUser(httpx.StrictLimit)))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{TrustService: r.TrustService}

	r.Mux.Handle("GET /v1/sessions", r.secured(h.HandleList, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /v1/sessions", r.secured(h.HandleRecord, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/sessions", r.secured(h.HandleRevokeAll, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/sessions/{id}", r.secured(h.HandleRevoke, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/sessions/{id}/touch", r.secured(h.HandleTouch, httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.sessions),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics",
		httpx.Chain(r.metrics.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
