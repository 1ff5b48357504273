package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/sentinel/internal/twofa/authenticator"
	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	httpapi "github.com/aussiebroadwan/sentinel/internal/twofa/http"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store/drivers/sqldb"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the 2FA service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       *sqldb.Store
	redis    *redis.Client // nil with the memory backend
	sessions *verification.Store
	senders  *delivery.Registry
	metrics  *metrics.Metrics
	verifier jwtx.Verifier

	// Services
	twoFactorService    *service.TwoFactorService
	backupCodeService   *service.BackupCodeService
	challengeService    *service.ChallengeService
	trustService        *service.TrustService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sentinel",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		app.logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	} else if os.Getenv(cryptox.MasterKeyEnv) == "" {
		if cfg.Env == "prod" {
			return nil, errors.New("a master key is required in prod: set SENTINEL_MASTER_KEY_PATH or SENTINEL_MASTER_KEY")
		}
		app.logger.Warn("no master key configured, sealed secrets will not survive a restart")
	}

	verifier, err := jwtx.NewVerifierHS256([]byte(cfg.JWT.Secret), jwtx.VerifyOptions{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.verifier = verifier

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initVerification(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initSenders(); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(reg)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("sentinel starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sentinel...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		app.logger.Error("error closing stores", "error", err)
		return err
	}

	app.logger.Info("sentinel stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
}

// initDatabase opens the durable store and applies migrations
func (app *Application) initDatabase() error {
	dsn := app.cfg.Database.DSN
	if app.cfg.Database.Driver == sqldb.DialectSQLite && dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}

	db, err := sqldb.Open(app.cfg.Database.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.Database.Driver)
	return nil
}

// initVerification picks the backend for short-lived verification sessions
func (app *Application) initVerification() error {
	var backend verification.Backend
	switch app.cfg.Redis.Backend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.Redis.Addr,
			Password: app.cfg.Redis.Password,
			DB:       app.cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		backend = verification.NewRedisBackend(client, verification.DefaultRedisPrefix)
		app.logger.Info("verification sessions stored in redis", "addr", app.cfg.Redis.Addr)
	default:
		backend = verification.NewMemoryBackend()
		app.logger.Info("verification sessions stored in memory")
	}

	app.sessions = verification.NewStore(backend, app.cfg.OTP.Verification())
	return nil
}

// initSenders registers one sender per channel. Channels without a
// configured gateway fall back to the log sender outside prod.
func (app *Application) initSenders() error {
	app.senders = delivery.NewRegistry()
	tw := app.cfg.Twilio

	for channel, from := range map[domain.Channel]string{
		domain.ChannelSMS:      tw.SMSFrom,
		domain.ChannelWhatsApp: tw.WhatsAppFrom,
	} {
		if tw.AccountSID == "" || from == "" {
			if err := app.registerLogSender(channel); err != nil {
				return err
			}
			continue
		}
		sender, err := delivery.NewTwilioSender(channel, tw.AccountSID, tw.AuthToken, from)
		if err != nil {
			return fmt.Errorf("failed to configure %s sender: %w", channel, err)
		}
		app.senders.Register(sender)
	}

	email := app.cfg.Email
	switch email.Provider {
	case EmailProviderSendGrid:
		sender, err := delivery.NewSendGridSender(email.SendGridAPIKey, email.From, email.FromName)
		if err != nil {
			return fmt.Errorf("failed to configure sendgrid sender: %w", err)
		}
		app.senders.Register(sender)
	case EmailProviderSMTP:
		sender, err := delivery.NewSMTPSender(delivery.SMTPConfig{
			Host:     email.SMTPHost,
			Port:     email.SMTPPort,
			Username: email.SMTPUsername,
			Password: email.SMTPPassword,
			From:     email.From,
			TLS:      email.SMTPTLS,
		})
		if err != nil {
			return fmt.Errorf("failed to configure smtp sender: %w", err)
		}
		app.senders.Register(sender)
	default:
		if err := app.registerLogSender(domain.ChannelEmail); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) registerLogSender(channel domain.Channel) error {
	if app.cfg.Env == "prod" {
		return fmt.Errorf("no gateway configured for %s", channel)
	}
	app.logger.Warn("no gateway configured, codes will be logged", "channel", channel.String())
	app.senders.Register(delivery.NewLogSender(channel))
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	engine := authenticator.New(app.cfg.Issuer)

	app.trustService = &service.TrustService{
		Store:      app.db,
		Metrics:    app.metrics,
		SessionTTL: app.cfg.SessionTTL,
	}
	app.backupCodeService = &service.BackupCodeService{
		Store:   app.db,
		Metrics: app.metrics,
		Count:   app.cfg.BackupCodeCount,
		Digits:  app.cfg.BackupCodeDigits,
	}
	app.twoFactorService = &service.TwoFactorService{
		Store:           app.db,
		Sessions:        app.sessions,
		Senders:         app.senders,
		Authenticator:   engine,
		Metrics:         app.metrics,
		Trust:           app.trustService,
		Issuer:          app.cfg.Issuer,
		RevokeOnDisable: app.cfg.RevokeSessionsOnDisable,
	}
	app.challengeService = &service.ChallengeService{
		Store:         app.db,
		Sessions:      app.sessions,
		Senders:       app.senders,
		Authenticator: engine,
		BackupCodes:   app.backupCodeService,
		Metrics:       app.metrics,
		Issuer:        app.cfg.Issuer,

		AuthenticatorAttempts: app.cfg.AuthenticatorAttempts,
		AuthenticatorLockout:  app.cfg.AuthenticatorLockout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.sessions,
		app.metrics,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.sessions,
		app.metrics,
		app.logger,
	)

	router.TwoFactorService = app.twoFactorService
	router.BackupCodes = app.backupCodeService
	router.ChallengeService = app.challengeService
	router.TrustService = app.trustService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
