package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/store/drivers/sqldb"
	"github.com/aussiebroadwan/sentinel/internal/twofa/verification"
	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	EmailProviderLog      = "log"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSMTP     = "smtp"
)

type Config struct {
	Env                  string        `env:"ENV" env-default:"dev"`              // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL" env-default:"info"`       // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT" env-default:"json"`      // json, text
	Port                 int           `env:"PORT" env-default:"8080"`            // HTTP server port
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"15m"`

	Issuer string `env:"SENTINEL_ISSUER" env-default:"Sentinel"` // shown in authenticator apps and messages

	Database DatabaseConfig
	JWT      JWTConfig
	OTP      OTPConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	Email    EmailConfig

	MasterKeyPath string `env:"SENTINEL_MASTER_KEY_PATH"` // Optional: file holding the encryption master key

	SessionTTL              time.Duration `env:"SESSION_TTL" env-default:"720h"`
	RevokeSessionsOnDisable bool          `env:"REVOKE_SESSIONS_ON_DISABLE" env-default:"false"`
	BackupCodeCount         int           `env:"BACKUP_CODE_COUNT" env-default:"10"`
	BackupCodeDigits        int           `env:"BACKUP_CODE_DIGITS" env-default:"8"`

	AuthenticatorAttempts int           `env:"TOTP_MAX_ATTEMPTS" env-default:"5"`
	AuthenticatorLockout  time.Duration `env:"TOTP_LOCKOUT" env-default:"15m"`
}

type DatabaseConfig struct {
	Driver string `env:"SENTINEL_DB_DRIVER" env-default:"sqlite"` // sqlite, postgres
	DSN    string `env:"SENTINEL_DB_DSN" env-default:"sentinel.db"`
}

// JWTConfig describes the bearer tokens issued by the identity provider in
// front of sentinel.
type JWTConfig struct {
	Secret   string   `env:"SENTINEL_JWT_SECRET"`
	Issuer   string   `env:"SENTINEL_JWT_ISSUER"`
	Audience []string `env:"SENTINEL_JWT_AUDIENCE" env-separator:","`
}

type OTPConfig struct {
	Digits      int           `env:"OTP_DIGITS" env-default:"6"`
	TTL         time.Duration `env:"OTP_TTL" env-default:"5m"`
	Cooldown    time.Duration `env:"OTP_RESEND_COOLDOWN" env-default:"60s"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" env-default:"5"`
	MaxResends  int           `env:"OTP_MAX_RESENDS" env-default:"5"`
	Grace       time.Duration `env:"OTP_GRACE_PERIOD" env-default:"10m"`
}

// Verification converts the OTP settings to the code policy.
func (c OTPConfig) Verification() verification.Config {
	return verification.Config{
		Digits:      c.Digits,
		TTL:         c.TTL,
		Cooldown:    c.Cooldown,
		Grace:       c.Grace,
		MaxAttempts: c.MaxAttempts,
		MaxResends:  c.MaxResends,
	}
}

type RedisConfig struct {
	Backend  string `env:"VERIFICATION_BACKEND" env-default:"memory"` // memory, redis
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type TwilioConfig struct {
	AccountSID   string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken    string `env:"TWILIO_AUTH_TOKEN"`
	SMSFrom      string `env:"TWILIO_SMS_FROM"`
	WhatsAppFrom string `env:"TWILIO_WHATSAPP_FROM"`
}

type EmailConfig struct {
	Provider       string `env:"EMAIL_PROVIDER" env-default:"log"` // log, sendgrid, smtp
	From           string `env:"EMAIL_FROM"`
	FromName       string `env:"EMAIL_FROM_NAME" env-default:"Sentinel"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	SMTPTLS        bool   `env:"SMTP_TLS" env-default:"true"`
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < jwtx.MinSecretLen {
		return fmt.Errorf("SENTINEL_JWT_SECRET must be at least %d bytes", jwtx.MinSecretLen)
	}
	switch c.Database.Driver {
	case sqldb.DialectSQLite, sqldb.DialectPostgres:
	default:
		return fmt.Errorf("unsupported SENTINEL_DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Redis.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported VERIFICATION_BACKEND %q", c.Redis.Backend)
	}
	switch c.Email.Provider {
	case EmailProviderLog, EmailProviderSendGrid, EmailProviderSMTP:
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return fmt.Errorf("OTP_DIGITS must be between 4 and 10, got %d", c.OTP.Digits)
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.AuthenticatorAttempts < 1 {
		return errors.New("TOTP_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
