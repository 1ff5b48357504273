// Package authenticator issues and verifies RFC 6238 authenticator-app
// secrets. It is stateless: callers decide when a secret is persisted.
package authenticator

import (
	"bytes"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Defaults shared by every enrollment. Authenticator apps widely support
// only SHA1/6/30, so these are not configurable per user.
const (
	DefaultPeriod     = 30
	DefaultSkew       = 1
	DefaultSecretSize = 20 // 160 bits
	DefaultQRSize     = 256
)

var ErrInvalidSecret = errors.New("authenticator: invalid secret")

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Enrollment is the material handed to the user during setup.
type Enrollment struct {
	Secret  string // base32, no padding
	URI     string // otpauth://totp/...
	Issuer  string
	Account string
}

// Engine generates secrets and validates codes.
type Engine struct {
	Issuer     string
	Period     uint
	Skew       uint
	SecretSize uint
}

// New returns an engine with the standard parameters.
func New(issuer string) *Engine {
	return &Engine{
		Issuer:     issuer,
		Period:     DefaultPeriod,
		Skew:       DefaultSkew,
		SecretSize: DefaultSecretSize,
	}
}

// GenerateSecret creates a fresh random secret and its provisioning URI. An
// empty issuer falls back to the engine's issuer. Nothing is persisted.
func (e *Engine) GenerateSecret(accountLabel, issuer string) (Enrollment, error) {
	if issuer == "" {
		issuer = e.Issuer
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Period:      e.Period,
		SecretSize:  e.SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return Enrollment{
		Secret:  key.Secret(),
		URI:     key.URL(),
		Issuer:  issuer,
		Account: accountLabel,
	}, nil
}

// key rebuilds the otp.Key for an existing secret. The URI depends only on
// the secret, label and issuer so it never has to be stored.
func (e *Engine) key(secret, accountLabel string) (*otp.Key, error) {
	raw, err := secretEncoding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidSecret
	}

	return totp.Generate(totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: accountLabel,
		Period:      e.Period,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}

// ProvisioningURI derives the otpauth:// URI for secret.
func (e *Engine) ProvisioningURI(secret, accountLabel string) (string, error) {
	key, err := e.key(secret, accountLabel)
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// QRCode renders the provisioning URI as a PNG of size×size pixels.
func (e *Engine) QRCode(secret, accountLabel string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}

	key, err := e.key(secret, accountLabel)
	if err != nil {
		return nil, err
	}

	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    e.Period,
		Skew:      e.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Verify reports whether code is valid for secret at now, accepting the
// adjacent time steps on either side. Malformed input is simply false.
func (e *Engine) Verify(secret, code string, now time.Time) bool {
	_, ok := e.Match(secret, code, now)
	return ok
}

// Match is Verify that also returns the time step the code belongs to, so
// callers can refuse a step that was already used.
func (e *Engine) Match(secret, code string, now time.Time) (int64, bool) {
	if !cryptox.IsNumericCode(code, otp.DigitsSix.Length()) || secret == "" {
		return 0, false
	}

	opts := e.validateOpts()
	period := int64(e.Period)
	current := now.UTC().Unix() / period
	skew := int64(e.Skew)

	for step := current - skew; step <= current+skew; step++ {
		want, err := totp.GenerateCodeCustom(secret, time.Unix(step*period, 0).UTC(), opts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return step, true
		}
	}
	return 0, false
}

// Code returns the code for secret at t.
func (e *Engine) Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), e.validateOpts())
}
