package delivery

import (
	"fmt"
	"strings"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeIdentity trims whitespace and lower-cases email addresses so the
// same address always maps to the same target.
func NormalizeIdentity(channel domain.Channel, identity string) string {
	identity = strings.TrimSpace(identity)
	if channel.IdentityKind() == domain.IdentityEmail {
		return strings.ToLower(identity)
	}
	return identity
}

// ValidateIdentity checks identity against the channel's address format:
// E.164 for SMS and WhatsApp, an RFC 5322 address for email.
func ValidateIdentity(channel domain.Channel, identity string) error {
	var tag string
	switch channel.IdentityKind() {
	case domain.IdentityPhone:
		tag = "required,e164"
	case domain.IdentityEmail:
		tag = "required,email"
	default:
		return fmt.Errorf("%w: channel %s has no identity", ErrInvalidIdentity, channel)
	}

	if err := validate.Var(identity, tag); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidIdentity, channel.IdentityKind())
	}
	return nil
}

// MaskIdentity hides most of a phone number or email for display,
// e.g. "+1******4567" or "j***@example.com".
func MaskIdentity(identity string) string {
	if at := strings.LastIndex(identity, "@"); at > 0 {
		local, host := identity[:at], identity[at:]
		return local[:1] + strings.Repeat("*", max(len(local)-1, 3)) + host
	}
	if len(identity) <= 6 {
		return strings.Repeat("*", len(identity))
	}
	return identity[:2] + strings.Repeat("*", len(identity)-6) + identity[len(identity)-4:]
}
