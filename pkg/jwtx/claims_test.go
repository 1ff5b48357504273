package jwtx_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// A payload shaped like the ones the identity provider issues: a single
// string audience and the OIDC contact claims.
const providerPayload = `{
	"iss": "https://id.example.com",
	"sub": "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
	"aud": "sentinel",
	"sid": "01HQ7T4A9S3M2Q8XK1V6N0R5TB",
	"email": "User@Example.com",
	"phone_number": "+61412345678",
	"amr": ["pwd"],
	"exp": 1772370000
}`

func TestClaimsDecodeProviderToken(t *testing.T) {
	t.Parallel()

	var c jwtx.Claims
	require.NoError(t, json.Unmarshal([]byte(providerPayload), &c))

	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", c.Subject)
	require.Equal(t, "01HQ7T4A9S3M2Q8XK1V6N0R5TB", c.SID, "sid marks the caller's own device session")
	require.Equal(t, "User@Example.com", c.Email, "normalisation happens at setup, not here")
	require.Equal(t, "+61412345678", c.PhoneNumber)
	require.Equal(t, []string{"pwd"}, c.AMR)
	require.Equal(t, jwt.ClaimStrings{"sentinel"}, c.Audience)
	require.NoError(t, c.ValidateAudience([]string{"sentinel"}))
}

func TestClaimsOmitMissingContact(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		claims  jwtx.Claims
		present []string
		absent  []string
	}{
		{
			name:    "subject only",
			claims:  jwtx.NewAccessClaims("user-1", "", time.Minute, "", nil, now),
			present: []string{"sub", "exp", "jti"},
			absent:  []string{"sid", "email", "phone_number", "amr"},
		},
		{
			name:    "session bound",
			claims:  jwtx.NewAccessClaims("user-1", "session-1", time.Minute, "", nil, now),
			present: []string{"sid"},
			absent:  []string{"email", "phone_number"},
		},
		{
			name: "with contact",
			claims: func() jwtx.Claims {
				c := jwtx.NewAccessClaims("user-1", "session-1", time.Minute, "", nil, now)
				c.Email = "user@example.com"
				c.PhoneNumber = "+15551234567"
				return c
			}(),
			present: []string{"sid", "email", "phone_number"},
			absent:  []string{"amr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw, err := json.Marshal(tt.claims)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(raw, &fields))
			for _, k := range tt.present {
				require.Contains(t, fields, k)
			}
			for _, k := range tt.absent {
				require.NotContains(t, fields, k)
			}
		})
	}
}

func TestNewAccessClaims(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := jwtx.NewAccessClaims("user-1", "session-1", jwtx.DefaultAccessTokenTTL, "https://id.example.com", []string{"sentinel"}, now)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "session-1", c.SID)
	require.True(t, now.Equal(c.IssuedAt.Time))
	require.True(t, now.Equal(c.NotBefore.Time))
	require.True(t, now.Add(15*time.Minute).Equal(c.ExpiresAt.Time))

	other := jwtx.NewAccessClaims("user-1", "session-1", time.Minute, "", nil, now)
	require.NotEmpty(t, c.ID)
	require.NotEqual(t, c.ID, other.ID)
}

func TestClaimsValidation(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	valid := func() jwtx.Claims {
		return jwtx.NewAccessClaims("user-1", "session-1", time.Minute, "https://id.example.com", []string{"sentinel", "billing"}, now)
	}

	tests := []struct {
		name   string
		mutate func(*jwtx.Claims)
		check  func(jwtx.Claims) error
		want   error
	}{
		{"issuer matches", nil, func(c jwtx.Claims) error { return c.ValidateIssuer("https://id.example.com") }, nil},
		{"issuer not enforced", nil, func(c jwtx.Claims) error { return c.ValidateIssuer("") }, nil},
		{"issuer differs", nil, func(c jwtx.Claims) error { return c.ValidateIssuer("https://other.example.com") }, jwtx.ErrIssuer},
		{"one audience matches", nil, func(c jwtx.Claims) error { return c.ValidateAudience([]string{"admin", "billing"}) }, nil},
		{"audience not enforced", nil, func(c jwtx.Claims) error { return c.ValidateAudience(nil) }, nil},
		{"audience differs", nil, func(c jwtx.Claims) error { return c.ValidateAudience([]string{"admin"}) }, jwtx.ErrAudience},
		{"fresh token", nil, func(c jwtx.Claims) error { return c.ValidateExpiry() }, nil},
		{
			"expired", func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute)) },
			func(c jwtx.Claims) error { return c.ValidateExpiry() }, jwtx.ErrExpired,
		},
		{
			"not yet valid", func(c *jwtx.Claims) { c.NotBefore = jwt.NewNumericDate(now.Add(time.Minute)) },
			func(c jwtx.Claims) error { return c.ValidateExpiry() }, jwtx.ErrNotYetValid,
		},
		{
			"expired within leeway", func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-10 * time.Second)) },
			func(c jwtx.Claims) error { return c.ValidateExpiryWithLeeway(30 * time.Second) }, nil,
		},
		{
			"expired beyond leeway", func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-2 * time.Minute)) },
			func(c jwtx.Claims) error { return c.ValidateExpiryWithLeeway(30 * time.Second) }, jwtx.ErrExpired,
		},
		{
			"no time bounds", func(c *jwtx.Claims) { c.ExpiresAt, c.NotBefore = nil, nil },
			func(c jwtx.Claims) error { return c.ValidateExpiry() }, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			err := tt.check(c)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
