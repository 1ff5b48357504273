package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://id.example.com"

var secret = []byte(strings.Repeat("s", jwtx.MinSecretLen))

func newPair(t *testing.T, opts jwtx.VerifyOptions) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, opts)
	require.NoError(t, err)
	return signer, verifier
}

func TestHS256SignAndVerify(t *testing.T) {
	t.Parallel()
	signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: exampleIssuer, Audience: []string{"sentinel"}})
	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.NewAccessClaims("user-456", "session-1", 5*time.Minute, exampleIssuer, []string{"sentinel"}, time.Now().UTC())
	claims.Email = "user@example.com"
	claims.PhoneNumber = "+15551234567"
	claims.AMR = []string{"pwd"}

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.Equal(t, claims.SID, parsed.SID)
	require.Equal(t, claims.Email, parsed.Email)
	require.Equal(t, claims.PhoneNumber, parsed.PhoneNumber)
	require.ElementsMatch(t, claims.AMR, parsed.AMR)
	require.NotEmpty(t, parsed.ID)
}

func TestHS256VerifyFailures(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		signer, verifier := newPair(t, jwtx.VerifyOptions{Issuer: "wrong-issuer"})
		token, err := signer.Sign(jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, nil, now))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		t.Parallel()
		signer, verifier := newPair(t, jwtx.VerifyOptions{Audience: []string{"sentinel"}})
		token, err := signer.Sign(jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, []string{"billing"}, now))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		t.Parallel()
		signer, verifier := newPair(t, jwtx.VerifyOptions{Leeway: 30 * time.Second})
		token, err := signer.Sign(jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, nil, now.Add(-2*time.Minute)))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("expired within leeway", func(t *testing.T) {
		t.Parallel()
		signer, verifier := newPair(t, jwtx.VerifyOptions{Leeway: 30 * time.Second})
		token, err := signer.Sign(jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, nil, now.Add(-70*time.Second)))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.NoError(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()
		signer, verifier := newPair(t, jwtx.VerifyOptions{})
		token, err := signer.Sign(jwtx.NewAccessClaims("", "", time.Minute, exampleIssuer, nil, now))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("different secret", func(t *testing.T) {
		t.Parallel()
		signer, err := jwtx.NewSignerHS256([]byte(strings.Repeat("x", jwtx.MinSecretLen)))
		require.NoError(t, err)
		_, verifier := newPair(t, jwtx.VerifyOptions{})
		token, err := signer.Sign(jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, nil, now))
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("other algorithm", func(t *testing.T) {
		t.Parallel()
		_, verifier := newPair(t, jwtx.VerifyOptions{})
		claims := jwtx.NewAccessClaims("u", "", time.Minute, exampleIssuer, nil, now)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(secret)
		require.NoError(t, err)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, verifier := newPair(t, jwtx.VerifyOptions{})
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestWeakSecretRejected(t *testing.T) {
	t.Parallel()
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	_, err = jwtx.NewVerifierHS256(nil, jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
