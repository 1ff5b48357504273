package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("k", jwtx.MinSecretLen))

func jwtClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}

func TestChainOrder(t *testing.T) {
	t.Parallel()
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: "id"})
	require.NoError(t, err)

	var seen jwtx.Claims
	h := httpx.AuthnMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "user-1", httpx.UserIDFromContext(r.Context()))
		require.Equal(t, "sess-1", httpx.SessionIDFromContext(r.Context()))
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/2fa", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("user-1", "sess-1", time.Minute, "id", nil, time.Now())
		claims.Email = "user@example.com"
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		rec := call("Bearer " + token)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "user@example.com", seen.Email)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := call("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "missing bearer token")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, call("Basic dXNlcjpwYXNz").Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("user-1", "sess-1", time.Minute, "id", nil, time.Now().Add(-time.Hour))
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		rec := call("Bearer " + token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "token expired")
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("user-1", "sess-1", time.Minute, "someone-else", nil, time.Now())
		token, err := signer.Sign(claims)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, call("Bearer "+token).Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()
	type body struct {
		Code string `json:"code"`
	}

	t.Run("empty body", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		require.NoError(t, httpx.DecodeJSON(req, &b))
	})

	t.Run("unknown field", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"cod":"1"}`))
		require.ErrorIs(t, httpx.DecodeJSON(req, &b), httpx.ErrInvalidBody)
	})

	t.Run("valid", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"042913"}`))
		require.NoError(t, httpx.DecodeJSON(req, &b))
		require.Equal(t, "042913", b.Code)
	})
}
