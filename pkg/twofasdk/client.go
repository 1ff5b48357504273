package twofasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SDKClient talks to a Sentinel server. It serves the unauthenticated
// probes and creates Sessions for everything else.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session is an SDKClient bound to one bearer token. Sentinel does not mint
// tokens, so refreshing is the caller's job: build a new Session.
type Session struct {
	client      *SDKClient
	accessToken string
}

// NewSession binds accessToken to c.
func (c *SDKClient) NewSession(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// AccessToken returns the bearer token the session sends.
func (s *Session) AccessToken() string { return s.accessToken }

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, "", http.MethodGet, "/livez", nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the service and its stores are ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, "", http.MethodGet, "/readyz", nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// do sends body as JSON and decodes the response into target when the
// status is expected. A nil target expects an empty body.
func (c *SDKClient) do(ctx context.Context, token, method, path string, body, target any, expected int) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expected {
		return parseErrorResponse(resp, raw)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (s *Session) do(ctx context.Context, method, path string, body, target any, expected int) error {
	return s.client.do(ctx, s.accessToken, method, path, body, target, expected)
}

func channelPath(channel, action string) string {
	p := "/v1/2fa/" + url.PathEscape(strings.ToLower(channel))
	if action != "" {
		p += "/" + action
	}
	return p
}

// ============================================================================
// Enrollment
// ============================================================================

// GetState returns the caller's 2FA state.
func (s *Session) GetState(ctx context.Context) (*AccountState, error) {
	var out AccountState
	if err := s.do(ctx, http.MethodGet, "/v1/2fa", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginSetup starts enrollment of channel.
func (s *Session) BeginSetup(ctx context.Context, channel string, req SetupRequest) (*SetupResponse, error) {
	var out SetupResponse
	if err := s.do(ctx, http.MethodPost, channelPath(channel, "setup"), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySetup submits a setup code and returns the new state on success.
func (s *Session) VerifySetup(ctx context.Context, channel string, req VerifyRequest) (*AccountState, error) {
	var out AccountState
	if err := s.do(ctx, http.MethodPost, channelPath(channel, "verify"), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendSetup asks for a fresh setup code.
func (s *Session) ResendSetup(ctx context.Context, channel string, req ResendRequest) (*ResendResponse, error) {
	var out ResendResponse
	if err := s.do(ctx, http.MethodPost, channelPath(channel, "resend"), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSetup abandons a setup in progress.
func (s *Session) CancelSetup(ctx context.Context, channel string) error {
	return s.do(ctx, http.MethodPost, channelPath(channel, "cancel"), nil, nil, http.StatusNoContent)
}

// Disable turns one method off.
func (s *Session) Disable(ctx context.Context, channel string) (*DisableResponse, error) {
	var out DisableResponse
	if err := s.do(ctx, http.MethodDelete, channelPath(channel, ""), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableAll turns every method off and discards backup codes.
func (s *Session) DisableAll(ctx context.Context) (*DisableResponse, error) {
	var out DisableResponse
	if err := s.do(ctx, http.MethodDelete, "/v1/2fa", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDefault makes an enabled channel the default.
func (s *Session) SetDefault(ctx context.Context, channel string) (*AccountState, error) {
	var out AccountState
	if err := s.do(ctx, http.MethodPut, "/v1/2fa/default", SetDefaultRequest{Channel: channel}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Backup Codes
// ============================================================================

// ListBackupCodes returns the current batch.
func (s *Session) ListBackupCodes(ctx context.Context) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	if err := s.do(ctx, http.MethodGet, "/v1/2fa/backup-codes", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateBackupCodes replaces the batch with a new one.
func (s *Session) GenerateBackupCodes(ctx context.Context) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/backup-codes", nil, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// RedeemBackupCode consumes one code.
func (s *Session) RedeemBackupCode(ctx context.Context, code string) (*RedeemBackupCodeResponse, error) {
	var out RedeemBackupCodeResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/backup-codes/redeem", RedeemBackupCodeRequest{Code: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Login Challenge
// ============================================================================

// SendChallenge sends a sign-in code to an enabled OTP channel.
func (s *Session) SendChallenge(ctx context.Context, channel string) (*ChallengeSendResponse, error) {
	var out ChallengeSendResponse
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/challenge/send", ChallengeSendRequest{Channel: channel}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyChallenge checks a second factor.
func (s *Session) VerifyChallenge(ctx context.Context, method, code string) (*ChallengeVerifyResponse, error) {
	var out ChallengeVerifyResponse
	req := ChallengeVerifyRequest{Method: method, Code: code}
	if err := s.do(ctx, http.MethodPost, "/v1/2fa/challenge/verify", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Device Sessions
// ============================================================================

// RecordSession registers a device session for the caller.
func (s *Session) RecordSession(ctx context.Context, req RecordSessionRequest) (*DeviceSession, error) {
	var out DeviceSession
	if err := s.do(ctx, http.MethodPost, "/v1/sessions", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns one page. Pass the previous NextCursor to continue;
// a zero limit uses the server default.
func (s *Session) ListSessions(ctx context.Context, cursor string, limit int) (*ListSessionsResponse, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ListSessionsResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSession revokes one session.
func (s *Session) RevokeSession(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// RevokeOtherSessions revokes every active session except the caller's.
func (s *Session) RevokeOtherSessions(ctx context.Context) (*RevokeAllResponse, error) {
	var out RevokeAllResponse
	if err := s.do(ctx, http.MethodDelete, "/v1/sessions", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// TouchSession records activity on a session.
func (s *Session) TouchSession(ctx context.Context, id string) (*DeviceSession, error) {
	var out DeviceSession
	if err := s.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/touch", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
