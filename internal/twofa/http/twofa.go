package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
)

// TwoFactorHandler handles enrollment of every channel.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

// pathChannel parses the {channel} wildcard, writing the error itself.
func pathChannel(w http.ResponseWriter, r *http.Request) (domain.Channel, bool) {
	ch, err := domain.ParseChannel(r.PathValue("channel"))
	if err != nil {
		twofasdk.ErrInvalidChannel.WriteError(w)
		return "", false
	}
	return ch, true
}

// callerID returns the authenticated user, writing 401 when missing.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		twofasdk.ErrUnauthorized.WriteError(w)
		return "", false
	}
	return userID, true
}

// decodeBody parses an optional JSON body, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		twofasdk.ErrInvalidRequest.WriteError(w)
		return false
	}
	return true
}

// HandleState handles GET /v1/2fa
//
//	@Summary		Get 2FA state
//	@Description	Returns every channel's state, the default method, the backup codes left and any setup in progress.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.AccountState
//	@Failure		401	{object}	twofasdk.APIError	"Invalid or missing access token"
//	@Failure		500	{object}	twofasdk.APIError	"Internal server error"
//	@Router			/v1/2fa [get].
func (h *TwoFactorHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	state, err := h.TwoFactorService.GetState(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "failed to load 2fa state", err)
		return
	}
	out, err := toAccountState(state)
	if err != nil {
		writeServiceError(w, r, "failed to load 2fa state", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleSetup handles POST /v1/2fa/{channel}/setup
//
//	@Summary		Start enrollment
//	@Description	OTP channels send a code to the identity in the body, falling back to the token's email or
//	@Description	phone_number claim and then to the last verified address. The authenticator channel returns a
//	@Description	new secret, provisioning URI and QR code; an existing secret keeps working until the new one is verified.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			channel	path		string					true	"sms, whatsapp, email or authenticator"
//	@Param			request	body		twofasdk.SetupRequest	false	"Identity and label"
//	@Success		200		{object}	twofasdk.SetupResponse
//	@Failure		400		{object}	twofasdk.APIError	"invalid_channel, invalid_identity or invalid_request"
//	@Failure		422		{object}	twofasdk.APIError	"missing_identity"
//	@Failure		502		{object}	twofasdk.APIError	"delivery_failed"
//	@Router			/v1/2fa/{channel}/setup [post].
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	channel, ok := pathChannel(w, r)
	if !ok {
		return
	}
	var req twofasdk.SetupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := service.SetupInput{
		UserID:   userID,
		Channel:  channel,
		Identity: strings.TrimSpace(req.Identity),
		Label:    strings.TrimSpace(req.Label),
	}
	if claims, ok := httpx.ClaimsFromContext(ctx); ok {
		in.Contact = service.Contact{Email: claims.Email, PhoneNumber: claims.PhoneNumber}
	}

	res, err := h.TwoFactorService.BeginSetup(ctx, in)
	if err != nil {
		writeServiceError(w, r, "failed to start setup", err)
		return
	}
	out, err := toSetupResponse(res)
	if err != nil {
		writeServiceError(w, r, "failed to begin setup", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleVerify handles POST /v1/2fa/{channel}/verify
//
//	@Summary		Verify a setup code
//	@Description	Enables the channel and makes it the default. Wrong, expired and exhausted codes each return their own error.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			channel	path		string					true	"sms, whatsapp, email or authenticator"
//	@Param			request	body		twofasdk.VerifyRequest	true	"Code"
//	@Success		200		{object}	twofasdk.AccountState
//	@Failure		400		{object}	twofasdk.APIError	"invalid_code with attempts_remaining"
//	@Failure		403		{object}	twofasdk.APIError	"attempts_exceeded"
//	@Failure		404		{object}	twofasdk.APIError	"no_pending_setup"
//	@Failure		410		{object}	twofasdk.APIError	"code_expired"
//	@Router			/v1/2fa/{channel}/verify [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	channel, ok := pathChannel(w, r)
	if !ok {
		return
	}
	var req twofasdk.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		twofasdk.NewAPIError(http.StatusBadRequest, twofasdk.ErrorCodeInvalidRequest, "code is required").WriteError(w)
		return
	}

	res, err := h.TwoFactorService.Verify(ctx, userID, channel, req.SessionID, strings.TrimSpace(req.Code))
	if err != nil {
		writeServiceError(w, r, "failed to verify setup code", err)
		return
	}
	if !res.Verified() {
		log.Warn("setup code refused", "channel", channel, "status", res.Status)
		statusError(res.Status, res.AttemptsRemaining).WriteError(w)
		return
	}
	out, err := toAccountState(res.State)
	if err != nil {
		writeServiceError(w, r, "failed to verify setup", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleResend handles POST /v1/2fa/{channel}/resend
//
//	@Summary		Resend a setup code
//	@Description	Sends a new code for the same session. Denied for 60 seconds after each send and after five resends.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			channel	path		string					true	"sms, whatsapp or email"
//	@Param			request	body		twofasdk.ResendRequest	false	"Session"
//	@Success		200		{object}	twofasdk.ResendResponse
//	@Failure		404		{object}	twofasdk.APIError	"no_pending_setup"
//	@Failure		429		{object}	twofasdk.APIError	"resend_cooldown with retry_after_seconds, or resend_limit"
//	@Failure		502		{object}	twofasdk.APIError	"delivery_failed, the previous code still works"
//	@Router			/v1/2fa/{channel}/resend [post].
func (h *TwoFactorHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	channel, ok := pathChannel(w, r)
	if !ok {
		return
	}
	var req twofasdk.ResendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.TwoFactorService.Resend(r.Context(), userID, channel, req.SessionID)
	if err != nil {
		writeServiceError(w, r, "failed to resend setup code", err)
		return
	}
	if res.Denied {
		deniedError(res.Reason, res.RetryAfter).WriteError(w)
		return
	}
	out, err := toResendResponse(res)
	if err != nil {
		writeServiceError(w, r, "failed to resend code", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCancel handles POST /v1/2fa/{channel}/cancel
//
//	@Summary		Cancel a setup
//	@Description	Drops the pending code or authenticator secret. An enabled authenticator keeps its current secret.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Param			channel	path	string	true	"sms, whatsapp, email or authenticator"
//	@Success		204
//	@Failure		400	{object}	twofasdk.APIError	"invalid_channel"
//	@Router			/v1/2fa/{channel}/cancel [post].
func (h *TwoFactorHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	channel, ok := pathChannel(w, r)
	if !ok {
		return
	}

	if err := h.TwoFactorService.CancelSetup(r.Context(), userID, channel); err != nil {
		writeServiceError(w, r, "failed to cancel setup", err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles DELETE /v1/2fa/{channel}
//
//	@Summary		Disable one method
//	@Description	Disabling the default leaves no default. Disabling the last method also discards the backup codes.
//	@Description	Disabling a method that is not enabled succeeds with changed=false.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Produce		json
//	@Param			channel	path		string	true	"sms, whatsapp, email or authenticator"
//	@Success		200		{object}	twofasdk.DisableResponse
//	@Failure		400		{object}	twofasdk.APIError	"invalid_channel"
//	@Router			/v1/2fa/{channel} [delete].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	channel, ok := pathChannel(w, r)
	if !ok {
		return
	}

	res, err := h.TwoFactorService.Disable(r.Context(), userID, channel)
	if err != nil {
		writeServiceError(w, r, "failed to disable method", err)
		return
	}
	state, err := toAccountState(res.State)
	if err != nil {
		writeServiceError(w, r, "failed to disable 2fa", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.DisableResponse{Changed: res.Changed, State: state})
}

// HandleDisableAll handles DELETE /v1/2fa
//
//	@Summary		Disable every method
//	@Description	Erases all methods, authenticator secrets and backup codes at once and drops setups in progress.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.DisableResponse
//	@Router			/v1/2fa [delete].
func (h *TwoFactorHandler) HandleDisableAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	res, err := h.TwoFactorService.DisableAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "failed to disable all methods", err)
		return
	}
	state, err := toAccountState(res.State)
	if err != nil {
		writeServiceError(w, r, "failed to disable 2fa", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.DisableResponse{Changed: res.Changed, State: state})
}

// HandleSetDefault handles PUT /v1/2fa/default
//
//	@Summary		Change the default method
//	@Tags			2FA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.SetDefaultRequest	true	"Channel"
//	@Success		200		{object}	twofasdk.AccountState
//	@Failure		409		{object}	twofasdk.APIError	"method_not_enabled"
//	@Router			/v1/2fa/default [put].
func (h *TwoFactorHandler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req twofasdk.SetDefaultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	channel, err := domain.ParseChannel(req.Channel)
	if err != nil {
		twofasdk.ErrInvalidChannel.WriteError(w)
		return
	}

	state, err := h.TwoFactorService.SetDefault(r.Context(), userID, channel)
	if err != nil {
		writeServiceError(w, r, "failed to set default method", err)
		return
	}
	out, err := toAccountState(state)
	if err != nil {
		writeServiceError(w, r, "failed to load 2fa state", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
