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

// ChallengeHandler handles the second factor at sign-in.
type ChallengeHandler struct {
	ChallengeService *service.ChallengeService
}

// HandleSend handles POST /v1/2fa/challenge/send
//
//	@Summary		Send a sign-in code
//	@Description	Sends a code to the verified address of an enabled OTP channel. Sending again is a resend and obeys its cooldown.
//	@Tags			Challenge
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.ChallengeSendRequest	true	"Channel"
//	@Success		200		{object}	twofasdk.ChallengeSendResponse
//	@Failure		409		{object}	twofasdk.APIError	"method_not_enabled"
//	@Failure		429		{object}	twofasdk.APIError	"resend_cooldown or resend_limit"
//	@Failure		502		{object}	twofasdk.APIError	"delivery_failed"
//	@Router			/v1/2fa/challenge/send [post].
func (h *ChallengeHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req twofasdk.ChallengeSendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	channel, err := domain.ParseChannel(req.Channel)
	if err != nil {
		twofasdk.ErrInvalidChannel.WriteError(w)
		return
	}

	res, err := h.ChallengeService.Send(r.Context(), userID, channel)
	if err != nil {
		writeServiceError(w, r, "failed to send challenge", err)
		return
	}
	if res.Denied {
		deniedError(res.Reason, res.RetryAfter).WriteError(w)
		return
	}
	out, err := toChallengeSendResponse(res)
	if err != nil {
		writeServiceError(w, r, "failed to send challenge", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleVerify handles POST /v1/2fa/challenge/verify
//
//	@Summary		Verify a second factor
//	@Description	Accepts a code from an enabled channel, the authenticator, or a backup code with method=backup_code.
//	@Tags			Challenge
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.ChallengeVerifyRequest	true	"Method and code"
//	@Success		200		{object}	twofasdk.ChallengeVerifyResponse
//	@Failure		400		{object}	twofasdk.APIError	"invalid_code"
//	@Failure		403		{object}	twofasdk.APIError	"attempts_exceeded"
//	@Failure		404		{object}	twofasdk.APIError	"no_pending_challenge"
//	@Failure		409		{object}	twofasdk.APIError	"method_not_enabled"
//	@Failure		410		{object}	twofasdk.APIError	"code_expired"
//	@Router			/v1/2fa/challenge/verify [post].
func (h *ChallengeHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req twofasdk.ChallengeVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Method) == "" || strings.TrimSpace(req.Code) == "" {
		twofasdk.NewAPIError(http.StatusBadRequest, twofasdk.ErrorCodeInvalidRequest, "method and code are required").WriteError(w)
		return
	}

	res, err := h.ChallengeService.Verify(ctx, userID, strings.TrimSpace(req.Method), strings.TrimSpace(req.Code))
	if err != nil {
		writeServiceError(w, r, "failed to verify challenge", err)
		return
	}
	if !res.Verified() {
		slogx.FromContext(ctx).Warn("challenge refused", "method", res.Method, "status", res.Status)
		statusError(res.Status, res.AttemptsRemaining).WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.ChallengeVerifyResponse{
		Method:               res.Method,
		Verified:             true,
		BackupCodesRemaining: res.BackupCodesRemaining,
	})
}
