package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
)

// BackupCodesHandler handles the recovery code batch.
type BackupCodesHandler struct {
	BackupCodes *service.BackupCodeService
}

// HandleList handles GET /v1/2fa/backup-codes
//
//	@Summary		List backup codes
//	@Description	Returns the current batch with each code's consumed flag. An empty list means no recovery codes are set up.
//	@Tags			Backup Codes
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.BackupCodesResponse
//	@Failure		401	{object}	twofasdk.APIError	"Invalid or missing access token"
//	@Router			/v1/2fa/backup-codes [get].
func (h *BackupCodesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	codes, err := h.BackupCodes.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "failed to list backup codes", err)
		return
	}
	out, err := toBackupCodes(codes)
	if err != nil {
		writeServiceError(w, r, "failed to list backup codes", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGenerate handles POST /v1/2fa/backup-codes
//
//	@Summary		Generate backup codes
//	@Description	Replaces the batch. Codes from the previous batch stop working immediately and never reappear.
//	@Tags			Backup Codes
//	@Security		BearerAuth
//	@Produce		json
//	@Success		201	{object}	twofasdk.BackupCodesResponse
//	@Failure		500	{object}	twofasdk.APIError	"Internal server error"
//	@Router			/v1/2fa/backup-codes [post].
func (h *BackupCodesHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	codes, err := h.BackupCodes.Generate(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "failed to generate backup codes", err)
		return
	}
	out, err := toBackupCodes(codes)
	if err != nil {
		writeServiceError(w, r, "failed to generate backup codes", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// HandleRedeem handles POST /v1/2fa/backup-codes/redeem
//
//	@Summary		Redeem a backup code
//	@Description	Consumes one code. A code can be redeemed once.
//	@Tags			Backup Codes
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.RedeemBackupCodeRequest	true	"Code"
//	@Success		200		{object}	twofasdk.RedeemBackupCodeResponse
//	@Failure		400		{object}	twofasdk.APIError	"invalid_code"
//	@Router			/v1/2fa/backup-codes/redeem [post].
func (h *BackupCodesHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req twofasdk.RedeemBackupCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		twofasdk.NewAPIError(http.StatusBadRequest, twofasdk.ErrorCodeInvalidRequest, "code is required").WriteError(w)
		return
	}

	res, err := h.BackupCodes.Redeem(r.Context(), userID, code)
	if err != nil {
		writeServiceError(w, r, "failed to redeem backup code", err)
		return
	}
	if !res.Redeemed {
		twofasdk.ErrInvalidCode.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.RedeemBackupCodeResponse{Redeemed: true, Remaining: res.Remaining})
}
