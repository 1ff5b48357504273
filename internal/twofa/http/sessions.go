package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
)

// SessionsHandler handles the caller's device sessions.
type SessionsHandler struct {
	TrustService *service.TrustService
}

// HandleRecord handles POST /v1/sessions
//
//	@Summary		Record a device session
//	@Description	Registers a session and scores its risk against the account's history.
//	@Description	user_agent and ip_address default to the request's own.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.RecordSessionRequest	true	"Device"
//	@Success		201		{object}	twofasdk.DeviceSession
//	@Failure		400		{object}	twofasdk.APIError	"invalid_request"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req twofasdk.RecordSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := service.RecordInput{
		UserID:      userID,
		Fingerprint: strings.TrimSpace(req.Fingerprint),
		UserAgent:   req.UserAgent,
		IPAddress:   req.IPAddress,
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}
	if in.IPAddress == "" {
		in.IPAddress = httpx.IPKeyExtractor(r)
	}

	ds, err := h.TrustService.Record(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "failed to record session", err)
		return
	}
	view := service.SessionView{
		DeviceSession: ds,
		Status:        ds.Status(ds.LastSeenAt),
		Current:       ds.ID == service.SessionIDFromContext(r.Context()),
	}
	out, err := toDeviceSession(view)
	if err != nil {
		writeServiceError(w, r, "failed to record session", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List device sessions
//	@Description	Newest first. Pass next_cursor back as cursor for the following page.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			cursor	query		string	false	"Cursor from the previous page"
//	@Param			limit	query		int		false	"Page size, default 20, max 100"
//	@Success		200		{object}	twofasdk.ListSessionsResponse
//	@Failure		400		{object}	twofasdk.APIError	"invalid_cursor or invalid_request"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			twofasdk.NewAPIError(http.StatusBadRequest, twofasdk.ErrorCodeInvalidRequest, "limit must be a positive integer").WriteError(w)
			return
		}
		limit = n
	}

	page, err := h.TrustService.List(r.Context(), userID, q.Get("cursor"), limit)
	if err != nil {
		writeServiceError(w, r, "failed to list sessions", err)
		return
	}

	out := twofasdk.ListSessionsResponse{
		Sessions:   make([]twofasdk.DeviceSession, 0, len(page.Sessions)),
		NextCursor: page.NextCursor,
	}
	for _, v := range page.Sessions {
		ds, err := toDeviceSession(v)
		if err != nil {
			writeServiceError(w, r, "failed to list sessions", err)
			return
		}
		out.Sessions = append(out.Sessions, ds)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/sessions/{id}
//
//	@Summary		Revoke a device session
//	@Description	Revocation is final. Revoking a revoked session succeeds.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	twofasdk.APIError	"not_found"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.TrustService.Revoke(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, "failed to revoke session", err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeAll handles DELETE /v1/sessions
//
//	@Summary		Revoke every other device session
//	@Description	Revokes each active session except the caller's and reports exactly which ones failed.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.RevokeAllResponse
//	@Router			/v1/sessions [delete].
func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	res, err := h.TrustService.RevokeAll(r.Context(), userID, service.SessionIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, "failed to revoke sessions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRevokeAll(res))
}

// HandleTouch handles POST /v1/sessions/{id}/touch
//
//	@Summary		Record session activity
//	@Description	Refreshes last_seen_at and the IP address. Revoked and expired sessions stay that way.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	twofasdk.DeviceSession
//	@Failure		404	{object}	twofasdk.APIError	"not_found"
//	@Failure		409	{object}	twofasdk.APIError	"session_revoked"
//	@Failure		410	{object}	twofasdk.APIError	"session_expired"
//	@Router			/v1/sessions/{id}/touch [post].
func (h *SessionsHandler) HandleTouch(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	view, err := h.TrustService.Touch(r.Context(), userID, r.PathValue("id"), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, "failed to touch session", err)
		return
	}
	out, err := toDeviceSession(view)
	if err != nil {
		writeServiceError(w, r, "failed to touch session", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
