package http

import (
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/sentinel/internal/twofa/delivery"
	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/service"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
	"github.com/jinzhu/copier"
)

// Targets leave the service masked; the caller already knows the address
// they typed.
func maskTarget(target string) string {
	if target == "" {
		return ""
	}
	return delivery.MaskIdentity(target)
}

func toAccountState(st domain.AccountState) (twofasdk.AccountState, error) {
	out := twofasdk.AccountState{
		UserID:                st.UserID,
		Enabled:               st.Enabled,
		DefaultMethod:         st.DefaultMethod.String(),
		Methods:               make([]twofasdk.MethodState, 0, len(domain.Channels)),
		BackupCodesRemaining:  st.BackupCodes,
		PendingSetup:          make([]string, 0, len(st.PendingSetup)),
		AuthenticatorRotating: st.TOTPRotating,
		UpdatedAt:             st.UpdatedAt,
	}
	if st.DefaultMethod == "" {
		out.DefaultMethod = domain.ChannelNone.String()
	}

	for _, ch := range domain.Channels {
		var m twofasdk.MethodState
		if err := copier.Copy(&m, st.Methods[ch]); err != nil {
			return twofasdk.AccountState{}, fmt.Errorf("failed to map %s method: %w", ch, err)
		}
		m.Channel = ch.String()
		m.Target = maskTarget(m.Target)
		out.Methods = append(out.Methods, m)
	}
	for _, ch := range st.PendingSetup {
		out.PendingSetup = append(out.PendingSetup, ch.String())
	}
	return out, nil
}

func toSetupResponse(res service.SetupResult) (twofasdk.SetupResponse, error) {
	var out twofasdk.SetupResponse
	if err := copier.Copy(&out, &res); err != nil {
		return out, fmt.Errorf("failed to map setup: %w", err)
	}
	out.Channel = res.Channel.String()
	out.Target = maskTarget(res.Target)
	if len(res.QRCodePNG) > 0 {
		out.QRCode = base64.StdEncoding.EncodeToString(res.QRCodePNG)
	}
	return out, nil
}

func toResendResponse(res service.ResendResult) (twofasdk.ResendResponse, error) {
	var out twofasdk.ResendResponse
	if err := copier.Copy(&out, &res); err != nil {
		return out, fmt.Errorf("failed to map resend: %w", err)
	}
	return out, nil
}

func toChallengeSendResponse(res service.ChallengeResult) (twofasdk.ChallengeSendResponse, error) {
	var out twofasdk.ChallengeSendResponse
	if err := copier.Copy(&out, &res); err != nil {
		return out, fmt.Errorf("failed to map challenge: %w", err)
	}
	out.Channel = res.Channel.String()
	out.Target = maskTarget(res.Target)
	return out, nil
}

func toBackupCodes(codes []domain.BackupCode) (twofasdk.BackupCodesResponse, error) {
	out := twofasdk.BackupCodesResponse{Codes: make([]twofasdk.BackupCode, 0, len(codes))}
	for _, c := range codes {
		var dto twofasdk.BackupCode
		if err := copier.Copy(&dto, &c); err != nil {
			return twofasdk.BackupCodesResponse{}, fmt.Errorf("failed to map backup code: %w", err)
		}
		dto.Consumed = c.Consumed()
		if !dto.Consumed {
			out.Remaining++
		}
		out.Codes = append(out.Codes, dto)
	}
	return out, nil
}

func toDeviceSession(v service.SessionView) (twofasdk.DeviceSession, error) {
	var out twofasdk.DeviceSession
	if err := copier.Copy(&out, &v); err != nil {
		return out, fmt.Errorf("failed to map device session: %w", err)
	}
	out.RiskLevel = string(v.RiskLevel())
	out.Status = string(v.Status)
	return out, nil
}

func toRevokeAll(res service.RevokeAllResult) twofasdk.RevokeAllResponse {
	out := twofasdk.RevokeAllResponse{
		Revoked: res.Revoked,
		Failed:  make([]twofasdk.RevokeFailure, 0, len(res.Failed)),
	}
	if out.Revoked == nil {
		out.Revoked = []string{}
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, twofasdk.RevokeFailure{SessionID: f.SessionID, Error: f.Err.Error()})
	}
	return out
}
