package verification

import (
	"context"
	"encoding/json"
)

// SendCodeRequest asks the backend to email a one-time code bound to an action.
type SendCodeRequest struct {
	Email      string          `json:"email"`
	ActionType string          `json:"actionType"`
	ActionData json.RawMessage `json:"actionData"`
}

// SendCodeResponse is the raw backend reply; validation happens in Flow.
type SendCodeResponse struct {
	CodeID    string `json:"codeId,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	ErrorPayload
}

// VerifyCodeRequest redeems a code issued by SendVerificationCode.
type VerifyCodeRequest struct {
	CodeID string `json:"codeId"`
	Code   string `json:"code"`
}

// VerifyCodeResponse is the raw backend reply; validation happens in Flow.
// ExpiresAt, when present, is the end of the verified-session window.
type VerifyCodeResponse struct {
	ActionType string          `json:"actionType,omitempty"`
	ActionData json.RawMessage `json:"actionData,omitempty"`
	Email      string          `json:"email,omitempty"`
	ExpiresAt  string          `json:"expiresAt,omitempty"`
	ErrorPayload
}

// Backend is the remote verification service. A non-nil error means the call
// failed at the transport level; application errors come back in the payload.
type Backend interface {
	SendVerificationCode(ctx context.Context, req SendCodeRequest) (*SendCodeResponse, error)
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error)
}

// SettingSource reads admin feature flags. A nil value means the row or field is absent.
type SettingSource interface {
	GetAdminSetting(ctx context.Context, key string) (*bool, error)
}
