package verification

import (
	"encoding/json"
	"errors"
	"strings"
)

// Kind classifies a failed request or verify call.
type Kind string

const (
	// KindTransport means the backend call itself failed (network, 5xx, timeout).
	KindTransport Kind = "transport"
	// KindBackend means the backend answered with an application error payload.
	KindBackend Kind = "backend"
	// KindProtocol means the backend answered without the fields the contract requires.
	KindProtocol Kind = "protocol"
	// KindInvalidInput means the caller passed an empty email, action type, code id or code.
	KindInvalidInput Kind = "invalid_input"
	// KindSuperseded means a newer request or a reset happened while this call was in flight.
	KindSuperseded Kind = "superseded"
)

// Fixed messages surfaced to callers.
const (
	MsgSendFailed         = "Failed to send verification code"
	MsgVerifyFailed       = "Failed to verify code"
	MsgInvalidSendReply   = "Invalid response from verification service"
	MsgInvalidVerifyReply = "Invalid verification response"
	MsgSuperseded         = "Verification request superseded"
)

// Error is the single error type returned by Flow. Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}

// normalize converts any error into *Error. Errors that are already *Error keep
// their kind and message; anything else becomes a transport error carrying the
// fallback message and the original error as its cause.
func normalize(err error, fallback string) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	return &Error{Kind: KindTransport, Message: fallback, Err: err}
}

// ErrorPayload is the application error shape the backend embeds in a reply.
// Error is either a JSON string or an object; Details is optional.
type ErrorPayload struct {
	Error   json.RawMessage `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// Present reports whether the payload carries an error field.
func (p ErrorPayload) Present() bool {
	raw := strings.TrimSpace(string(p.Error))
	return raw != "" && raw != "null"
}

// Message flattens the payload as "<error> - <details>" (details omitted when empty).
func (p ErrorPayload) Message() string {
	msg := errorText(p.Error)
	if p.Details != "" {
		if msg == "" {
			return p.Details
		}
		return msg + " - " + p.Details
	}
	return msg
}

func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
