package verification

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultSessionTTL = 15 * time.Minute
)

// State of the in-flight verification attempt.
type State int

const (
	StateIdle State = iota
	StateAwaitingCode
)

func (s State) String() string {
	if s == StateAwaitingCode {
		return "awaiting_code"
	}
	return "idle"
}

// PendingCode is the code most recently issued by RequestCode. It lives in memory only.
type PendingCode struct {
	CodeID    string
	ExpiresAt time.Time
	Email     string
}

// IssuedCode is returned when the backend sent a code.
type IssuedCode struct {
	CodeID    string
	ExpiresAt time.Time
}

// VerifiedAction is the action bound to a redeemed code. ActionData is exactly the
// payload given to RequestCode; the caller performs the mutation with it.
type VerifiedAction struct {
	ActionType string
	ActionData json.RawMessage
	Email      string
}

// Flow drives request-code / verify-code against a Backend and keeps the
// SessionCache current. It is safe for concurrent use; overlapping requests are
// ordered by a sequence number so a late reply cannot replace a newer pending code.
type Flow struct {
	gate       *Gate
	cache      *SessionCache
	backend    Backend
	timeout    time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	seq     uint64
	pending *PendingCode
	loading int
	lastErr string
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) FlowOption {
	return func(f *Flow) { f.timeout = d }
}

// WithSessionTTL sets the session window used when the verify reply has no expiresAt.
func WithSessionTTL(d time.Duration) FlowOption {
	return func(f *Flow) { f.sessionTTL = d }
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) FlowOption {
	return func(f *Flow) { f.logger = l }
}

// NewFlow returns a Flow that consults gate and cache before calling backend.
// Calls time out after DefaultTimeout unless WithTimeout says otherwise.
func NewFlow(gate *Gate, cache *SessionCache, backend Backend, opts ...FlowOption) *Flow {
	f := &Flow{
		gate:       gate,
		cache:      cache,
		backend:    backend,
		timeout:    DefaultTimeout,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// RequestCode asks the backend for a code bound to (email, actionType, payload).
// It returns nil, nil when verification is disabled or the email verified recently;
// the caller then performs the action directly.
func (f *Flow) RequestCode(ctx context.Context, email, actionType string, payload json.RawMessage) (*IssuedCode, error) {
	email = strings.TrimSpace(email)
	actionType = strings.TrimSpace(actionType)
	if email == "" || actionType == "" {
		return nil, f.fail(&Error{Kind: KindInvalidInput, Message: "Email and action type are required"})
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, f.fail(&Error{Kind: KindInvalidInput, Message: "Action payload must be valid JSON"})
	}

	if !f.gate.Enabled() {
		return nil, nil
	}
	if f.cache.IsRecentlyVerified(ctx, email) {
		return nil, nil
	}

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.loading++
	f.lastErr = ""
	f.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	resp, err := f.backend.SendVerificationCode(callCtx, SendCodeRequest{
		Email:      email,
		ActionType: actionType,
		ActionData: payload,
	})
	cancel()
	issued, vErr := validateSend(resp, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading--
	if seq != f.seq {
		f.logger.Info("discarding stale verification code reply", "email", email, "action_type", actionType)
		if vErr != nil {
			return nil, vErr
		}
		return nil, &Error{Kind: KindSuperseded, Message: MsgSuperseded}
	}
	if vErr != nil {
		f.lastErr = vErr.Message
		return nil, vErr
	}
	f.pending = &PendingCode{CodeID: issued.CodeID, ExpiresAt: issued.ExpiresAt, Email: email}
	return issued, nil
}

// VerifyCode redeems code against codeID. On success the session is recorded, the
// pending code is cleared and the bound action is returned. On failure the pending
// code is kept so the user can retry or resend.
func (f *Flow) VerifyCode(ctx context.Context, codeID, code string) (*VerifiedAction, error) {
	codeID = strings.TrimSpace(codeID)
	code = strings.TrimSpace(code)
	if codeID == "" || code == "" {
		return nil, f.fail(&Error{Kind: KindInvalidInput, Message: "Code is required"})
	}

	f.mu.Lock()
	seq := f.seq
	var fallbackEmail string
	if f.pending != nil {
		fallbackEmail = f.pending.Email
	}
	f.loading++
	f.lastErr = ""
	f.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	resp, err := f.backend.VerifyCode(callCtx, VerifyCodeRequest{CodeID: codeID, Code: code})
	cancel()
	vErr := validateVerify(resp, err)

	if vErr != nil {
		f.mu.Lock()
		f.loading--
		if seq == f.seq {
			f.lastErr = vErr.Message
		}
		f.mu.Unlock()
		return nil, vErr
	}

	email := resp.Email
	if email == "" {
		email = fallbackEmail
	}
	now := f.now()
	expiresAt := now.Add(f.sessionTTL)
	if resp.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			expiresAt = t
		} else {
			f.logger.Warn("unparseable session expiry in verify reply, using default", "expires_at", resp.ExpiresAt)
		}
	}
	if email == "" {
		f.logger.Warn("verify reply had no email and no pending code, session not recorded", "code_id", codeID)
	} else if err := f.cache.RecordVerified(ctx, email, now, expiresAt); err != nil {
		f.logger.Error("failed to record verified session", "email", NormalizeEmail(email), "err", err)
	}

	f.mu.Lock()
	f.loading--
	if seq == f.seq {
		f.pending = nil
	}
	f.mu.Unlock()

	return &VerifiedAction{ActionType: resp.ActionType, ActionData: resp.ActionData, Email: email}, nil
}

// Reset discards the pending code and the last error. In-flight calls are not
// cancelled, but their replies can no longer set a pending code.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.pending = nil
	f.lastErr = ""
}

// Pending returns the current pending code, if any.
func (f *Flow) Pending() (PendingCode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return PendingCode{}, false
	}
	return *f.pending, true
}

// State is StateAwaitingCode while a pending code is held, StateIdle otherwise.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending != nil {
		return StateAwaitingCode
	}
	return StateIdle
}

// Loading reports whether a backend call is in flight.
func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading > 0
}

// LastError is the message of the most recent failure, empty after a success or Reset.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) fail(e *Error) *Error {
	f.mu.Lock()
	f.lastErr = e.Message
	f.mu.Unlock()
	return e
}

func validateSend(resp *SendCodeResponse, err error) (*IssuedCode, *Error) {
	if err != nil {
		return nil, normalize(err, MsgSendFailed)
	}
	if resp == nil {
		return nil, &Error{Kind: KindProtocol, Message: MsgInvalidSendReply}
	}
	if resp.Present() {
		return nil, backendError(resp.ErrorPayload, MsgSendFailed)
	}
	if resp.CodeID == "" || resp.ExpiresAt == "" {
		return nil, &Error{Kind: KindProtocol, Message: MsgInvalidSendReply}
	}
	exp, perr := time.Parse(time.RFC3339, resp.ExpiresAt)
	if perr != nil {
		return nil, &Error{Kind: KindProtocol, Message: MsgInvalidSendReply, Err: perr}
	}
	return &IssuedCode{CodeID: resp.CodeID, ExpiresAt: exp}, nil
}

func validateVerify(resp *VerifyCodeResponse, err error) *Error {
	if err != nil {
		return normalize(err, MsgVerifyFailed)
	}
	if resp == nil {
		return &Error{Kind: KindProtocol, Message: MsgInvalidVerifyReply}
	}
	if resp.Present() {
		return backendError(resp.ErrorPayload, MsgVerifyFailed)
	}
	if resp.ActionType == "" {
		return &Error{Kind: KindProtocol, Message: MsgInvalidVerifyReply}
	}
	return nil
}

func backendError(p ErrorPayload, fallback string) *Error {
	msg := p.Message()
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: KindBackend, Message: msg}
}
