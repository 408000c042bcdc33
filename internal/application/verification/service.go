package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-prayer-verify/internal/domain"
	"github.com/go-prayer-verify/internal/pkg/id"
	"github.com/go-prayer-verify/internal/pkg/otp"
	"github.com/go-prayer-verify/internal/pkg/ratelimit"
	"github.com/go-prayer-verify/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Error messages returned to API callers.
const (
	MsgInvalidOrExpired = "Invalid or expired code"
	MsgCodeExpired      = "Code expired"
	MsgInvalidCode      = "Invalid code"
	MsgTooManyAttempts  = "Too many attempts"
	MsgRateLimited      = "Try again later"
)

type SendCodeRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	ActionType string          `json:"actionType" validate:"required,action_type"`
	ActionData json.RawMessage `json:"actionData"`
}

type SendCodeResult struct {
	CodeID    string    `json:"codeId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyCodeRequest struct {
	CodeID string `json:"codeId" validate:"required"`
	Code   string `json:"code" validate:"required,numeric,len=6"`
}

// VerifyCodeResult carries the bound action back to the caller. ExpiresAt is the
// end of the verified-session window the client may cache.
type VerifyCodeResult struct {
	ActionType string          `json:"actionType"`
	ActionData json.RawMessage `json:"actionData"`
	Email      string          `json:"email"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

type Service interface {
	SendCode(ctx context.Context, req SendCodeRequest) (*SendCodeResult, error)
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResult, error)
}

type codeStore interface {
	Put(ctx context.Context, c *domain.VerificationCode) error
	Get(ctx context.Context, codeID string) (*domain.VerificationCode, error)
	IncrementAttempts(ctx context.Context, codeID string, limit int) (int, error)
	Delete(ctx context.Context, codeID string) error
}

type codeMailer interface {
	SendCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

type eventPublisher interface {
	PublishVerified(ctx context.Context, ev domain.VerificationEvent) error
}

// Options tunes issuance and redemption. Zero fields take defaults.
type Options struct {
	CodeTTL      time.Duration
	SessionTTL   time.Duration
	MaxAttempts  int
	SendInterval time.Duration
	SendBurst    int
}

// ServiceDeps groups the collaborators of the verification service.
type ServiceDeps struct {
	Codes     codeStore
	Mailer    codeMailer
	Publisher eventPublisher
	Options   Options
	// Now and NewCode are overridable for tests.
	Now     func() time.Time
	NewCode func() (string, error)
}

type service struct {
	codes     codeStore
	mailer    codeMailer
	publisher eventPublisher
	opts      Options
	limiter   *ratelimit.Keyed
	now       func() time.Time
	newCode   func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	opts := deps.Options
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 15 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = 30 * time.Second
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 3
	}
	s := &service{
		codes:     deps.Codes,
		mailer:    deps.Mailer,
		publisher: deps.Publisher,
		opts:      opts,
		limiter:   ratelimit.New(rate.Every(opts.SendInterval), opts.SendBurst),
		now:       deps.Now,
		newCode:   deps.NewCode,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = otp.NewCode
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	return s
}

type noopPublisher struct{}

func (noopPublisher) PublishVerified(context.Context, domain.VerificationEvent) error { return nil }

func (s *service) SendCode(ctx context.Context, req SendCodeRequest) (*SendCodeResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	data, err := compactJSON(req.ActionData)
	if err != nil {
		return nil, fmt.Errorf("actionData must be a JSON value: %w", domain.ErrBadRequest)
	}
	if !s.limiter.Allow(req.Email) {
		return nil, fmt.Errorf("%s: %w", MsgRateLimited, domain.ErrTooManyRequests)
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.opts.CodeTTL).Truncate(time.Second)
	vc := &domain.VerificationCode{
		CodeID:     id.New(),
		Email:      req.Email,
		ActionType: req.ActionType,
		ActionData: data,
		CodeHash:   string(hash),
		ExpiresAt:  expiresAt.Unix(),
		CreatedAt:  now,
	}
	if err := s.codes.Put(ctx, vc); err != nil {
		return nil, fmt.Errorf("store verification code: %w", err)
	}
	if err := s.mailer.SendCode(ctx, req.Email, code, expiresAt); err != nil {
		if delErr := s.codes.Delete(ctx, vc.CodeID); delErr != nil {
			slog.Warn("failed to delete undelivered code", "code_id", vc.CodeID, "err", delErr)
		}
		return nil, err
	}
	slog.Info("verification code issued", "code_id", vc.CodeID, "action_type", vc.ActionType)
	return &SendCodeResult{CodeID: vc.CodeID, ExpiresAt: expiresAt}, nil
}

func (s *service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResult, error) {
	req.CodeID = strings.TrimSpace(req.CodeID)
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	vc, err := s.codes.Get(ctx, req.CodeID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", MsgInvalidOrExpired, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if vc.Expired(now) {
		s.discard(ctx, vc.CodeID)
		return nil, fmt.Errorf("%s: %w", MsgCodeExpired, domain.ErrUnauthorized)
	}
	if vc.Attempts >= s.opts.MaxAttempts {
		s.discard(ctx, vc.CodeID)
		return nil, fmt.Errorf("%s: %w", MsgTooManyAttempts, domain.ErrTooManyRequests)
	}

	// Counted before the hash check. The store enforces the cap atomically.
	attempts, err := s.codes.IncrementAttempts(ctx, vc.CodeID, s.opts.MaxAttempts)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", MsgInvalidOrExpired, domain.ErrNotFound)
	case errors.Is(err, domain.ErrTooManyRequests):
		s.discard(ctx, vc.CodeID)
		return nil, fmt.Errorf("%s: %w", MsgTooManyAttempts, domain.ErrTooManyRequests)
	case err != nil:
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(vc.CodeHash), []byte(req.Code)) != nil {
		if attempts >= s.opts.MaxAttempts {
			s.discard(ctx, vc.CodeID)
		}
		return nil, fmt.Errorf("%s: %w", MsgInvalidCode, domain.ErrUnauthorized)
	}

	// Only the caller whose delete lands redeems the code.
	if err := s.codes.Delete(ctx, vc.CodeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", MsgInvalidOrExpired, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("consume verification code: %w", err)
	}

	ev := domain.VerificationEvent{CodeID: vc.CodeID, Email: vc.Email, ActionType: vc.ActionType, VerifiedAt: now}
	if err := s.publisher.PublishVerified(ctx, ev); err != nil {
		slog.Warn("failed to publish verification event", "code_id", vc.CodeID, "err", err)
	}

	slog.Info("verification code redeemed", "code_id", vc.CodeID, "action_type", vc.ActionType)
	return &VerifyCodeResult{
		ActionType: vc.ActionType,
		ActionData: json.RawMessage(vc.ActionData),
		Email:      vc.Email,
		ExpiresAt:  now.Add(s.opts.SessionTTL).Truncate(time.Second),
	}, nil
}

func (s *service) discard(ctx context.Context, codeID string) {
	if err := s.codes.Delete(ctx, codeID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("failed to delete verification code", "code_id", codeID, "err", err)
	}
}

// compactJSON normalizes an action payload for storage. Absent means {}.
func compactJSON(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
