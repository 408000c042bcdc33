package http

import (
	"context"

	"github.com/go-prayer-verify/internal/domain"
	"github.com/go-prayer-verify/internal/infrastructure/smtp"
	"github.com/go-prayer-verify/internal/infrastructure/sns"
	"github.com/go-prayer-verify/internal/transport/http/middleware"
)

// CodeRepository is the minimal interface the router requires from a verification-code store.
type CodeRepository interface {
	Put(ctx context.Context, c *domain.VerificationCode) error
	Get(ctx context.Context, codeID string) (*domain.VerificationCode, error)
	IncrementAttempts(ctx context.Context, codeID string, limit int) (int, error)
	Delete(ctx context.Context, codeID string) error
}

// SettingRepository is the minimal interface the router requires from an admin-settings store.
type SettingRepository interface {
	Get(ctx context.Context, key string) (*domain.AdminSetting, error)
	Upsert(ctx context.Context, s *domain.AdminSetting) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	CodeRepo    CodeRepository
	SettingRepo SettingRepository
	Mailer      smtp.Mailer
	Publisher   sns.EventPublisher
	// TokenVerifier guards the admin routes. When nil those routes are not mounted.
	TokenVerifier middleware.TokenVerifier
}
