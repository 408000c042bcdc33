package verification

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-prayer-verify/internal/domain"
)

// Gate says whether end users must verify their email before sensitive actions.
// The flag is resolved from admin settings and passed in; it is never a package global.
type Gate struct {
	enabled atomic.Bool
	source  SettingSource
	logger  *slog.Logger
}

// NewStaticGate returns a gate pinned to enabled. Refresh is a no-op.
func NewStaticGate(enabled bool) *Gate {
	g := &Gate{logger: slog.Default()}
	g.enabled.Store(enabled)
	return g
}

// ResolveGate reads require_email_verification once from src.
// Fetch errors are logged and leave verification disabled.
func ResolveGate(ctx context.Context, src SettingSource, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{source: src, logger: logger}
	g.Refresh(ctx)
	return g
}

// Enabled reports the last resolved value.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// Refresh re-reads the flag. There are no retries.
func (g *Gate) Refresh(ctx context.Context) {
	if g.source == nil {
		return
	}
	v, err := g.source.GetAdminSetting(ctx, domain.SettingRequireEmailVerification)
	if err != nil {
		g.logger.Error("failed to fetch verification setting, verification disabled", "err", err)
		g.enabled.Store(false)
		return
	}
	g.enabled.Store(v != nil && *v)
}
