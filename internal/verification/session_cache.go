package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// SessionsKey is the storage key holding the verified-session list.
const SessionsKey = "prayer_app_verified_sessions"

// Storage is a small durable key-value store. Get reports ok=false for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// VerifiedSession records that an email completed verification.
// Timestamps are milliseconds since the Unix epoch; a nil ExpiresAt never grants a skip.
type VerifiedSession struct {
	Email      string `json:"email"`
	VerifiedAt int64  `json:"verifiedAt"`
	ExpiresAt  *int64 `json:"expiresAt"`
}

// storedSession is the lenient on-disk form. Timestamps may be any finite JSON
// number; fractions are floored to whole milliseconds.
type storedSession struct {
	Email      string   `json:"email"`
	VerifiedAt float64  `json:"verifiedAt"`
	ExpiresAt  *float64 `json:"expiresAt"`
}

func (s storedSession) session() (VerifiedSession, error) {
	verifiedAt, ok := floorMillis(s.VerifiedAt)
	if !ok {
		return VerifiedSession{}, fmt.Errorf("verifiedAt %v out of range", s.VerifiedAt)
	}
	out := VerifiedSession{Email: NormalizeEmail(s.Email), VerifiedAt: verifiedAt}
	if s.ExpiresAt != nil {
		exp, ok := floorMillis(*s.ExpiresAt)
		if !ok {
			return VerifiedSession{}, fmt.Errorf("expiresAt %v out of range", *s.ExpiresAt)
		}
		out.ExpiresAt = &exp
	}
	return out, nil
}

func floorMillis(f float64) (int64, bool) {
	f = math.Floor(f)
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (s VerifiedSession) expired(nowMs int64) bool {
	return s.ExpiresAt == nil || nowMs >= *s.ExpiresAt
}

// SessionCache answers "has this email verified recently" from local storage.
// Expired entries are pruned on lookup and on write, never on a schedule.
type SessionCache struct {
	store  Storage
	now    func() time.Time
	logger *slog.Logger
}

// CacheOption configures a SessionCache.
type CacheOption func(*SessionCache)

// WithCacheClock overrides the cache's time source.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *SessionCache) { c.now = now }
}

// WithCacheLogger overrides the cache's logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *SessionCache) { c.logger = l }
}

// NewSessionCache returns a cache over store, which it owns under SessionsKey.
func NewSessionCache(store Storage, opts ...CacheOption) *SessionCache {
	c := &SessionCache{store: store, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsRecentlyVerified reports whether email has an unexpired session. Storage and
// decode failures read as "not verified".
func (c *SessionCache) IsRecentlyVerified(ctx context.Context, email string) bool {
	key := NormalizeEmail(email)
	if key == "" {
		return false
	}
	sessions := c.load(ctx)

	var found *VerifiedSession
	for i := range sessions {
		if sessions[i].Email != key {
			continue
		}
		if found == nil || sessions[i].VerifiedAt > found.VerifiedAt {
			found = &sessions[i]
		}
	}
	if found == nil {
		return false
	}
	if found.ExpiresAt == nil {
		return false
	}
	nowMs := c.now().UnixMilli()
	if !found.expired(nowMs) {
		return true
	}

	kept := sessions[:0:0]
	for _, s := range sessions {
		if s.Email != key {
			kept = append(kept, s)
		}
	}
	if err := c.save(ctx, kept); err != nil {
		c.logger.Warn("failed to prune expired verified session", "email", key, "err", err)
	}
	return false
}

// RecordVerified stores a session for email, replacing any previous entry and
// dropping entries that have already expired.
func (c *SessionCache) RecordVerified(ctx context.Context, email string, verifiedAt, expiresAt time.Time) error {
	key := NormalizeEmail(email)
	if key == "" {
		return fmt.Errorf("record verified session: empty email")
	}
	nowMs := c.now().UnixMilli()
	sessions := c.load(ctx)

	kept := make([]VerifiedSession, 0, len(sessions)+1)
	for _, s := range sessions {
		if s.Email == key || s.expired(nowMs) {
			continue
		}
		kept = append(kept, s)
	}
	exp := expiresAt.UnixMilli()
	kept = append(kept, VerifiedSession{
		Email:      key,
		VerifiedAt: verifiedAt.UnixMilli(),
		ExpiresAt:  &exp,
	})
	return c.save(ctx, kept)
}

// Reset removes every stored session.
func (c *SessionCache) Reset(ctx context.Context) error {
	return c.store.Remove(ctx, SessionsKey)
}

// Sessions returns the stored sessions as-is, including expired ones.
func (c *SessionCache) Sessions(ctx context.Context) []VerifiedSession {
	return c.load(ctx)
}

// load decodes the stored list element by element so one malformed entry does
// not discard the rest. A blob that is not a JSON array reads as empty.
func (c *SessionCache) load(ctx context.Context) []VerifiedSession {
	raw, ok, err := c.store.Get(ctx, SessionsKey)
	if err != nil {
		c.logger.Warn("failed to read verified sessions", "err", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn("verified sessions store is corrupt, treating as empty", "err", err)
		return nil
	}
	sessions := make([]VerifiedSession, 0, len(items))
	for _, item := range items {
		var st storedSession
		if err := json.Unmarshal(item, &st); err != nil {
			c.logger.Warn("skipping malformed verified session", "err", err)
			continue
		}
		s, err := st.session()
		if err != nil {
			c.logger.Warn("skipping malformed verified session", "err", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func (c *SessionCache) save(ctx context.Context, sessions []VerifiedSession) error {
	if sessions == nil {
		sessions = []VerifiedSession{}
	}
	b, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal verified sessions: %w", err)
	}
	return c.store.Set(ctx, SessionsKey, string(b))
}
