package setting

import (
	"context"
	"fmt"
	"time"

	"github.com/go-prayer-verify/internal/domain"
)

type Service interface {
	Get(ctx context.Context, key string) (*domain.AdminSetting, error)
	Set(ctx context.Context, key string, value bool, updatedBy string) (*domain.AdminSetting, error)
}

type settingStore interface {
	Get(ctx context.Context, key string) (*domain.AdminSetting, error)
	Upsert(ctx context.Context, s *domain.AdminSetting) error
}

type service struct {
	repo settingStore
	now  func() time.Time
}

func NewService(repo settingStore) Service {
	return &service{repo: repo, now: time.Now}
}

// Get returns the stored setting. Known keys that were never written read as
// false rather than not found.
func (s *service) Get(ctx context.Context, key string) (*domain.AdminSetting, error) {
	if !domain.KnownSettings[key] {
		return nil, fmt.Errorf("unknown setting %q: %w", key, domain.ErrNotFound)
	}
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return &domain.AdminSetting{Key: key}, nil
		}
		return nil, err
	}
	return st, nil
}

func (s *service) Set(ctx context.Context, key string, value bool, updatedBy string) (*domain.AdminSetting, error) {
	if !domain.KnownSettings[key] {
		return nil, fmt.Errorf("unknown setting %q: %w", key, domain.ErrBadRequest)
	}
	st := &domain.AdminSetting{
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
