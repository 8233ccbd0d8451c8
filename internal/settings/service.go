// Package settings serves the admin-managed program settings, cached in Redis.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"styleswap/internal/styleswap"
)

const CacheKey = "app_config"

type Store interface {
	GetSettings(ctx context.Context) (*styleswap.Settings, error)
	SaveSettings(ctx context.Context, settings *styleswap.Settings) error
}

type Service struct {
	store Store
	rdb   *redis.Client
	log   *zap.Logger
	now   func() time.Time
}

// NewService returns a settings service. rdb may be nil, in which case every
// read goes to the store.
func NewService(store Store, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, rdb: rdb, log: log.Named("settings"), now: time.Now}
}

// Get returns the current settings, falling back to defaults when none were
// ever saved.
func (s *Service) Get(ctx context.Context) (styleswap.Settings, error) {
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}
	settings, err := s.load(ctx)
	if err != nil {
		return styleswap.Settings{}, err
	}
	s.cache(ctx, settings)
	return settings, nil
}

// Update validates and stores new affiliate settings under the next version.
// On failure the previous settings stay in effect.
func (s *Service) Update(ctx context.Context, affiliate styleswap.AffiliateSettings, actor string) (styleswap.Settings, error) {
	if err := affiliate.Validate(); err != nil {
		return styleswap.Settings{}, err
	}
	current, err := s.load(ctx)
	if err != nil {
		return styleswap.Settings{}, err
	}
	next := current
	next.Affiliate = affiliate
	next.Version = current.Version + 1
	next.UpdatedBy = actor
	next.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, &next); err != nil {
		s.log.Error("save settings", zap.Error(err))
		return styleswap.Settings{}, err
	}
	s.log.Info("affiliate settings updated",
		zap.Uint("version", next.Version),
		zap.Bool("enabled", next.Affiliate.Enabled),
		zap.Int("percentage", next.Affiliate.DefaultCommissionPercentage),
		zap.String("actor", actor))
	s.cache(ctx, next)
	return next, nil
}

func (s *Service) load(ctx context.Context) (styleswap.Settings, error) {
	stored, err := s.store.GetSettings(ctx)
	if errors.Is(err, styleswap.ErrNotFound) {
		return styleswap.DefaultSettings(), nil
	}
	if err != nil {
		return styleswap.Settings{}, err
	}
	return *stored, nil
}

func (s *Service) cached(ctx context.Context) (styleswap.Settings, bool) {
	var settings styleswap.Settings
	if s.rdb == nil {
		return settings, false
	}
	raw, err := s.rdb.Get(ctx, CacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("settings cache read", zap.Error(err))
		}
		return settings, false
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, false
	}
	return settings, true
}

func (s *Service) cache(ctx context.Context, settings styleswap.Settings) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, CacheKey, data, 0).Err(); err != nil {
		s.log.Warn("settings cache write", zap.Error(err))
	}
}
