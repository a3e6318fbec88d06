package service

import (
	"context"
	"errors"
	"log/slog"

	"wayfarer/internal/location"
	"wayfarer/internal/platform/metrics"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/sentinel"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
)

// Store is the persistence port for leaderboard reads.
type Store interface {
	Get(ctx context.Context, cityID string) (*location.Location, error)
	TopByPoints(ctx context.Context, limit int) ([]location.Location, error)
}

// Cache is the optional cache-aside layer in front of TopByPoints. A nil
// cache means every read goes to the store.
type Cache interface {
	GetTop(ctx context.Context, limit int) ([]location.Location, bool, error)
	SetTop(ctx context.Context, limit int, locs []location.Location) error
	Invalidate(ctx context.Context) error
}

// Service serves the global location aggregates and the leaderboard.
type Service struct {
	store   Store
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, cache Cache, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, cache: cache, logger: logger, metrics: m}
}

// Get returns one location aggregate by normalized city id.
func (s *Service) Get(ctx context.Context, cityID string) (*location.Location, error) {
	loc, err := s.store.Get(ctx, cityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "location not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get location")
	}
	return loc, nil
}

// TopLocations returns up to limit locations ordered by total points awarded.
// Cache failures degrade to the store; they are logged, never surfaced.
func (s *Service) TopLocations(ctx context.Context, limit int) ([]location.Location, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	if s.cache != nil {
		locs, hit, err := s.cache.GetTop(ctx, limit)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "leaderboard cache read failed", "error", err)
		case hit:
			s.cacheOutcome("hit")
			return locs, nil
		default:
			s.cacheOutcome("miss")
		}
	} else {
		s.cacheOutcome("bypass")
	}

	locs, err := s.store.TopByPoints(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "top locations")
	}

	if s.cache != nil {
		if err := s.cache.SetTop(ctx, limit, locs); err != nil {
			s.logger.WarnContext(ctx, "leaderboard cache write failed", "error", err)
		}
	}
	return locs, nil
}

// InvalidateTop drops cached leaderboard views after a claim commit. Best
// effort: the TTL bounds staleness if this fails.
func (s *Service) InvalidateTop(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache invalidation failed", "error", err)
	}
}

func (s *Service) cacheOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.LeaderboardCache.WithLabelValues(outcome).Inc()
	}
}
