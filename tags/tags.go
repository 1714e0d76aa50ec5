// Package tags ranks recipe tags by popularity.
package tags

import (
	"context"
	"fmt"
	"time"

	"cookbook/models"

	"go.uber.org/zap"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type tagRepository interface {
	Top(ctx context.Context, n int) ([]models.TagCount, error)
	TopByAuthor(ctx context.Context, authorID string, n int) ([]models.TagCount, error)
}

// Cache is the read-through cache in front of the global ranking.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	repo   tagRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a tag service. cache may be nil.
func New(repo tagRepository, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// ClampLimit maps a requested N onto [1, MaxLimit], defaulting when unset.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Popular returns the n most used tags across all recipes.
func (s *Service) Popular(ctx context.Context, n int) ([]models.TagCount, error) {
	key := fmt.Sprintf("top:%d", n)
	if s.cache != nil {
		var cached []models.TagCount
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("tag cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	top, err := s.repo.Top(ctx, n)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, top, s.ttl); err != nil {
			s.logger.Warn("tag cache write failed", zap.Error(err))
		}
	}
	return top, nil
}

// PopularByAuthor ranks the tags of one author's recipes.
func (s *Service) PopularByAuthor(ctx context.Context, authorID string, n int) ([]models.TagCount, error) {
	return s.repo.TopByAuthor(ctx, authorID, n)
}

// Invalidate drops cached rankings after a recipe's tags changed.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("tag cache invalidation failed", zap.Error(err))
	}
}
