package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
)

// RateLimitService implements a fixed-window request limiter over Redis.
type RateLimitService struct {
	redis  *redis.Client
	config *config.RateLimitConfig
	logger *logrus.Logger
}

func NewRateLimitService(redis *redis.Client, cfg *config.RateLimitConfig, logger *logrus.Logger) *RateLimitService {
	return &RateLimitService{
		redis:  redis,
		config: cfg,
		logger: logger,
	}
}

// Allow reports whether the caller identified by key may proceed. Limiter
// backend failures fail open: serving a request is cheaper than dropping
// one because Redis blinked.
func (s *RateLimitService) Allow(ctx context.Context, key string) bool {
	if s.redis == nil {
		return true
	}

	window := fmt.Sprintf("ratelimit:%s", key)

	count, err := s.redis.Incr(ctx, window).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
		return true
	}

	if count == 1 {
		if err := s.redis.Expire(ctx, window, s.config.Window).Err(); err != nil {
			s.logger.WithError(err).Warn("Failed to set rate limit window expiry")
		}
	}

	return count <= int64(s.config.Requests)
}
