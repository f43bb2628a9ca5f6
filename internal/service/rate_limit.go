package service

import (
	"context"
	"fmt"
	"time"

	"cargo_miniapp/internal/repository"
	"cargo_miniapp/pkg/logger"
)

type RateLimitService interface {
	Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{rateLimitRepo: rateLimitRepo, log: log}
}

// Allow проверяет лимит и учитывает текущий запрос. При недоступности
// Redis запрос пропускается: лимитер не должен ронять сервис.
func (s *rateLimitService) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("rate:%s:%s", scope, subject)

	allowed, err := s.rateLimitRepo.CheckLimit(ctx, key, limit, window)
	if err != nil {
		s.log.Warn("Rate limit check failed, allowing request", "error", err, "scope", scope)
		return true, nil
	}
	if !allowed {
		return false, nil
	}

	if _, err := s.rateLimitRepo.Increment(ctx, key, window); err != nil {
		s.log.Warn("Rate limit increment failed", "error", err, "scope", scope)
	}

	return true, nil
}
