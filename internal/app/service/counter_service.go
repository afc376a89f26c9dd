package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CounterService keeps one integer per user in Redis. It may go negative.
type CounterService struct {
	rdb *redis.Client
}

func NewCounterService(rdb *redis.Client) *CounterService {
	return &CounterService{rdb: rdb}
}

func counterKey(userID string) string { return "counter:" + userID }

func (s *CounterService) Get(ctx context.Context, userID string) (int64, error) {
	v, err := s.rdb.Get(ctx, counterKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return v, nil
}

func (s *CounterService) Increment(ctx context.Context, userID string) (int64, error) {
	v, err := s.rdb.Incr(ctx, counterKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return v, nil
}

func (s *CounterService) Decrement(ctx context.Context, userID string) (int64, error) {
	v, err := s.rdb.Decr(ctx, counterKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement counter: %w", err)
	}
	return v, nil
}

// Forget drops the user's counter entirely.
func (s *CounterService) Forget(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, counterKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to drop counter: %w", err)
	}
	return nil
}

func (s *CounterService) Reset(ctx context.Context, userID string) (int64, error) {
	if err := s.rdb.Set(ctx, counterKey(userID), 0, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to reset counter: %w", err)
	}
	return 0, nil
}

