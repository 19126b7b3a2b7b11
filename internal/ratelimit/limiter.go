package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTooManyAttempts = errors.New("too many attempts")

// Limiter counts attempts per key in redis with a rolling window.
type Limiter struct {
	redis *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{redis: client}
}

func (l *Limiter) CheckRegister(ctx context.Context, email string) error {
	return l.check(ctx, fmt.Sprintf("register_attempts:%s", email), 3, time.Hour)
}

func (l *Limiter) CheckConfirm(ctx context.Context, ip string) error {
	return l.check(ctx, fmt.Sprintf("confirm_attempts:%s", ip), 10, 15*time.Minute)
}

func (l *Limiter) ResetRegister(ctx context.Context, email string) error {
	return l.redis.Del(ctx, fmt.Sprintf("register_attempts:%s", email)).Err()
}

func (l *Limiter) check(ctx context.Context, key string, max int64, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		l.redis.Expire(ctx, key, window)
	}

	if count > max {
		return ErrTooManyAttempts
	}
	return nil
}
