package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OtpLimiter caps how many OTPs an affiliate may request per window
type OtpLimiter interface {
	Allow(ctx context.Context, affiliateID uint) (bool, error)
}

// RedisOtpLimiter counts requests with INCR and starts the window on the
// first request. EXPIRE NX needs Redis 7.
type RedisOtpLimiter struct {
	client      *redis.Client
	maxRequests int64
	window      time.Duration
}

func NewRedisOtpLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisOtpLimiter {
	if maxRequests <= 0 {
		maxRequests = 5
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RedisOtpLimiter{client: client, maxRequests: int64(maxRequests), window: window}
}

func (l *RedisOtpLimiter) Allow(ctx context.Context, affiliateID uint) (bool, error) {
	key := fmt.Sprintf("affiliate:otp_attempts:%d", affiliateID)

	// INCR and EXPIRE NX commit together so a counter never outlives its window
	var attempts *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		attempts = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count otp requests: %w", err)
	}
	return attempts.Val() <= l.maxRequests, nil
}
