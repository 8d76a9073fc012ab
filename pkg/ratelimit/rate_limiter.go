package ratelimit

import (
	"context"
	"fmt"
	"time"

	"eventx-ticketing/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type LimitType string

const (
	LimitTypeBooking LimitType = "booking"
	LimitTypeScan    LimitType = "scan"
)

type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// Limiter 以 Redis sorted set 實作滑動視窗限流
type Limiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
}

func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{client: client, cfg: cfg}
}

// KEYS[1] window key; ARGV: window start, now (ns), limit, ttl (ms), member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= limit then
	redis.call('PEXPIRE', key, ttl)
	return {0, 0}
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, ttl)
return {1, limit - count - 1}
`)

func (l *Limiter) Allow(ctx context.Context, subject string, limitType LimitType) (*Result, error) {
	limit := l.limit(limitType)
	now := time.Now()
	reset := now.Add(l.cfg.WindowDuration).Unix()

	if !l.cfg.Enabled || l.client == nil || limit <= 0 {
		return &Result{Allowed: true, Limit: limit, Remaining: limit, ResetTime: reset}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", limitType, subject)
	values, err := slidingWindowScript.Run(ctx, l.client, []string{key},
		now.Add(-l.cfg.WindowDuration).UnixNano(),
		now.UnixNano(),
		limit,
		l.cfg.WindowDuration.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit response %v", values)
	}

	return &Result{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: reset,
	}, nil
}

func (l *Limiter) limit(limitType LimitType) int {
	switch limitType {
	case LimitTypeBooking:
		return l.cfg.BookingRequests
	case LimitTypeScan:
		return l.cfg.ScanRequests
	}
	return 0
}
