package cache

import (
	"context"
	"fmt"
	"time"

	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SeatLocker serialises concurrent bookings of the same seat before they reach
// storage. Storage uniqueness stays authoritative; the lock only keeps losers
// from reserving capacity they would have to hand back.
type SeatLocker interface {
	// Acquire 取得座位鎖，座位已被鎖定時回傳 ErrSeatTaken
	Acquire(ctx context.Context, eventID uuid.UUID, seatNumber string) (token string, err error)
	// Release 只釋放自己持有的鎖
	Release(ctx context.Context, eventID uuid.UUID, seatNumber, token string) error
}

type RedisSeatLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSeatLocker(client *redis.Client, ttl time.Duration) SeatLocker {
	return &RedisSeatLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *RedisSeatLocker) key(eventID uuid.UUID, seatNumber string) string {
	return fmt.Sprintf("event:%s:seat:%s:lock", eventID, seatNumber)
}

func (l *RedisSeatLocker) Acquire(ctx context.Context, eventID uuid.UUID, seatNumber string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(eventID, seatNumber), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire seat lock: %w", apperrors.Unavailable(err))
	}
	if !ok {
		return "", apperrors.ErrSeatTaken
	}
	return token, nil
}

// 比對 token 後才刪除 (使用Lua腳本確保原子性)，避免刪掉已過期後被他人取得的鎖
var releaseSeatScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (l *RedisSeatLocker) Release(ctx context.Context, eventID uuid.UUID, seatNumber, token string) error {
	if err := releaseSeatScript.Run(ctx, l.client, []string{l.key(eventID, seatNumber)}, token).Err(); err != nil {
		return fmt.Errorf("release seat lock: %w", err)
	}
	return nil
}

// NoopSeatLocker is used when Redis is disabled.
type NoopSeatLocker struct{}

func (NoopSeatLocker) Acquire(context.Context, uuid.UUID, string) (string, error) {
	return "", nil
}

func (NoopSeatLocker) Release(context.Context, uuid.UUID, string, string) error {
	return nil
}
