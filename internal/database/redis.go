package database

import (
	"context"
	"fmt"

	"eventx-ticketing/config"
	"eventx-ticketing/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis 連線 Redis，座位鎖、事件佇列與限流共用同一個 client
func InitRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.WithComponent("database").Info("redis connected",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
	)
	return rdb, nil
}
