// Package testutil connects integration tests to the docker-compose test
// services (Postgres :5433, Redis :6380, Mongo :27018). Tests skip when a
// service is not reachable.
package testutil

import (
	"context"
	"testing"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectTimeout = 3 * time.Second

// Postgres 初始化測試資料庫並套用 migrations
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg := config.LoadTestConfig()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("postgres test database unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(context.Background(), "TRUNCATE tickets, events CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

// Redis 僅初始化 Redis，用於 queue、seat lock、rate limit 整合測試
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	cfg := config.LoadTestConfig()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		t.Skipf("redis test instance unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return rdb
}

func Mongo(t *testing.T) *mongo.Database {
	t.Helper()
	cfg := config.LoadTestConfig()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, db, err := database.InitMongo(ctx, &cfg.Mongo)
	if err != nil {
		t.Skipf("mongo test instance unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	if err := db.Drop(context.Background()); err != nil {
		t.Fatalf("drop mongo database: %v", err)
	}
	return db
}
