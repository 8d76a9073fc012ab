package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BOOKING_STORAGE_TIMEOUT", "")

	cfg := LoadConfig()

	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Booking.StorageTimeout)
	assert.Equal(t, "ticket-events", cfg.Kafka.Topic)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("BOOKING_SEAT_LOCK_TTL", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Booking.SeatLockTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cfg := LoadTestConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("Failed - missing secret and bad driver", func(t *testing.T) {
		cfg := LoadTestConfig()
		cfg.Auth.JWTSecret = ""
		cfg.Store.Driver = "sqlite"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
		assert.Contains(t, err.Error(), "sqlite")
	})

	t.Run("Failed - redis queue without redis", func(t *testing.T) {
		cfg := LoadTestConfig()
		cfg.Queue.Driver = "redis"
		cfg.Redis.Enabled = false

		assert.Error(t, cfg.Validate())
	})
}
