package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Booking   BookingConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	GinMode         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
	Enabled  bool
}

type BookingConfig struct {
	// StorageTimeout bounds every storage call made by the booking engine.
	StorageTimeout      time.Duration
	CompensationTimeout time.Duration
	SeatLockTTL         time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	ProducerRetryMax int
}

type QueueConfig struct {
	Driver           string // memory | redis
	BufferSize       int
	ClaimMinIdleTime time.Duration
	MaxRetryCount    int
}

type RateLimitConfig struct {
	Enabled         bool
	WindowDuration  time.Duration
	BookingRequests int
	ScanRequests    int
}

type LogConfig struct {
	Level string
}

var AppConfig *Config

func LoadConfig() *Config {
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:    GetServerConfig(),
		Store:     StoreConfig{Driver: getEnv("STORE_DRIVER", StoreDriverPostgres)},
		Database:  GetDatabaseConfig(),
		Mongo:     GetMongoConfig(),
		Redis:     GetRedisConfig(),
		Booking:   GetBookingConfig(),
		Auth:      GetAuthConfig(),
		Kafka:     GetKafkaConfig(),
		Queue:     GetQueueConfig(),
		RateLimit: GetRateLimitConfig(),
		Log:       LogConfig{Level: getEnv("LOG_LEVEL", "info")},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:          "localhost",
		Port:          "5433", // 測試 DB 用 5433 port
		User:          "postgres",
		Password:      "postgres",
		DBName:        "test_db",
		SSLMode:       "disable",
		MaxConns:      25,
		MinConns:      1,
		RunMigrations: true,
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
		Enabled:  true,
	}

	return &Config{
		Server:   ServerConfig{Port: "0", GinMode: "test", AllowedOrigins: []string{"http://localhost:3000"}},
		Store:    StoreConfig{Driver: StoreDriverMemory},
		Database: *testConfig,
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27018",
			Database: "eventx_test",
		},
		Redis: testRedisConfig,
		Booking: BookingConfig{
			StorageTimeout:      2 * time.Second,
			CompensationTimeout: 2 * time.Second,
			SeatLockTTL:         5 * time.Second,
		},
		Auth:  AuthConfig{JWTSecret: "test-secret", Issuer: "eventx"},
		Queue: QueueConfig{Driver: "memory", BufferSize: 64, ClaimMinIdleTime: time.Second, MaxRetryCount: 3},
		Log:   LogConfig{Level: "debug"},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowedOrigins:  getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          getEnv("DB_PORT", "5432"),
		User:          getEnv("DB_USER", "postgres"),
		Password:      getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "postgres"),
		SSLMode:       getEnv("DB_SSL_MODE", "disable"),
		MaxConns:      int32(getIntEnv("DB_MAX_CONNS", 25)),
		MinConns:      int32(getIntEnv("DB_MIN_CONNS", 5)),
		RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
	}
}

func GetMongoConfig() MongoConfig {
	return MongoConfig{
		URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database: getEnv("MONGO_DATABASE", "eventx"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		PoolSize: getIntEnv("REDIS_POOL_SIZE", 20),
		Enabled:  getBoolEnv("REDIS_ENABLED", true),
	}
}

func GetBookingConfig() BookingConfig {
	return BookingConfig{
		StorageTimeout:      getDurationEnv("BOOKING_STORAGE_TIMEOUT", 3*time.Second),
		CompensationTimeout: getDurationEnv("BOOKING_COMPENSATION_TIMEOUT", 5*time.Second),
		SeatLockTTL:         getDurationEnv("BOOKING_SEAT_LOCK_TTL", 10*time.Second),
	}
}

func GetAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		Issuer:    getEnv("JWT_ISSUER", "eventx"),
	}
}

func GetKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Enabled:          getBoolEnv("KAFKA_ENABLED", false),
		Brokers:          getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:            getEnv("KAFKA_TICKET_TOPIC", "ticket-events"),
		ProducerRetryMax: getIntEnv("KAFKA_PRODUCER_RETRY_MAX", 3),
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Driver:           getEnv("QUEUE_DRIVER", "redis"),
		BufferSize:       getIntEnv("QUEUE_BUFFER_SIZE", 1024),
		ClaimMinIdleTime: getDurationEnv("QUEUE_CLAIM_MIN_IDLE", 5*time.Second),
		MaxRetryCount:    getIntEnv("QUEUE_MAX_RETRY", 5),
	}
}

func GetRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
		WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		BookingRequests: getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 20),
		ScanRequests:    getIntEnv("RATE_LIMIT_SCAN_REQUESTS", 120),
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Booking.StorageTimeout <= 0 {
		errs = append(errs, errors.New("BOOKING_STORAGE_TIMEOUT must be positive"))
	}
	if c.Queue.Driver == "redis" && !c.Redis.Enabled {
		errs = append(errs, errors.New("QUEUE_DRIVER=redis requires REDIS_ENABLED"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) ServerAddress() string {
	return ":" + c.Server.Port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}

func getSliceEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
