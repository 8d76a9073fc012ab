package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/cache"
	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/database"
	"eventx-ticketing/internal/handler"
	"eventx-ticketing/internal/notifications"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/repository"
	"eventx-ticketing/internal/repository/memory"
	"eventx-ticketing/internal/repository/mongostore"
	"eventx-ticketing/internal/service"
	"eventx-ticketing/internal/worker"
	"eventx-ticketing/pkg/logger"
	"eventx-ticketing/pkg/ratelimit"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// stores bundles the repositories selected by STORE_DRIVER.
type stores struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
	close   func()
}

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Log.Level)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.L.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.L.Info("server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.WithComponent("main")

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer rdb.Close()
	}

	ticketQueue, err := openQueue(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var (
		locker  cache.SeatLocker = cache.NoopSeatLocker{}
		limiter *ratelimit.Limiter
	)
	if rdb != nil {
		locker = cache.NewRedisSeatLocker(rdb, cfg.Booking.SeatLockTTL)
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(rdb, cfg.RateLimit)
		}
	}

	clk := clock.NewSystem()
	ledger := service.NewCapacityLedger(st.events, clk)
	bookingService := service.NewBookingService(st.events, st.tickets, ledger, locker, ticketQueue, clk, cfg.Booking)
	validationGate := service.NewValidationGate(st.events, st.tickets, ticketQueue, clk, cfg.Booking)
	eventService := service.NewEventService(st.events, st.tickets, ledger, clk, cfg.Booking)

	router := handler.NewRouter(cfg,
		handler.NewEventHandler(eventService),
		handler.NewTicketHandler(bookingService, validationGate),
		limiter,
	)
	srv := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server running",
			zap.String("address", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("queue", cfg.Queue.Driver),
			zap.Bool("redis", rdb != nil),
			zap.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return worker.NewTicketEventWorker(ticketQueue, publisher).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	log := logger.WithComponent("main")

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		return &stores{
			events:  repository.NewEventRepository(pool),
			tickets: repository.NewTicketRepository(pool),
			close:   pool.Close,
		}, nil

	case config.StoreDriverMongo:
		client, db, err := database.InitMongo(ctx, &cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return &stores{
			events:  mongostore.NewEventRepository(db),
			tickets: mongostore.NewTicketRepository(db),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn("mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{events: store.Events(), tickets: store.Tickets(), close: func() {}}, nil
	}
}

func openQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.TicketEventQueue, error) {
	if cfg.Queue.Driver != "redis" || rdb == nil {
		return queue.NewMemoryQueue(cfg.Queue.BufferSize), nil
	}
	hostname, _ := os.Hostname()
	q, err := queue.NewRedisStreamQueue(ctx, rdb, hostname, queue.RedisStreamConfig{
		ClaimMinIdleTime: cfg.Queue.ClaimMinIdleTime,
		MaxRetryCount:    cfg.Queue.MaxRetryCount,
	})
	if err != nil {
		return nil, fmt.Errorf("init ticket event stream: %w", err)
	}
	return q, nil
}

func openPublisher(cfg *config.Config) (notifications.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return notifications.NewLogPublisher(), nil
	}
	p, err := notifications.NewKafkaPublisher(&cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return p, nil
}
