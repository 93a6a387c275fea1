package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/api"
	"github.com/example/stock-ledger/internal/command"
	"github.com/example/stock-ledger/internal/config"
	"github.com/example/stock-ledger/internal/infrastructure/kafka"
	"github.com/example/stock-ledger/internal/infrastructure/lock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
	"github.com/example/stock-ledger/internal/infrastructure/store/memory"
	"github.com/example/stock-ledger/internal/infrastructure/store/postgres"
	"github.com/example/stock-ledger/internal/logger"
	"github.com/example/stock-ledger/internal/platform/observability"
	"github.com/example/stock-ledger/internal/query"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// 2. Logger
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// 3. Tracing
	shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg.Otel)
	if err != nil {
		appLogger.Fatal("Could not set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	// 4. Store
	st, err := openStore(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Could not open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.Close()
	appLogger.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	opts := []command.Option{
		command.WithDefaultHold(cfg.Reservation.DefaultHold),
		command.WithSettleBatch(cfg.Reservation.SettleBatch),
	}

	// 5. Stock locks
	if cfg.LockDriver == config.LockDriverRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		opts = append(opts, command.WithLocker(lock.NewRedis(redisClient, lock.RedisConfig{
			TTL:        cfg.Redis.LockTTL,
			Retries:    cfg.Redis.LockRetry,
			RetryDelay: cfg.Redis.RetryDelay,
		}, appLogger)))
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 6. Event publishing
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, appLogger)
		defer producer.Close()
		opts = append(opts, command.WithPublisher(producer))
		appLogger.Info("Publishing events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// 7. Handlers
	cmdHandler := command.NewHandler(st, appLogger.Named("command"), opts...)
	queryHandler := query.NewHandler(st, appLogger.Named("query"), nil)
	router := api.NewRouter(api.NewHandlers(cmdHandler, queryHandler, appLogger), appLogger.Named("http"))

	// 8. HTTP server
	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	go func() {
		appLogger.Info("HTTP server started", zap.String("addr", cfg.Server.HTTPAddr), zap.String("env", cfg.Server.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return memory.New(), nil
	}
	db, err := postgres.Connect(ctx, cfg.Postgres.DSN(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	return postgres.New(db), nil
}
