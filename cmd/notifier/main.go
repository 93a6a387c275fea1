package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/config"
	"github.com/example/stock-ledger/internal/email"
	"github.com/example/stock-ledger/internal/infrastructure/kafka"
	"github.com/example/stock-ledger/internal/infrastructure/store/postgres"
	"github.com/example/stock-ledger/internal/logger"
	"github.com/example/stock-ledger/internal/notification"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Stock alert notifier starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.String("smtp_host", cfg.SMTP.Host),
		zap.Int("smtp_port", cfg.SMTP.Port),
		zap.Strings("recipients", cfg.SMTP.To),
	)

	// The per location breakdown needs the shared database; with the memory
	// driver the emails carry totals only.
	var stocks notification.StockReader
	if cfg.StoreDriver == config.StoreDriverPostgres {
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to PostgreSQL", zap.Error(err))
		}
		st := postgres.New(db)
		defer st.Close()
		stocks = st.Stocks()
		appLogger.Info("Connected to PostgreSQL", zap.String("db_name", cfg.Postgres.DBName))
	}

	handler := notification.NewHandler(email.NewService(cfg.SMTP), stocks, appLogger.Named("notification"))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, appLogger.Named("kafka"))
	defer consumer.Close()

	appLogger.Info("Listening for alert events")
	err = consumer.Consume(ctx, kafka.DecodeEvents(handler.HandleEvent, notification.EventTypes()...))
	if err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Consumer stopped", zap.Error(err))
	}
	appLogger.Info("Shutting down...")
}
