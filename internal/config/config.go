package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "stock-ledger"
	ServiceVersion = "0.1.0"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	LockDriverLocal     = "local"
	LockDriverRedis     = "redis"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Reservation ReservationConfig
	Otel        OtelConfig
	SMTP        SMTPConfig
	StoreDriver string
	LockDriver  string
}

type ServerConfig struct {
	AppEnv          string
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	LockTTL    time.Duration
	LockRetry  int
	RetryDelay time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type ReservationConfig struct {
	DefaultHold time.Duration
	SettleBatch int
}

type OtelConfig struct {
	Enabled    bool
	Endpoint   string
	URLPath    string
	AuthHeader string
	Insecure   bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "stock"),
			Password:        getEnv("POSTGRES_PASSWORD", "stock"),
			DBName:          getEnv("POSTGRES_DB", "stock_ledger"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			LockTTL:    getEnvDuration("REDIS_LOCK_TTL", 5*time.Second),
			LockRetry:  getEnvInt("REDIS_LOCK_RETRIES", 3),
			RetryDelay: getEnvDuration("REDIS_LOCK_RETRY_DELAY", 100*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "stock-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "stock-notifier"),
		},
		Reservation: ReservationConfig{
			DefaultHold: getEnvDuration("RESERVATION_DEFAULT_HOLD", 30*time.Minute),
			SettleBatch: getEnvInt("RESERVATION_SETTLE_BATCH", 100),
		},
		Otel: OtelConfig{
			Enabled:    getEnvBool("OTEL_ENABLED", false),
			Endpoint:   getEnv("OTEL_ENDPOINT", "localhost:4318"),
			URLPath:    getEnv("OTEL_TRACES_PATH", "/v1/traces"),
			AuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
			Insecure:   getEnvBool("OTEL_INSECURE", true),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "stock-alerts@example.com"),
			To:       getEnvSlice("ALERT_RECIPIENTS", []string{"buyers@example.com"}),
		},
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverMemory),
		LockDriver:  getEnv("LOCK_DRIVER", LockDriverLocal),
	}
}

// Validate rejects unknown drivers.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.LockDriver {
	case LockDriverLocal, LockDriverRedis:
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
