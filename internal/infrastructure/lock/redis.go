package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only if this holder still owns the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig tunes the lock. TTL bounds how long a crashed holder blocks
// others; a live holder renews its keys every TTL/3 until it unlocks.
type RedisConfig struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Redis is a distributed lock built on SET NX PX.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger *zap.Logger
}

func NewRedis(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	value := uuid.New().String()

	for attempt := 0; attempt < r.cfg.Retries; attempt++ {
		ok, err := r.client.SetNX(ctx, key, value, r.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			stop := r.keepAlive(key, value)
			return func() {
				stop()
				r.release(key, value)
			}, nil
		}

		select {
		case <-time.After(r.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, ErrBusy
}

// release runs detached from the request context so a cancelled request
// still frees its lock.
func (r *Redis) release(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{key}, value).Err(); err != nil {
		r.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
	}
}

// keepAlive renews the key while the holder works. It gives up once the key
// is no longer ours, which means the TTL ran out before a renewal landed.
func (r *Redis) keepAlive(key, value string) func() {
	return renewEvery(r.cfg.TTL/3, func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, r.client, []string{key}, value, r.cfg.TTL.Milliseconds()).Int()
		if err != nil {
			return false, err
		}
		return n == 1, nil
	}, func(err error) {
		if err != nil {
			r.logger.Warn("failed to extend lock", zap.String("key", key), zap.Error(err))
			return
		}
		r.logger.Warn("lock expired while held", zap.String("key", key))
	})
}

// renewEvery calls extend on every tick until the returned stop is called
// or extend reports the lock is gone. Transient errors are reported and the
// next tick tries again. stop waits for the loop to exit.
func renewEvery(interval time.Duration, extend func(ctx context.Context) (bool, error), report func(err error)) func() {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			callCtx, callCancel := context.WithTimeout(ctx, interval)
			ok, err := extend(callCtx)
			callCancel()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				report(err)
				continue
			}
			if !ok {
				report(nil)
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
