package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

const redisDialTimeout = 5 * time.Second

// redisOptions layers config over the settings carried in RedisURL. A
// negative RedisDB keeps the database named in the URL. Reads and writes
// share the store timeout so a slow Redis never outlasts the call that
// consults it.
func redisOptions(config storage.Config) (*redis.Options, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	ioTimeout := config.StoreTimeout
	if ioTimeout <= 0 {
		ioTimeout = 3 * time.Second
	}
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout
	opts.PoolTimeout = ioTimeout + time.Second
	return opts, nil
}

// OpenRedis connects to the Redis backing the flag cache, the shared rate
// limiter and the sweep cursor, and checks it answers before returning
func OpenRedis(ctx context.Context, config storage.Config) (*redis.Client, error) {
	opts, err := redisOptions(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, storage.ClassifyContext(pingCtx, err))
	}
	return client, nil
}
