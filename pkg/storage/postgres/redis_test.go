package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := storage.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RedisDB = 2

	client, err := OpenRedis(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, 10, client.Options().PoolSize)
	assert.Equal(t, 3*time.Second, client.Options().ReadTimeout)
}

func TestRedisOptions(t *testing.T) {
	t.Run("database from URL kept", func(t *testing.T) {
		opts, err := redisOptions(storage.Config{RedisURL: "redis://localhost:6379/4", RedisDB: -1})
		require.NoError(t, err)
		assert.Equal(t, 4, opts.DB)
		assert.Equal(t, 3*time.Second, opts.WriteTimeout)
	})

	t.Run("store timeout applied", func(t *testing.T) {
		opts, err := redisOptions(storage.Config{
			RedisURL:      "redis://localhost:6379/4",
			RedisPassword: "hunter2",
			StoreTimeout:  750 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, opts.DB)
		assert.Equal(t, "hunter2", opts.Password)
		assert.Equal(t, 750*time.Millisecond, opts.ReadTimeout)
		assert.Equal(t, 1750*time.Millisecond, opts.PoolTimeout)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := redisOptions(storage.Config{RedisURL: "http://not-redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redis URL")
	})
}

func TestOpenRedis_ConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = OpenRedis(context.Background(), storage.Config{RedisURL: "redis://" + addr})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUpstreamUnavailable)
}
