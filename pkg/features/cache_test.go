package features

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, next Evaluator) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, next, 30*time.Second, nil, nil), mr
}

func TestRedisCache_Flags(t *testing.T) {
	calls := 0
	next := EvaluatorFunc(func(ctx context.Context, id uuid.UUID) ([]Flag, error) {
		calls++
		return []Flag{{Name: "visitor_passes", Enabled: true}}, nil
	})
	cache, mr := newTestCache(t, next)
	ctx := context.Background()
	userID := uuid.New()

	flags, err := cache.Flags(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []Flag{{Name: "visitor_passes", Enabled: true}}, flags)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("flags:user:"+userID.String()))

	flags, err = cache.Flags(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []Flag{{Name: "visitor_passes", Enabled: true}}, flags)
	assert.Equal(t, 1, calls)

	mr.FastForward(31 * time.Second)
	_, err = cache.Flags(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	require.NoError(t, cache.Invalidate(ctx, userID))
	assert.False(t, mr.Exists("flags:user:"+userID.String()))
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	next := EvaluatorFunc(func(ctx context.Context, id uuid.UUID) ([]Flag, error) {
		return []Flag{{Name: "visitor_passes", Enabled: true}}, nil
	})
	cache, mr := newTestCache(t, next)
	userID := uuid.New()
	require.NoError(t, mr.Set("flags:user:"+userID.String(), "{not json"))

	flags, err := cache.Flags(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []Flag{{Name: "visitor_passes", Enabled: true}}, flags)
}

func TestRedisCache_RedisDown(t *testing.T) {
	next := EvaluatorFunc(func(ctx context.Context, id uuid.UUID) ([]Flag, error) {
		return []Flag{{Name: "visitor_passes", Enabled: true}}, nil
	})
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	cache := NewRedisCache(client, next, time.Minute, nil, nil)
	mr.Close()

	flags, err := cache.Flags(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, flags, 1)
}

func TestRedisCache_EvaluatorError(t *testing.T) {
	next := EvaluatorFunc(func(ctx context.Context, id uuid.UUID) ([]Flag, error) {
		return nil, errors.New("down")
	})
	cache, mr := newTestCache(t, next)
	userID := uuid.New()

	_, err := cache.Flags(context.Background(), userID)
	assert.Error(t, err)
	assert.False(t, mr.Exists("flags:user:"+userID.String()))
}
