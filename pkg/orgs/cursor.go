package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// DefaultCursorKey is the Redis key holding the sweep cursor
const DefaultCursorKey = "gatehouse:sweep:cursor"

// CursorStore persists the sweep cursor so that a run interrupted in one
// process resumes in the next. uuid.Nil means "start from the beginning".
type CursorStore interface {
	LoadCursor(ctx context.Context) (uuid.UUID, error)
	SaveCursor(ctx context.Context, cursor uuid.UUID) error
}

// RedisCursorStore keeps the cursor in a single Redis key
type RedisCursorStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCursorStore creates a cursor store. A non-zero ttl lets an
// abandoned cursor expire so a later sweep starts over.
func NewRedisCursorStore(client *redis.Client, key string, ttl time.Duration) *RedisCursorStore {
	if key == "" {
		key = DefaultCursorKey
	}
	return &RedisCursorStore{client: client, key: key, ttl: ttl}
}

// LoadCursor returns the saved cursor, uuid.Nil when none is saved
func (s *RedisCursorStore) LoadCursor(ctx context.Context) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load sweep cursor: %w", storage.ClassifyContext(ctx, err))
	}
	cursor, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sweep cursor %q: %w", raw, err)
	}
	return cursor, nil
}

// SaveCursor stores cursor; uuid.Nil clears it
func (s *RedisCursorStore) SaveCursor(ctx context.Context, cursor uuid.UUID) error {
	var err error
	if cursor == uuid.Nil {
		err = s.client.Del(ctx, s.key).Err()
	} else {
		err = s.client.Set(ctx, s.key, cursor.String(), s.ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to save sweep cursor: %w", storage.ClassifyContext(ctx, err))
	}
	return nil
}
