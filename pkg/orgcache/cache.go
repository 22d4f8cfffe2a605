package orgcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

const (
	cacheName = "org_context"
	// fetchTimeout bounds a shared fetch once it no longer follows any
	// single caller's context
	fetchTimeout = 30 * time.Second
)

var (
	// ErrNotAuthenticated means the session is missing or expired
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAccessDenied means the caller may not see the organization
	ErrAccessDenied = errors.New("access denied")
)

// Fetcher loads a fresh snapshot
type Fetcher interface {
	Fetch(ctx context.Context, organizationID uuid.UUID) (*Snapshot, error)
}

// Cache holds snapshots keyed by organization id. Concurrent misses for
// the same organization share one fetch.
//
// Invalidate and ClearCache win over fetches already in flight: a fetch
// started before them returns its snapshot to its callers but does not
// store it.
type Cache struct {
	entries *expirable.LRU[uuid.UUID, *Snapshot]
	fetcher Fetcher
	group   singleflight.Group
	metrics *observability.Metrics

	mu    sync.Mutex
	epoch uint64
	gens  map[uuid.UUID]uint64
}

// generation identifies the cache state a fetch started from
type generation struct {
	epoch uint64
	gen   uint64
}

// New creates a Cache holding up to size snapshots for ttl each
func New(fetcher Fetcher, size int, ttl time.Duration, metrics *observability.Metrics) *Cache {
	if size <= 0 {
		size = 64
	}
	return &Cache{
		entries: expirable.NewLRU[uuid.UUID, *Snapshot](size, nil, ttl),
		fetcher: fetcher,
		metrics: metrics,
		gens:    make(map[uuid.UUID]uint64),
	}
}

func (c *Cache) generation(organizationID uuid.UUID) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, gen: c.gens[organizationID]}
}

// store adds snap unless the entry was invalidated since from was taken
func (c *Cache) store(organizationID uuid.UUID, from generation, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != from.epoch || c.gens[organizationID] != from.gen {
		return
	}
	c.entries.Add(organizationID, snap)
}

// Get returns the cached snapshot or fetches one
func (c *Cache) Get(ctx context.Context, organizationID uuid.UUID) (*Snapshot, error) {
	if snap, ok := c.entries.Get(organizationID); ok {
		c.metrics.RecordCacheLookup(cacheName, true)
		return snap, nil
	}
	c.metrics.RecordCacheLookup(cacheName, false)
	return c.Refetch(ctx, organizationID)
}

// Peek returns the cached snapshot without fetching or touching recency
func (c *Cache) Peek(organizationID uuid.UUID) (*Snapshot, bool) {
	return c.entries.Peek(organizationID)
}

// Refetch loads a fresh snapshot and replaces the cached one. An
// authentication or access failure drops the cached entry; other failures
// leave it in place.
//
// Callers joining a shared fetch each stop waiting when their own ctx
// ends; the fetch itself carries on for the remaining callers.
func (c *Cache) Refetch(ctx context.Context, organizationID uuid.UUID) (*Snapshot, error) {
	from := c.generation(organizationID)
	key := fmt.Sprintf("%s/%d/%d", organizationID, from.epoch, from.gen)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		snap, err := c.fetcher.Fetch(fetchCtx, organizationID)
		if err != nil {
			if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrAccessDenied) {
				c.entries.Remove(organizationID)
			}
			return nil, err
		}
		c.store(organizationID, from, snap)
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops one organization's snapshot, including one being
// fetched right now
func (c *Cache) Invalidate(organizationID uuid.UUID) {
	c.mu.Lock()
	c.gens[organizationID]++
	c.entries.Remove(organizationID)
	c.mu.Unlock()
}

// ClearCache drops every snapshot, e.g. on sign-out
func (c *Cache) ClearCache() {
	c.mu.Lock()
	c.epoch++
	c.gens = make(map[uuid.UUID]uint64)
	c.entries.Purge()
	c.mu.Unlock()
}

// Len returns the number of cached snapshots
func (c *Cache) Len() int {
	return c.entries.Len()
}
