package orgcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

type stubFetcher struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (s *stubFetcher) Fetch(ctx context.Context, orgID uuid.UUID) (*Snapshot, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Snapshot{
		Organization: OrganizationSummary{ID: orgID, Name: "Maple Court", Type: "residential"},
		Membership:   MembershipSummary{Role: rbac.RoleResident},
		Permissions:  []rbac.Permission{rbac.PermAccessChat, rbac.PermViewMembers},
		FetchedAt:    time.Now(),
	}, nil
}

func TestCache_Get(t *testing.T) {
	fetcher := &stubFetcher{}
	cache := New(fetcher, 8, time.Minute, nil)
	orgID := uuid.New()

	snap, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, orgID, snap.Organization.ID)

	again, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	assert.Same(t, snap, again)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	peeked, ok := cache.Peek(orgID)
	assert.True(t, ok)
	assert.Same(t, snap, peeked)
}

func TestCache_Expiry(t *testing.T) {
	fetcher := &stubFetcher{}
	cache := New(fetcher, 8, 50*time.Millisecond, nil)
	orgID := uuid.New()

	_, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	_, ok := cache.Peek(orgID)
	assert.False(t, ok)
	_, err = cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCache_Refetch(t *testing.T) {
	fetcher := &stubFetcher{}
	cache := New(fetcher, 8, time.Minute, nil)
	orgID := uuid.New()

	first, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	second, err := cache.Refetch(context.Background(), orgID)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	current, _ := cache.Peek(orgID)
	assert.Same(t, second, current)
}

func TestCache_RefetchDropsOnAuthFailure(t *testing.T) {
	for _, failure := range []error{ErrNotAuthenticated, ErrAccessDenied} {
		t.Run(failure.Error(), func(t *testing.T) {
			fetcher := &stubFetcher{}
			cache := New(fetcher, 8, time.Minute, nil)
			orgID := uuid.New()

			_, err := cache.Get(context.Background(), orgID)
			require.NoError(t, err)

			fetcher.err = failure
			_, err = cache.Refetch(context.Background(), orgID)
			assert.ErrorIs(t, err, failure)

			_, ok := cache.Peek(orgID)
			assert.False(t, ok)
		})
	}
}

func TestCache_RefetchKeepsOnTransientFailure(t *testing.T) {
	fetcher := &stubFetcher{}
	cache := New(fetcher, 8, time.Minute, nil)
	orgID := uuid.New()

	_, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)

	fetcher.err = errors.New("connection reset")
	_, err = cache.Refetch(context.Background(), orgID)
	assert.Error(t, err)

	_, ok := cache.Peek(orgID)
	assert.True(t, ok)
}

func TestCache_ConcurrentMissesCoalesce(t *testing.T) {
	fetcher := &stubFetcher{delay: 50 * time.Millisecond}
	cache := New(fetcher, 8, time.Minute, nil)
	orgID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), orgID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, fetcher.calls.Load(), int32(10))
}

func TestCache_InvalidateAndClear(t *testing.T) {
	cache := New(&stubFetcher{}, 8, time.Minute, nil)
	a, b := uuid.New(), uuid.New()

	_, err := cache.Get(context.Background(), a)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	cache.Invalidate(a)
	assert.Equal(t, 1, cache.Len())

	cache.ClearCache()
	assert.Equal(t, 0, cache.Len())
}

// gatedFetcher blocks every fetch until release is closed
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFetcher) Fetch(ctx context.Context, orgID uuid.UUID) (*Snapshot, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Snapshot{
		Organization: OrganizationSummary{ID: orgID, Name: "Maple Court", Type: "residential"},
		Membership:   MembershipSummary{Role: rbac.RoleResident},
		FetchedAt:    time.Now(),
	}, nil
}

func TestCache_InvalidateDuringFetch(t *testing.T) {
	for name, drop := range map[string]func(c *Cache, orgID uuid.UUID){
		"invalidate": func(c *Cache, orgID uuid.UUID) { c.Invalidate(orgID) },
		"clear":      func(c *Cache, _ uuid.UUID) { c.ClearCache() },
	} {
		t.Run(name, func(t *testing.T) {
			fetcher := newGatedFetcher()
			cache := New(fetcher, 8, time.Minute, nil)
			orgID := uuid.New()

			done := make(chan error, 1)
			go func() {
				_, err := cache.Get(context.Background(), orgID)
				done <- err
			}()
			<-fetcher.started

			drop(cache, orgID)
			close(fetcher.release)
			require.NoError(t, <-done)

			_, ok := cache.Peek(orgID)
			assert.False(t, ok, "stale snapshot stored after %s", name)
			assert.Equal(t, 0, cache.Len())

			_, err := cache.Get(context.Background(), orgID)
			require.NoError(t, err)
			_, ok = cache.Peek(orgID)
			assert.True(t, ok)
			assert.Equal(t, int32(2), fetcher.calls.Load())
		})
	}
}

func TestCache_CancelledCallerLeavesFetchRunning(t *testing.T) {
	fetcher := newGatedFetcher()
	cache := New(fetcher, 8, time.Minute, nil)
	orgID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, orgID)
		first <- err
	}()
	<-fetcher.started

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	// the shared fetch outlives the caller that started it
	close(fetcher.release)
	require.Eventually(t, func() bool {
		_, ok := cache.Peek(orgID)
		return ok
	}, time.Second, 5*time.Millisecond)

	snap, err := cache.Get(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, orgID, snap.Organization.ID)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestSnapshot_Can(t *testing.T) {
	resident := &Snapshot{Membership: MembershipSummary{Role: rbac.RoleResident}}
	admin := &Snapshot{Membership: MembershipSummary{Role: rbac.RoleAdmin, IsAdmin: true}}
	var none *Snapshot

	assert.True(t, resident.Can(rbac.PermAccessChat))
	assert.False(t, resident.Can(rbac.PermManageMembers))
	assert.True(t, admin.Can(rbac.PermManageMembers))
	assert.False(t, none.Can(rbac.PermAccessChat))
}
