package guard

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
)

// verdictCache memoizes verdicts for the lifetime of one request
type verdictCache struct {
	mu       sync.Mutex
	verdicts map[string]*Verdict
}

// WithRequestCache returns a context that memoizes guard verdicts. Use it
// once per incoming request; repeated checks for the same user,
// organization and route then hit the store once.
func WithRequestCache(ctx context.Context) context.Context {
	if verdictCacheFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.VerdictCacheKey, &verdictCache{verdicts: make(map[string]*Verdict)})
}

func verdictCacheFrom(ctx context.Context) *verdictCache {
	c, _ := ctx.Value(contextkeys.VerdictCacheKey).(*verdictCache)
	return c
}

// cacheKey includes the requested route as well as the matched policy:
// sub-paths sharing a policy still produce different verdicts.
func cacheKey(req Request, route string, policy RoutePolicy, known bool) string {
	user := "anonymous"
	if req.UserID != nil {
		user = req.UserID.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%t|%+v", user, req.OrganizationID, route, req.ReturnTo, known, policy)
}

func (c *verdictCache) get(key string) (*Verdict, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.verdicts[key]
	return v, ok
}

func (c *verdictCache) put(key string, v *Verdict) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verdicts[key] = v
	c.mu.Unlock()
}
