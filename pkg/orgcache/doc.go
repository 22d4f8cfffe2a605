// Package orgcache keeps the last resolved organization context on the
// client side: organization summary, the caller's membership, the
// permissions it grants and the server's verdict for each gated route.
//
// Snapshots are for UI gating only. The server re-checks every request
// through the route guard, so a stale snapshot can at worst show a control
// that the server then refuses.
//
//	fetcher := orgcache.NewHTTPFetcher("https://app.example.com", orgcache.WithToken(token))
//	cache := orgcache.New(fetcher, 64, time.Minute, nil)
//	snap, err := cache.Get(ctx, orgID)
//	if err == nil && snap.CanMutate("/api/seats/add") {
//		// show the "add seat" button
//	}
package orgcache
