// Package storage holds the connection settings and failure classification
// shared by every store backing the access-control core.
//
// Stores are allowed to fail in exactly two ways: a domain answer such as
// "not found", or ErrUpstreamUnavailable when the backing system could not
// be reached in time. Classify maps driver, network and deadline errors to
// the latter so callers can branch with errors.Is without knowing which
// driver produced the failure.
//
// Every store call is bounded with WithTimeout:
//
//	ctx, cancel := storage.WithTimeout(ctx, cfg.StoreTimeout)
//	defer cancel()
//	row := db.QueryRowContext(ctx, query, orgID)
//	if err := row.Scan(&org.ID); err != nil {
//		return nil, fmt.Errorf("failed to get organization: %w", storage.Classify(err))
//	}
//
// The postgres subpackage opens the PostgreSQL pool and the Redis client.
package storage
