package storage

import "time"

// Config holds storage configuration
type Config struct {
	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// StoreTimeout bounds every individual store call
	StoreTimeout time.Duration

	// Cache config
	FlagCacheEnabled bool
	FlagCacheTTL     time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		StoreTimeout:     3 * time.Second,
		FlagCacheEnabled: false,
		FlagCacheTTL:     30 * time.Second,
	}
}
