package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/storage"
)

// minSessionSecretLength matches the JWT resolver's minimum
const minSessionSecretLength = 32

// Config holds all application configuration
type Config struct {
	// Environment is "production" or "development"
	Environment string

	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Session token verification
	Session SessionConfig

	// Route guard configuration
	Guard GuardConfig

	// Freeze sweep configuration
	Sweep SweepConfig

	// API rate limiting
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server on its own port
	HealthPort string

	// PagesUpstream is the UI origin proxied behind the route guard.
	// Empty disables page routes.
	PagesUpstream string
}

// SessionConfig configures session token verification
type SessionConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	CookieName string
	Leeway     time.Duration
}

// GuardConfig holds route guard settings
type GuardConfig struct {
	LoginPath     string
	ReturnToParam string
	NotMemberPath string
	ForbiddenPath string
	FrozenPath    string
	FrozenPolicy  string

	// RoutesFile is an optional YAML route-policy file, watched for changes
	RoutesFile string
}

// SweepConfig holds freeze sweep settings
type SweepConfig struct {
	// Enabled runs the sweep inside the API process
	Enabled     bool
	Schedule    string
	PageSize    int
	Concurrency int
	RunTimeout  time.Duration
}

// RateLimitConfig holds API rate limit settings
type RateLimitConfig struct {
	// RequestsPerMinute of zero disables rate limiting
	RequestsPerMinute int
	// TrustProxyHeaders keys anonymous callers by X-Forwarded-For / X-Real-IP
	TrustProxyHeaders bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:   strings.ToLower(getEnv("GATEHOUSE_ENV", "production")),
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Session:       loadSessionConfig(),
		Guard:         loadGuardConfig(),
		Sweep:         loadSweepConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEHOUSE_HOST", "0.0.0.0"),
		Port:            getEnv("GATEHOUSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GATEHOUSE_HEALTH_PORT", "9090"),
		PagesUpstream:   getEnv("GATEHOUSE_PAGES_UPSTREAM", ""),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	if pgURL := getEnv("GATEHOUSE_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if replicaURLs := getEnv("GATEHOUSE_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = replicaURLs
	}
	if maxConns := getEnvInt("GATEHOUSE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("GATEHOUSE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("GATEHOUSE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}
	if timeout := getEnvDuration("GATEHOUSE_STORE_TIMEOUT", 0); timeout > 0 {
		cfg.StoreTimeout = timeout
	}

	// Redis config
	if redisURL := getEnv("GATEHOUSE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("GATEHOUSE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("GATEHOUSE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("GATEHOUSE_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("GATEHOUSE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// Flag cache config
	cfg.FlagCacheEnabled = getEnvBool("GATEHOUSE_FLAG_CACHE_ENABLED", cfg.FlagCacheEnabled)
	if ttl := getEnvDuration("GATEHOUSE_FLAG_CACHE_TTL", 0); ttl > 0 {
		cfg.FlagCacheTTL = ttl
	}

	return cfg
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Secret:     getEnv("GATEHOUSE_SESSION_SECRET", ""),
		Issuer:     getEnv("GATEHOUSE_SESSION_ISSUER", ""),
		Audience:   getEnv("GATEHOUSE_SESSION_AUDIENCE", ""),
		CookieName: getEnv("GATEHOUSE_SESSION_COOKIE", "session"),
		Leeway:     getEnvDuration("GATEHOUSE_SESSION_LEEWAY", 30*time.Second),
	}
}

func loadGuardConfig() GuardConfig {
	d := guard.DefaultConfig()
	return GuardConfig{
		LoginPath:     getEnv("GATEHOUSE_LOGIN_PATH", d.LoginPath),
		ReturnToParam: getEnv("GATEHOUSE_RETURN_TO_PARAM", d.ReturnToParam),
		NotMemberPath: getEnv("GATEHOUSE_NOT_MEMBER_PATH", d.NotMemberPath),
		ForbiddenPath: getEnv("GATEHOUSE_FORBIDDEN_PATH", d.ForbiddenPath),
		FrozenPath:    getEnv("GATEHOUSE_FROZEN_PATH", d.FrozenPath),
		FrozenPolicy:  getEnv("GATEHOUSE_FROZEN_POLICY", string(d.FrozenPolicy)),
		RoutesFile:    getEnv("GATEHOUSE_ROUTES_FILE", ""),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: getEnvInt("GATEHOUSE_RATE_LIMIT_PER_MINUTE", 0),
		TrustProxyHeaders: getEnvBool("GATEHOUSE_TRUST_PROXY_HEADERS", false),
	}
}

func loadSweepConfig() SweepConfig {
	return SweepConfig{
		Enabled:     getEnvBool("GATEHOUSE_SWEEP_ENABLED", false),
		Schedule:    getEnv("GATEHOUSE_SWEEP_SCHEDULE", "@every 15m"),
		PageSize:    getEnvInt("GATEHOUSE_SWEEP_PAGE_SIZE", 200),
		Concurrency: getEnvInt("GATEHOUSE_SWEEP_CONCURRENCY", 8),
		RunTimeout:  getEnvDuration("GATEHOUSE_SWEEP_RUN_TIMEOUT", 10*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("GATEHOUSE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("GATEHOUSE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GATEHOUSE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GATEHOUSE_OTEL_SERVICE_NAME", "gatehouse"),
		OTelServiceVersion: getEnv("GATEHOUSE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("GATEHOUSE_OTEL_INSECURE", true),
	}
}

// Development reports whether development-only behavior is enabled
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// GuardSettings converts the guard section into a guard.Config. Denial
// reasons are only exposed in development.
func (c *Config) GuardSettings() guard.Config {
	policy, _ := guard.ParseFrozenPolicy(c.Guard.FrozenPolicy)
	return guard.Config{
		LoginPath:     c.Guard.LoginPath,
		ReturnToParam: c.Guard.ReturnToParam,
		NotMemberPath: c.Guard.NotMemberPath,
		ForbiddenPath: c.Guard.ForbiddenPath,
		FrozenPath:    c.Guard.FrozenPath,
		Production:    !c.Development(),
		FrozenPolicy:  policy,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Environment {
	case "production", "development":
	default:
		return fmt.Errorf("invalid environment: %s (must be production or development)", c.Environment)
	}

	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.FlagCacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the flag cache is enabled")
	}

	if len(c.Session.Secret) < minSessionSecretLength {
		return fmt.Errorf("session secret must be at least %d bytes", minSessionSecretLength)
	}

	if _, err := guard.ParseFrozenPolicy(c.Guard.FrozenPolicy); err != nil {
		return err
	}
	for name, path := range map[string]string{
		"login path":      c.Guard.LoginPath,
		"not-member path": c.Guard.NotMemberPath,
		"forbidden path":  c.Guard.ForbiddenPath,
		"frozen path":     c.Guard.FrozenPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must be an absolute path, got %q", name, path)
		}
	}

	if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.Sweep.Schedule, err)
	}
	if c.Sweep.PageSize <= 0 || c.Sweep.Concurrency <= 0 {
		return fmt.Errorf("sweep page size and concurrency must be positive")
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
