// Package config loads gatehouse configuration from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	GATEHOUSE_ENV="production"  # production, development
//	GATEHOUSE_HOST="0.0.0.0"
//	GATEHOUSE_PORT="8080"
//	GATEHOUSE_HEALTH_PORT="9090"
//	GATEHOUSE_PAGES_UPSTREAM="http://ui:3000"
//
// Storage settings:
//
//	GATEHOUSE_POSTGRES_URL="postgres://localhost/gatehouse"
//	GATEHOUSE_POSTGRES_REPLICA_URLS="postgres://replica1/gatehouse"
//	GATEHOUSE_STORE_TIMEOUT="3s"
//	GATEHOUSE_REDIS_URL="redis://localhost:6379"
//	GATEHOUSE_FLAG_CACHE_ENABLED="true"
//	GATEHOUSE_FLAG_CACHE_TTL="30s"
//
// Sessions and the route guard:
//
//	GATEHOUSE_SESSION_SECRET="..."  # at least 32 bytes
//	GATEHOUSE_LOGIN_PATH="/login"
//	GATEHOUSE_FROZEN_POLICY="all"  # all, seats
//	GATEHOUSE_ROUTES_FILE="/etc/gatehouse/routes.yaml"
//
// Freeze sweep and rate limiting:
//
//	GATEHOUSE_SWEEP_ENABLED="true"
//	GATEHOUSE_SWEEP_SCHEDULE="@every 15m"
//	GATEHOUSE_RATE_LIMIT_PER_MINUTE="120"  # 0 disables
//
// Observability settings:
//
//	GATEHOUSE_LOG_LEVEL="info"  # debug, info, warn, error
//	GATEHOUSE_METRICS_ENABLED="true"
//	GATEHOUSE_OTEL_ENABLED="true"
//	GATEHOUSE_OTEL_ENDPOINT="otel-collector:4317"
package config
