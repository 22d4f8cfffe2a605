package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/gatehouse/pkg/api"
	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/features"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/middleware"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/orgs"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

func main() {
	migrate := flag.Bool("migrate", false, "Apply database migrations before serving")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.StartTelemetry(ctx, observability.TelemetryConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    1,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to start telemetry export")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		if telemetry != nil {
			otelMetrics, err := observability.NewOTelMetrics()
			if err != nil {
				logger.WithError(err).Warn("OpenTelemetry metrics unavailable")
			} else {
				metrics.AttachOTel(otelMetrics)
			}
		}
	}

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg.Storage), logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to PostgreSQL")
		os.Exit(1)
	}
	if *migrate {
		if err := postgres.Migrate(ctx, cm.Primary()); err != nil {
			logger.WithError(err).Error("Failed to apply migrations")
			os.Exit(1)
		}
		logger.Info("Database migrations applied")
	}
	cm.StartHealthCheckRoutine(ctx, 30*time.Second)

	var redisClient *redis.Client
	var redisCloser func() error
	if cfg.Storage.RedisURL != "" {
		rc, err := postgres.OpenRedis(ctx, cfg.Storage)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without flag cache and shared rate limits")
		} else {
			redisClient = rc
			redisCloser = rc.Close
		}
	}

	timeout := cfg.Storage.StoreTimeout

	// memberships and frozen flags gate writes, so they are read from the
	// primary; flags tolerate replica lag
	identities := auth.NewPostgresIdentityStore(cm.Primary(), timeout)
	orgStore := orgs.NewPostgresStore(cm.Primary(), timeout)
	seats := orgs.NewSeatManager(orgStore,
		orgs.WithTimeout(timeout),
		orgs.WithLogger(logger),
		orgs.WithMetrics(metrics),
	)

	var evaluator features.Evaluator = features.NewPostgresEvaluator(cm.Replica(), timeout)
	if cfg.Storage.FlagCacheEnabled && redisClient != nil {
		evaluator = features.NewRedisCache(redisClient, evaluator, cfg.Storage.FlagCacheTTL, logger, metrics)
	}
	flags := features.NewResolver(evaluator,
		features.WithResolverTimeout(timeout),
		features.WithResolverLogger(logger),
		features.WithResolverMetrics(metrics),
	)

	var routes guard.RouteSource = guard.DefaultRouteTable()
	var watcher *guard.RouteWatcher
	if cfg.Guard.RoutesFile != "" {
		watcher, err = guard.WatchRouteTable(cfg.Guard.RoutesFile, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to load route policy file")
			os.Exit(1)
		}
		go watcher.Run(ctx)
		routes = watcher
	}
	g := guard.New(routes, identities, seats, cfg.GuardSettings(),
		guard.WithLogger(logger),
		guard.WithMetrics(metrics),
	)

	sessions, err := auth.NewJWTSessionResolver(auth.JWTConfig{
		Secret:     cfg.Session.Secret,
		Issuer:     cfg.Session.Issuer,
		Audience:   cfg.Session.Audience,
		CookieName: cfg.Session.CookieName,
		Leeway:     cfg.Session.Leeway,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to configure session verification")
		os.Exit(1)
	}

	rateConfig := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
		WindowDuration:    time.Minute,
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
	}
	var limiter middleware.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, rateConfig, "gatehouse:ratelimit")
		} else {
			local := middleware.NewLocalLimiter(rateConfig)
			local.StartCleanup(ctx)
			limiter = local
		}
	}

	var pages http.Handler
	if cfg.Server.PagesUpstream != "" {
		upstream, err := url.Parse(cfg.Server.PagesUpstream)
		if err != nil {
			logger.WithError(err).Error("Invalid pages upstream")
			os.Exit(1)
		}
		pages = stdhttputil.NewSingleHostReverseProxy(upstream)
	}

	server := api.NewServer(api.Dependencies{
		Guard:       g,
		Seats:       seats,
		Flags:       flags,
		Sessions:    sessions,
		Limiter:     limiter,
		RateLimit:   rateConfig,
		Pages:       pages,
		Development: cfg.Development(),
		Logger:      logger,
		Metrics:     metrics,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(server, "gatehouse"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	checker := observability.NewHealthChecker(cm.Primary(), redisClient)
	observability.RegisterHealthRoutes(opsMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(opsMux, registry)
		go recordPoolStats(ctx, checker, metrics)
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)

	if cfg.Sweep.Enabled {
		sweepConfig := orgs.SweeperConfig{
			PageSize:    cfg.Sweep.PageSize,
			Concurrency: cfg.Sweep.Concurrency,
		}
		if redisClient != nil {
			sweepConfig.Cursors = orgs.NewRedisCursorStore(redisClient, orgs.DefaultCursorKey, 24*time.Hour)
		}
		sweeper := orgs.NewSweeper(orgStore, seats, sweepConfig, logger, metrics)
		scheduler, err := orgs.NewSweepScheduler(sweeper, cfg.Sweep.Schedule, cfg.Sweep.RunTimeout, cron.PrintfLogger(logger))
		if err != nil {
			logger.WithError(err).Error("Failed to schedule freeze sweep")
			os.Exit(1)
		}
		scheduler.Start()
		shutdown.RegisterShutdownFunc(scheduler.Stop)
		logger.WithField("schedule", cfg.Sweep.Schedule).Info("Freeze sweep scheduled")
	}

	if watcher != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return watcher.Close() })
	}
	if redisCloser != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisCloser() })
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return cm.Close() })
	shutdown.RegisterShutdownFunc(telemetry.Shutdown)

	for _, srv := range []*http.Server{apiServer, opsServer} {
		go func(srv *http.Server) {
			logger.WithField("addr", srv.Addr).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).WithField("addr", srv.Addr).Error("HTTP server failed")
				cancel()
			}
		}(srv)
	}

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info("Gatehouse stopped")
}

func recordPoolStats(ctx context.Context, checker *observability.HealthChecker, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			checker.RecordPoolStats(metrics)
		case <-ctx.Done():
			return
		}
	}
}
