package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	loadDotenv()

	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	routes, err := ratelimit.ParseRouteClasses(cfg.routeClasses)
	if err != nil {
		return fmt.Errorf("invalid RATE_ROUTE_CLASSES: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	local := infra.NewLocalStore(infra.WithCleanupEvery(cfg.sweepEvery))
	local.StartJanitor(ctx)

	var store domain.CounterStore = local
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		// redis fora no boot não impede a subida: o failover segura no local
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, starting on local store", "addr", cfg.redisAddr, "error", err)
		}
		pingCancel()

		store = infra.NewFailoverStore(
			infra.NewRedisStore(rdb, infra.WithRedisPrefix(cfg.redisPrefix)),
			local,
			infra.WithPrimaryTimeout(cfg.redisTimeout),
			infra.WithFailoverCooldown(cfg.cooldown),
			infra.WithFailoverLogger(logger),
		)
	}

	stats, err := buildStats(cfg)
	if err != nil {
		return err
	}

	h := http.Handler(proxy)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
		Metrics:        metricsRegisterer(cfg),
		Logger:         logger,
	})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Store:      store,
		Registry:   registry,
		Stats:      stats,
		ClassFn:    ratelimit.PrefixClassifier(routes),
		UserHeader: cfg.userHeader,
		TierHeader: cfg.tierHeader,
		Bypass:     cfg.bypass,
		Logger:     logger,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	servers := []*http.Server{srv}

	if cfg.adminAddr != "" {
		admin := &http.Server{
			Addr:              cfg.adminAddr,
			Handler:           adminRouter(cfg, application.AdminService{Registry: registry, Store: store}, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, admin)
		go func() {
			logger.Info("admin listening", "addr", cfg.adminAddr, "metrics", cfg.metricsEnabled)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	logger.Info("gateway listening", "addr", cfg.listenAddr, "upstream", target.String())
	logger.Info("rate limit",
		"env", cfg.appEnv,
		"bypass", cfg.bypass,
		"tiered", registry.Tiered(),
		"classes", registry.Classes(),
		"routes", cfg.routeClasses,
		"redis", cfg.redisAddr != "",
	)
	logger.Info("rate stats", "redis", cfg.rateStatsEnabled, "bucket", cfg.rateStatsBucket, "ttl", cfg.rateStatsTTL, "metrics", cfg.metricsEnabled)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func buildRegistry(cfg config) (*application.Registry, error) {
	set := domain.DefaultPolicySet()
	if cfg.policyFile != "" {
		loaded, err := infra.LoadPolicyFile(cfg.policyFile)
		if err != nil {
			return nil, fmt.Errorf("load RATE_POLICY_FILE: %w", err)
		}
		set = loaded
	}
	return application.NewRegistry(set, application.WithTiers(cfg.tiered)), nil
}

func buildStats(cfg config) (domain.StatsStore, error) {
	var multi infra.MultiStats
	if cfg.metricsEnabled {
		prom, err := infra.NewPrometheusStatsStore(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		multi = append(multi, prom)
	}
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		multi = append(multi, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackIdentities(cfg.rateStatsTrackIDs),
		))
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

func metricsRegisterer(cfg config) prometheus.Registerer {
	if !cfg.metricsEnabled {
		return nil
	}
	return prometheus.DefaultRegisterer
}

func adminRouter(cfg config, admin application.AdminService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Mount("/ratelimit", ratelimit.AdminHandler(admin, logger))
	if cfg.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
