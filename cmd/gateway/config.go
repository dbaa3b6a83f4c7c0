package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultRouteClasses = "/api/descriptions=description,/api/vocabulary=vocabulary,/api/auth=auth"

type config struct {
	listenAddr  string
	adminAddr   string
	upstreamURL string
	appEnv      string
	logLevel    slog.Level

	bypass       bool
	policyFile   string
	tiered       bool
	routeClasses string
	userHeader   string
	tierHeader   string

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	redisTimeout  time.Duration
	cooldown      time.Duration
	sweepEvery    time.Duration

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackIDs      bool
	metricsEnabled         bool

	concurrencyMax     int
	concurrencyTimeout time.Duration
}

// loadDotenv carrega .env se existir; variáveis já exportadas vencem.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.adminAddr = os.Getenv("ADMIN_ADDR")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.appEnv = strings.ToLower(getenvDefault("APP_ENV", "development"))

	cfg.bypass = getenvBoolDefault("RATE_LIMIT_BYPASS", false)
	cfg.policyFile = os.Getenv("RATE_POLICY_FILE")
	// o tier vem de header: só ligue atrás de uma camada de auth que
	// sobrescreve RATE_TIER_HEADER (o cliente não pode escolher o próprio plano)
	cfg.tiered = getenvBoolDefault("TIERED_LIMITS_ENABLED", false)
	cfg.routeClasses = getenvDefault("RATE_ROUTE_CLASSES", defaultRouteClasses)
	cfg.userHeader = getenvDefault("RATE_USER_HEADER", "X-User-ID")
	cfg.tierHeader = getenvDefault("RATE_TIER_HEADER", "X-User-Tier")

	cfg.redisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.redisPrefix = getenvDefault("REDIS_PREFIX", "ratelimit")
	cfg.redisTimeout = getenvDurationDefault("REDIS_TIMEOUT", 250*time.Millisecond)
	cfg.cooldown = getenvDurationDefault("FAILOVER_COOLDOWN", 5*time.Second)
	cfg.sweepEvery = getenvDurationDefault("LOCAL_SWEEP_EVERY", time.Minute)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	// sem endereço próprio, as estatísticas vão para o mesmo redis dos contadores
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", cfg.redisAddr)
	cfg.rateStatsRedisPassword = getenvDefault("RATE_STATS_REDIS_PASSWORD", cfg.redisPassword)
	cfg.rateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", cfg.redisDB)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackIDs = getenvBoolDefault("RATE_STATS_TRACK_IDENTITIES", false)
	cfg.metricsEnabled = getenvBoolDefault("METRICS_ENABLED", true)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	level, err := parseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return config{}, err
	}
	cfg.logLevel = level

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.bypass && cfg.appEnv == "production" {
		return config{}, errors.New("RATE_LIMIT_BYPASS is not allowed when APP_ENV=production")
	}
	if cfg.rateStatsEnabled && cfg.rateStatsRedisAddr == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR (or REDIS_ADDR) is required when RATE_STATS_ENABLED=true")
	}
	if cfg.redisTimeout <= 0 {
		return config{}, errors.New("REDIS_TIMEOUT must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return l, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
