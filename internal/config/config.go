package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "ClientCore"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultMatchScoreMaxAge = 10 * time.Minute
	defaultCacheKeyPrefix   = "cache:v1"
	defaultRateLimit        = 30
	devJWTSecret            = "dev-secret-change-me"
)

// CacheConfig tunes the cached-first TTL cache.
type CacheConfig struct {
	KeyPrefix        string
	MatchScoreMaxAge time.Duration
}

// IdentityConfig tunes the identity state machine. A zero FetchTimeout means signal fetches are
// bounded only by the caller's context.
type IdentityConfig struct {
	FetchTimeout time.Duration
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int
	Cache              CacheConfig
	Identity           IdentityConfig
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		AppName:            defaultAppName,
		AppEnv:             defaultAppEnv,
		Port:               defaultPort,
		LogLevel:           defaultLogLevel,
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		RateLimitPerMinute: defaultRateLimit,
		Cache: CacheConfig{
			KeyPrefix:        defaultCacheKeyPrefix,
			MatchScoreMaxAge: defaultMatchScoreMaxAge,
		},
	}
}

// Merge returns base with every non-zero field of override applied on top. Neither argument is
// modified.
func Merge(base, override Config) Config {
	out := base
	out.AppName = pick(base.AppName, override.AppName)
	out.AppEnv = pick(base.AppEnv, override.AppEnv)
	out.Port = pick(base.Port, override.Port)
	out.LogLevel = pick(base.LogLevel, override.LogLevel)
	out.DatabaseURL = pick(base.DatabaseURL, override.DatabaseURL)
	out.RedisURL = pick(base.RedisURL, override.RedisURL)
	out.JWTSecret = pick(base.JWTSecret, override.JWTSecret)
	out.ShutdownPeriod = pick(base.ShutdownPeriod, override.ShutdownPeriod)
	out.IdempotencyTTL = pick(base.IdempotencyTTL, override.IdempotencyTTL)
	out.RateLimitPerMinute = pick(base.RateLimitPerMinute, override.RateLimitPerMinute)
	out.Cache = mergeCache(base.Cache, override.Cache)
	out.Identity = mergeIdentity(base.Identity, override.Identity)
	return out
}

func mergeCache(base, override CacheConfig) CacheConfig {
	return CacheConfig{
		KeyPrefix:        pick(base.KeyPrefix, override.KeyPrefix),
		MatchScoreMaxAge: pick(base.MatchScoreMaxAge, override.MatchScoreMaxAge),
	}
}

func mergeIdentity(base, override IdentityConfig) IdentityConfig {
	return IdentityConfig{FetchTimeout: pick(base.FetchTimeout, override.FetchTimeout)}
}

func pick[T comparable](base, override T) T {
	var zero T
	if override != zero {
		return override
	}
	return base
}

// Load reads an optional .env file, then environment variables, and merges them over Defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	env := Config{
		AppName:     os.Getenv("APP_NAME"),
		AppEnv:      os.Getenv("APP_ENV"),
		Port:        os.Getenv("PORT"),
		LogLevel:    strings.ToLower(os.Getenv("LOG_LEVEL")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	var err error
	if env.ShutdownPeriod, err = durationFromEnv("SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if env.IdempotencyTTL, err = durationFromEnv("IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL"); err != nil {
		return Config{}, err
	}
	if env.Cache.MatchScoreMaxAge, err = durationFromEnv("MATCH_SCORE_CACHE_SECONDS", "MATCH_SCORE_CACHE_MAX_AGE"); err != nil {
		return Config{}, err
	}
	if env.Identity.FetchTimeout, err = durationFromEnv("SIGNAL_FETCH_TIMEOUT_SECONDS", "SIGNAL_FETCH_TIMEOUT"); err != nil {
		return Config{}, err
	}
	env.Cache.KeyPrefix = os.Getenv("CACHE_KEY_PREFIX")
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
		}
		env.RateLimitPerMinute = n
	}

	cfg := Merge(Defaults(), env)
	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

// durationFromEnv prefers an integer seconds variable and falls back to a Go duration string.
// Both unset yields zero so Merge keeps the default.
func durationFromEnv(secondsKey, durationKey string) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return 0, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
