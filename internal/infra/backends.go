package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ghlove/clientcore/internal/capability"
)

// Backends records which external stores were reachable at startup.
type Backends struct {
	Postgres capability.Capability[*pgxpool.Pool]
	Redis    capability.Capability[*redis.Client]
}

// Detect probes each configured backend once, bounding every probe by timeout.
func Detect(ctx context.Context, databaseURL, redisURL string, timeout time.Duration) Backends {
	probeCtx := func() (context.Context, context.CancelFunc) {
		if timeout <= 0 {
			return context.WithCancel(ctx)
		}
		return context.WithTimeout(ctx, timeout)
	}

	pgCtx, cancel := probeCtx()
	defer cancel()
	pg := capability.Probe(pgCtx, "postgres", databaseURL, connectPostgres)

	redisCtx, cancelRedis := probeCtx()
	defer cancelRedis()
	rc := capability.Probe(redisCtx, "redis", redisURL, connectRedis)

	return Backends{Postgres: pg, Redis: rc}
}

// Require fails when a backend is missing and in-memory fallbacks are not allowed.
func (b Backends) Require(allowFallback bool) error {
	if allowFallback {
		return nil
	}
	var errs []error
	if !b.Postgres.Available() {
		errs = append(errs, fmt.Errorf("postgres required: %s", b.Postgres.Reason()))
	}
	if !b.Redis.Available() {
		errs = append(errs, fmt.Errorf("redis required: %s", b.Redis.Reason()))
	}
	return errors.Join(errs...)
}

// Close releases every available backend.
func (b Backends) Close() error {
	if pool, ok := b.Postgres.Get(); ok {
		pool.Close()
	}
	if client, ok := b.Redis.Get(); ok {
		return client.Close()
	}
	return nil
}
