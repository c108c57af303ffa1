// Package cache renders something instantly and refreshes in the background: a versioned TTL
// envelope over the shared KV store. Every failure mode degrades to a cache miss.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ghlove/clientcore/internal/kv"
	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/metrics"
)

const envelopeVersion = 1

// Envelope is the persisted wrapper around cached data. SavedAt is unix milliseconds.
type Envelope[T any] struct {
	V       int    `json:"v"`
	SavedAt *int64 `json:"savedAt"`
	Data    T      `json:"data"`
}

type rawEnvelope struct {
	V       int             `json:"v"`
	SavedAt *int64          `json:"savedAt"`
	Data    json.RawMessage `json:"data"`
}

// Cache reads and writes envelopes. It never returns errors to callers.
type Cache struct {
	store   kv.Store
	prefix  string
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock used for savedAt and staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logging.Component(logger, "cache") }
}

// WithMetrics counts hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithPrefix sets the namespace prepended by Key.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New builds a Cache over store.
func New(store kv.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		prefix: "cache:v1",
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Key builds a namespaced key such as "cache:v1:<user>:match_score:<peer>". Empty parts are
// skipped.
func (c *Cache) Key(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	if c.prefix != "" {
		segments = append(segments, c.prefix)
	}
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}

// Read returns the cached value for key when it exists, decodes, carries the current envelope
// version and is no older than maxAge.
func Read[T any](ctx context.Context, c *Cache, key string, maxAge time.Duration) (T, bool) {
	var zero T
	raw, err := c.store.Get(ctx, key)
	if err != nil || raw == "" {
		c.metrics.IncCacheLookup(false)
		return zero, false
	}

	var env rawEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Debug("discarding malformed cache entry", slog.String("key", key), slog.Any("error", err))
		c.metrics.IncCacheLookup(false)
		return zero, false
	}
	if env.V != envelopeVersion || env.SavedAt == nil {
		c.metrics.IncCacheLookup(false)
		return zero, false
	}
	if c.now().UnixMilli()-*env.SavedAt > maxAge.Milliseconds() {
		c.metrics.IncCacheLookup(false)
		return zero, false
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		c.metrics.IncCacheLookup(false)
		return zero, false
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		c.logger.Debug("discarding undecodable cache data", slog.String("key", key), slog.Any("error", err))
		c.metrics.IncCacheLookup(false)
		return zero, false
	}
	c.metrics.IncCacheLookup(true)
	return data, true
}

// Write stores data under key stamped with the current time. Failures are swallowed.
func Write[T any](ctx context.Context, c *Cache, key string, data T) {
	savedAt := c.now().UnixMilli()
	payload, err := json.Marshal(Envelope[T]{V: envelopeVersion, SavedAt: &savedAt, Data: data})
	if err != nil {
		c.logger.Debug("cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.store.Set(ctx, key, string(payload)); err != nil {
		c.logger.Debug("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Remove deletes key. Failures are swallowed.
func (c *Cache) Remove(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Debug("cache remove failed", slog.String("key", key), slog.Any("error", err))
	}
}
