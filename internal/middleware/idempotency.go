package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	idempotencyPrefix    = "idempotency:v1:"
	maxIdempotencyKeyLen = 128
	pendingMarker        = "pending"
	redisOpTimeout       = 2 * time.Second
)

// replay is the part of a response needed to answer a retried request.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type replayStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// reserve claims key for the current request. It returns the stored replay when the key already
// completed, and reserved=false with a nil replay while another request holds it.
func (s replayStore) reserve(ctx context.Context, key string) (r *replay, reserved bool, err error) {
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil || ok {
		return nil, ok, err
	}
	prev, err := s.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil), prev == pendingMarker:
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	var stored replay
	if err := json.Unmarshal([]byte(prev), &stored); err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

func (s replayStore) complete(key string, r replay) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	payload, err := json.Marshal(r)
	if err == nil {
		err = s.rdb.Set(ctx, key, payload, s.ttl).Err()
	}
	if err != nil {
		s.logger.Warn("idempotent response not stored", slog.String("key", key), slog.Any("error", err))
		s.rdb.Del(ctx, key)
	}
}

func (s replayStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	s.rdb.Del(ctx, key)
}

// Idempotency replays the stored response for unsafe requests that repeat an Idempotency-Key.
// Requests without the header pass through; mobile clients send it only on retries. Keys are
// scoped to the caller and route so two users cannot collide. Server errors are not stored, so a
// retry after a 5xx runs the handler again. A Redis outage lets requests through unprotected.
func Idempotency(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := replayStore{rdb: rdb, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		owner := c.IP()
		if s := SessionFrom(c); s != nil {
			owner = s.UserID
		}
		cacheKey := idempotencyPrefix + owner + ":" + c.Method() + ":" + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(c.UserContext(), redisOpTimeout)
		prev, reserved, err := store.reserve(ctx, cacheKey)
		cancel()
		switch {
		case err != nil:
			logger.Warn("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		case prev != nil:
			c.Set(replayedHeader, "true")
			if prev.ContentType != "" {
				c.Set(fiber.HeaderContentType, prev.ContentType)
			}
			return c.Status(prev.Status).Send(prev.Body)
		case !reserved:
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			store.release(cacheKey)
			return nil
		}
		store.complete(cacheKey, replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		return nil
	}
}
