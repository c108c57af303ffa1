package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ghlove/clientcore/internal/logging"
)

// counterApp answers POST /resource with the number of times the handler ran.
func counterApp(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	calls := 0
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"calls": calls})
	})
	return app
}

func postResource(t *testing.T, app *fiber.App, key string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app := counterApp(t)

	_, first := postResource(t, app, "")
	_, second := postResource(t, app, "")
	if first == second {
		t.Fatalf("expected handler to run twice, got identical bodies %s", first)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app := counterApp(t)

	resp, first := postResource(t, app, "abc123")
	if resp.StatusCode != fiber.StatusCreated || resp.Header.Get(replayedHeader) != "" {
		t.Fatalf("unexpected first response %d replayed=%q", resp.StatusCode, resp.Header.Get(replayedHeader))
	}

	resp, second := postResource(t, app, "abc123")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}
	if resp.Header.Get(replayedHeader) != "true" {
		t.Fatal("expected replay marker header")
	}
	if got := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(got, fiber.MIMEApplicationJSON) {
		t.Fatalf("expected json content type, got %q", got)
	}
	if first != second || second != `{"calls":1}` {
		t.Fatalf("expected replay of %s, got %s", first, second)
	}

	if _, other := postResource(t, app, "another-key"); other != `{"calls":2}` {
		t.Fatalf("expected a new key to reach the handler, got %s", other)
	}
}

func TestIdempotencyRejectsLongKey(t *testing.T) {
	app := counterApp(t)

	resp, _ := postResource(t, app, strings.Repeat("k", maxIdempotencyKeyLen+1))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	calls := 0
	app.Post("/flaky", func(c *fiber.Ctx) error {
		calls++
		if calls == 1 {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	send := func() *http.Response {
		req := httptest.NewRequest(fiber.MethodPost, "/flaky", nil)
		req.Header.Set(idempotencyKeyHeader, "retry-1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp
	}

	if resp := send(); resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected first attempt to fail, got %d", resp.StatusCode)
	}
	if resp := send(); resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected retry to reach the handler, got %d", resp.StatusCode)
	}
	resp := send()
	if resp.StatusCode != fiber.StatusAccepted || resp.Header.Get(replayedHeader) != "true" {
		t.Fatalf("expected replayed 202, got %d replayed=%q", resp.StatusCode, resp.Header.Get(replayedHeader))
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	if err := mr.Set(idempotencyPrefix+"0.0.0.0:POST:/resource:dup", pendingMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	req := httptest.NewRequest(fiber.MethodPost, "/resource", nil)
	req.Header.Set(idempotencyKeyHeader, "dup")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestIdempotencyFailsOpenWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	mr.Close()

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	req := httptest.NewRequest(fiber.MethodPost, "/resource", nil)
	req.Header.Set(idempotencyKeyHeader, "k")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected request to pass through, got %d", resp.StatusCode)
	}
}
