package middleware

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAuditLevelsAndQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger, "/healthz"))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/bad", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "nope") })

	for _, path := range []string{"/healthz", "/ok", "/bad"} {
		if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil)); err != nil {
			t.Fatalf("app.Test %s: %v", path, err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"path":"/ok"`) || !strings.Contains(lines[0], `"level":"INFO"`) {
		t.Fatalf("unexpected ok line %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":400`) || !strings.Contains(lines[1], `"level":"WARN"`) {
		t.Fatalf("unexpected bad line %s", lines[1])
	}
	if !strings.Contains(lines[1], `"request_id":`) {
		t.Fatalf("expected request id in %s", lines[1])
	}
}
