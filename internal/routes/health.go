package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghlove/clientcore/internal/infra"
)

// RegisterHealthRoutes adds liveness and metrics endpoints. Backends that were never configured
// report "memory" rather than failing the check.
func RegisterHealthRoutes(app *fiber.App, b infra.Backends, gatherer prometheus.Gatherer) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "memory"
		redisStatus := "memory"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if pool, ok := b.Postgres.Get(); ok {
			dbStatus = "ok"
			if err := pool.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if client, ok := b.Redis.Get(); ok {
			redisStatus = "ok"
			if err := client.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func healthy(status string) bool {
	return status == "ok" || status == "memory"
}
