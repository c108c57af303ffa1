package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ghlove/clientcore/internal/auth"
	"github.com/ghlove/clientcore/internal/cache"
	"github.com/ghlove/clientcore/internal/config"
	"github.com/ghlove/clientcore/internal/infra"
	"github.com/ghlove/clientcore/internal/kv"
	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/match"
	"github.com/ghlove/clientcore/internal/metrics"
	"github.com/ghlove/clientcore/internal/middleware"
	"github.com/ghlove/clientcore/internal/preference"
	"github.com/ghlove/clientcore/internal/profile"
	"github.com/ghlove/clientcore/internal/remote"
	"github.com/ghlove/clientcore/internal/report"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Backends infra.Backends
	Logger   *slog.Logger
	// Registry receives application metrics and backs /metrics. Nil uses a private registry.
	Registry *prometheus.Registry
	// Preferences defaults to the process-wide store.
	Preferences *preference.Store
	// Profiles and Matches replace the repositories picked from Backends when set.
	Profiles profile.Repository
	Matches  match.Repository
}

// services is everything the handlers share.
type services struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	kv        kv.Store
	verifier  *auth.Verifier
	profiles  *profile.Service
	resolver  *profile.Resolver
	matches   *match.Service
	rpc       *remote.Client
	reporter  report.Reporter
	prefs     *preference.Store
	validate  *validator.Validate
	backends  infra.Backends
	rateCache *redis.Client
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if err := d.Backends.Require(d.Cfg.IsDev()); err != nil {
		return fmt.Errorf("backends unavailable with APP_ENV=%s: %w", d.Cfg.AppEnv, err)
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	s := newServices(d)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Session(s.verifier))
	app.Use(middleware.Audit(logging.Component(d.Logger, "http"), "/healthz", "/metrics"))
	if s.rateCache != nil {
		app.Use(middleware.Idempotency(s.rateCache, d.Cfg.IdempotencyTTL, s.logger))
	}

	RegisterHealthRoutes(app, d.Backends, d.Registry)

	api := app.Group("/api/v1")
	registerGateRoutes(api, s)
	registerSignupRoutes(api, s)
	registerPreferenceRoutes(api, s)

	scores := api.Group("/scores", middleware.RateLimit(s.rateCache, "scores", d.Cfg.RateLimitPerMinute, s.logger))
	registerScoreRoutes(scores, s)

	requireSession := middleware.RequireSession()
	registerMatchRoutes(api.Group("/matches", requireSession), s)
	registerSignalRoutes(api, s, requireSession)

	return nil
}

func newServices(d Deps) *services {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	met := metrics.New(d.Registry)
	reporter := report.NewLoggerReporter(logger)

	store := kv.NewMemory()
	rateCache := d.Backends.Redis.OrElse(nil)
	if rateCache != nil {
		store = kv.NewRedis(rateCache)
	}

	var profileRepo profile.Repository
	var matchRepo match.Repository
	var executor remote.Executor = remote.Discard{}
	if pool, ok := d.Backends.Postgres.Get(); ok {
		profileRepo = profile.NewPostgresRepository(pool)
		matchRepo = match.NewPostgresRepository(pool)
		executor = pool
	} else {
		profileRepo = profile.NewMemoryRepository()
		matchRepo = match.NewMemoryRepository()
	}
	if d.Profiles != nil {
		profileRepo = d.Profiles
	}
	if d.Matches != nil {
		matchRepo = d.Matches
	}

	c := cache.New(store,
		cache.WithPrefix(d.Cfg.Cache.KeyPrefix),
		cache.WithLogger(logger),
		cache.WithMetrics(met))

	prefs := d.Preferences
	if prefs == nil {
		prefs = preference.Default()
	}
	prefs.Attach(context.Background(), store, logger)

	return &services{
		cfg:       d.Cfg,
		logger:    logging.Component(logger, "routes"),
		metrics:   met,
		kv:        store,
		verifier:  auth.NewVerifier(d.Cfg.JWTSecret),
		profiles:  profile.NewService(profileRepo),
		resolver:  profile.NewResolver(profileRepo),
		matches:   match.NewService(matchRepo, profileRepo, c, d.Cfg.Cache.MatchScoreMaxAge, logger),
		rpc:       remote.NewClient(executor, logger, reporter),
		reporter:  reporter,
		prefs:     prefs,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		backends:  d.Backends,
		rateCache: rateCache,
	}
}

// bind parses the JSON body into v and validates it.
func (s *services) bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON body")
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fiber.NewError(http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
		}
		return fiber.NewError(http.StatusBadRequest, "invalid request")
	}
	return nil
}

// ErrorHandler renders fiber errors as JSON and hides everything else behind a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	logger = logging.Component(logger, "http")
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
