package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/middleware"
	"github.com/ghlove/clientcore/internal/remote"
	"github.com/ghlove/clientcore/internal/report"
)

type profileSignalRequest struct {
	remote.ProfileSignal
	// ProfileID skips the lookup when the client already knows its own profile id.
	ProfileID string `json:"profile_id" validate:"omitempty,max=64"`
}

func registerSignalRoutes(r fiber.Router, s *services, requireSession fiber.Handler) {
	r.Post("/push-token", requireSession, func(c *fiber.Ctx) error {
		var req remote.PushToken
		if err := s.bind(c, &req); err != nil {
			return err
		}
		req.UserID = middleware.SessionFrom(c).UserID
		s.rpc.RegisterPushToken(c.UserContext(), req)
		return c.SendStatus(http.StatusAccepted)
	})

	r.Post("/signals/profile", requireSession, func(c *fiber.Ctx) error {
		var req profileSignalRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		userID := middleware.SessionFrom(c).UserID
		profileID, err := s.resolver.Resolve(c.UserContext(), userID, req.ProfileID)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("profile id lookup aborted", slog.String("user_id", userID), slog.Any("error", err))
			return fiber.NewError(http.StatusServiceUnavailable, "profile lookup aborted")
		}
		if err != nil {
			s.logger.Error("profile id lookup failed", slog.String("user_id", userID), slog.Any("error", err))
			s.reporter.Report(c.UserContext(), report.Failure{
				Component: "routes",
				Operation: "resolve_profile_id",
				UserID:    userID,
				Err:       err,
			})
			return fiber.NewError(http.StatusInternalServerError, "profile lookup failed")
		}
		if profileID == "" {
			return fiber.NewError(http.StatusConflict, "profile not set up yet")
		}

		signal := req.ProfileSignal
		signal.ProfileID = profileID
		s.rpc.RecordProfileSignal(c.UserContext(), signal)
		return c.SendStatus(http.StatusAccepted)
	})
}
