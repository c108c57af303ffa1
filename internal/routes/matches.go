package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/match"
	"github.com/ghlove/clientcore/internal/middleware"
)

func registerMatchRoutes(r fiber.Router, s *services) {
	r.Get("/:peer/score", func(c *fiber.Ctx) error {
		viewer := middleware.SessionFrom(c)
		res, err := s.matches.Score(c.UserContext(), viewer.UserID, c.Params("peer"))
		switch {
		case errors.Is(err, match.ErrSamePerson):
			return fiber.NewError(http.StatusBadRequest, "cannot score a user against themselves")
		case errors.Is(err, match.ErrProfileNotFound):
			return fiber.NewError(http.StatusNotFound, "profile not found")
		case err != nil:
			s.logger.Error("match score failed", slog.String("user_id", viewer.UserID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "failed to compute match score")
		}
		return c.Status(http.StatusOK).JSON(res)
	})

	r.Delete("/:peer/score", func(c *fiber.Ctx) error {
		viewer := middleware.SessionFrom(c)
		s.matches.Invalidate(c.UserContext(), viewer.UserID, c.Params("peer"))
		return c.SendStatus(http.StatusNoContent)
	})
}
