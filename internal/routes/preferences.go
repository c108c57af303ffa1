package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/preference"
)

type themeBody struct {
	Theme string `json:"theme" validate:"required"`
}

func registerPreferenceRoutes(r fiber.Router, s *services) {
	r.Get("/preferences/theme", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(themeBody{Theme: string(s.prefs.Theme())})
	})

	r.Put("/preferences/theme", func(c *fiber.Ctx) error {
		var req themeBody
		if err := s.bind(c, &req); err != nil {
			return err
		}
		if err := s.prefs.Set(c.UserContext(), preference.Theme(req.Theme)); err != nil {
			if errors.Is(err, preference.ErrInvalidTheme) {
				return fiber.NewError(http.StatusBadRequest, "theme must be light, dark or system")
			}
			return err
		}
		return c.Status(http.StatusOK).JSON(themeBody{Theme: string(s.prefs.Theme())})
	})
}
