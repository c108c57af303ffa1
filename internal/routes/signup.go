package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/signup"
)

type signupPhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Verified    bool   `json:"verified"`
}

type signupResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Phone     signup.PhoneState `json:"phone"`
}

func registerSignupRoutes(r fiber.Router, s *services) {
	store := func(c *fiber.Ctx) (*signup.Store, error) {
		deviceID := c.Get(deviceIDHeader)
		if deviceID == "" {
			return nil, fiber.NewError(http.StatusBadRequest, "missing "+deviceIDHeader+" header")
		}
		return signup.New(s.kv, deviceID), nil
	}

	r.Get("/signup/phone", func(c *fiber.Ctx) error {
		st, err := store(c)
		if err != nil {
			return err
		}
		phone, err := st.PhoneState(c.UserContext())
		if err != nil {
			return err
		}
		sessionID, err := st.SessionID(c.UserContext())
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(signupResponse{SessionID: sessionID, Phone: phone})
	})

	r.Put("/signup/phone", func(c *fiber.Ctx) error {
		st, err := store(c)
		if err != nil {
			return err
		}
		var req signupPhoneRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		ctx := c.UserContext()
		sessionID, err := st.EnsureSessionID(ctx)
		if err != nil {
			return err
		}
		if err := st.SetPhoneNumber(ctx, req.PhoneNumber); err != nil {
			return err
		}
		if err := st.SetPhoneVerified(ctx, req.Verified); err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(signupResponse{
			SessionID: sessionID,
			Phone:     signup.PhoneState{PhoneNumber: req.PhoneNumber, Verified: req.Verified},
		})
	})

	r.Delete("/signup", func(c *fiber.Ctx) error {
		st, err := store(c)
		if err != nil {
			return err
		}
		if err := st.Clear(c.UserContext()); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})
}
