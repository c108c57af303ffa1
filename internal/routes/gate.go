package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/auth"
	"github.com/ghlove/clientcore/internal/guard"
	"github.com/ghlove/clientcore/internal/identity"
	"github.com/ghlove/clientcore/internal/middleware"
	"github.com/ghlove/clientcore/internal/onboarding"
	"github.com/ghlove/clientcore/internal/signup"
)

const deviceIDHeader = "X-Device-ID"

type gateResponse struct {
	State        string         `json:"state"`
	Decision     guard.Decision `json:"decision"`
	Phone        string         `json:"phone"`
	CanAccessApp bool           `json:"can_access_app"`
}

type onboardingResponse struct {
	State       string                 `json:"state"`
	Decision    *guard.Decision        `json:"decision,omitempty"`
	Destination *onboarding.Destination `json:"destination,omitempty"`
	URL         string                 `json:"url,omitempty"`
}

func registerGateRoutes(r fiber.Router, s *services) {
	r.Get("/gate", func(c *fiber.Ctx) error {
		return s.gate(c, guard.KindAuth)
	})
	r.Get("/gate/guest", func(c *fiber.Ctx) error {
		return s.gate(c, guard.KindGuest)
	})

	r.Get("/onboarding/route", func(c *fiber.Ctx) error {
		m, local := s.machine(c)
		defer m.Close()
		state := m.Start(c.UserContext())

		switch state {
		case identity.Loading, identity.NeedsAuth, identity.NeedsEmailVerification:
			d := guard.Auth(state)
			return c.Status(http.StatusOK).JSON(onboardingResponse{State: state.String(), Decision: &d})
		}

		snap := m.Snapshot()
		var localState signup.PhoneState
		if local != nil {
			if st, err := local.PhoneState(c.UserContext()); err == nil {
				localState = st
			}
		}
		dest := onboarding.Resolve(onboarding.Input{
			PhoneVerified: snap.Phone == identity.PhoneVerified,
			Variant:       c.Query("variant"),
			PhoneNumber:   onboarding.PhoneNumberFor(snap.Profile, localState),
			Current:       c.Query("next"),
		})
		return c.Status(http.StatusOK).JSON(onboardingResponse{State: state.String(), Destination: &dest, URL: dest.String()})
	})
}

func (s *services) gate(c *fiber.Ctx, kind guard.Kind) error {
	m, _ := s.machine(c)
	defer m.Close()

	state := m.Start(c.UserContext())
	d := guard.Evaluate(kind, state)
	s.metrics.IncGateDecision(state.String(), kind.String())

	return c.Status(http.StatusOK).JSON(gateResponse{
		State:        state.String(),
		Decision:     d,
		Phone:        m.Snapshot().Phone.String(),
		CanAccessApp: state.CanAccessApp(),
	})
}

// machine builds a request-scoped identity machine. The signup store is returned when the caller
// identified its device.
func (s *services) machine(c *fiber.Ctx) (*identity.Machine, *signup.Store) {
	opts := []identity.Option{
		identity.WithFetchTimeout(s.cfg.Identity.FetchTimeout),
		identity.WithReporter(s.reporter),
		identity.WithMetrics(s.metrics),
		identity.WithLogger(s.logger),
	}
	var local *signup.Store
	if deviceID := c.Get(deviceIDHeader); deviceID != "" {
		local = signup.New(s.kv, deviceID)
		opts = append(opts, identity.WithSignupSource(local))
	}
	sessions := auth.NewTokenProvider(s.verifier, middleware.TokenFrom(c))
	return identity.NewMachine(sessions, s.profiles, s.profiles, opts...), local
}
