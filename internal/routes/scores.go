package routes

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/scoring"
)

type matchScoreRequest struct {
	MessageCount         *int     `json:"message_count" validate:"omitempty,gte=0"`
	FirstReplyHours      *float64 `json:"first_reply_hours" validate:"omitempty,gte=0"`
	BothVerified         *bool    `json:"both_verified"`
	InterestOverlapRatio *float64 `json:"interest_overlap_ratio" validate:"omitempty,gte=0,lte=1"`

	// Raw rows may be sent instead of precomputed values.
	Messages      []scoring.Message `json:"messages" validate:"omitempty,max=500"`
	UserID        string            `json:"user_id" validate:"required_with=Messages"`
	PeerID        string            `json:"peer_id" validate:"required_with=Messages"`
	Interests     []string          `json:"interests" validate:"omitempty,max=100"`
	PeerInterests []string          `json:"peer_interests" validate:"omitempty,max=100"`
}

type distanceRequest struct {
	Label string `json:"label" validate:"max=256"`
}

type aiScoreRequest struct {
	Raw json.RawMessage `json:"raw"`
}

type compatibilityRequest struct {
	Viewer scoring.CompatProfile `json:"viewer"`
	Target scoring.CompatProfile `json:"target"`
}

func registerScoreRoutes(r fiber.Router, s *services) {
	r.Post("/match", func(c *fiber.Ctx) error {
		var req matchScoreRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		in := scoring.MatchScoreInputs{
			MessageCount:         req.MessageCount,
			FirstReplyHours:      req.FirstReplyHours,
			BothVerified:         req.BothVerified,
			InterestOverlapRatio: req.InterestOverlapRatio,
		}
		if in.FirstReplyHours == nil && len(req.Messages) > 0 {
			if h, ok := scoring.FirstReplyHours(req.Messages, req.UserID, req.PeerID); ok {
				in.FirstReplyHours = scoring.Ptr(h)
			}
		}
		if in.MessageCount == nil && req.Messages != nil {
			in.MessageCount = scoring.Ptr(len(req.Messages))
		}
		if in.InterestOverlapRatio == nil {
			if ratio, ok := scoring.InterestOverlapRatio(req.Interests, req.PeerInterests); ok {
				in.InterestOverlapRatio = scoring.Ptr(ratio)
			}
		}

		resp := fiber.Map{"percent": nil, "inputs": in}
		if pct, ok := scoring.MatchScorePercent(in); ok {
			resp["percent"] = pct
		}
		return c.Status(http.StatusOK).JSON(resp)
	})

	r.Post("/distance", func(c *fiber.Ctx) error {
		var req distanceRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		resp := fiber.Map{"km": nil, "is_distance": scoring.IsDistanceLabel(req.Label)}
		if km, ok := scoring.ParseDistanceKmFromLabel(req.Label); ok {
			resp["km"] = km
		}
		return c.Status(http.StatusOK).JSON(resp)
	})

	r.Post("/ai", func(c *fiber.Ctx) error {
		var req aiScoreRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		var raw any
		if len(req.Raw) > 0 {
			dec := json.NewDecoder(bytes.NewReader(req.Raw))
			dec.UseNumber()
			if err := dec.Decode(&raw); err != nil {
				return fiber.NewError(http.StatusBadRequest, "raw must be a JSON value")
			}
		}
		resp := fiber.Map{"percent": nil, "rounded": nil}
		if pct, ok := scoring.NormalizeAIScorePercent(raw); ok {
			resp["percent"] = pct
			if rounded, ok := scoring.ToRoundedPercent(pct); ok {
				resp["rounded"] = rounded
			}
		}
		return c.Status(http.StatusOK).JSON(resp)
	})

	r.Post("/compatibility", func(c *fiber.Ctx) error {
		var req compatibilityRequest
		if err := s.bind(c, &req); err != nil {
			return err
		}
		resp := fiber.Map{"percent": nil}
		if pct, ok := scoring.CompatibilityPercent(req.Viewer, req.Target, scoring.DefaultCompatWeights); ok {
			resp["percent"] = pct
		}
		return c.Status(http.StatusOK).JSON(resp)
	})
}
