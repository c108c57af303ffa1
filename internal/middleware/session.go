package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ghlove/clientcore/internal/auth"
)

const (
	sessionLocal = "session"
	tokenLocal   = "access_token"
)

// Session resolves the bearer token into a session. A missing or invalid token leaves the request
// anonymous; gating endpoints answer NeedsAuth for it rather than rejecting the call.
func Session(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		c.Locals(tokenLocal, token)
		if token == "" {
			return c.Next()
		}
		s, err := verifier.Verify(token)
		if err == nil {
			c.Locals(sessionLocal, s)
		}
		return c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if SessionFrom(c) == nil {
			return fiber.NewError(http.StatusUnauthorized, "missing or invalid bearer token")
		}
		return c.Next()
	}
}

// SessionFrom returns the session attached by Session, or nil.
func SessionFrom(c *fiber.Ctx) *auth.Session {
	s, _ := c.Locals(sessionLocal).(*auth.Session)
	return s
}

// TokenFrom returns the raw bearer token, or "".
func TokenFrom(c *fiber.Ctx) string {
	t, _ := c.Locals(tokenLocal).(string)
	return t
}

func bearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
