package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/instrument"
)

// Middleware returns a Fiber middleware that verifies the Authorization header
// and attaches the Principal. Rejected requests never reach the next handler.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := instrument.GetInstrumenter(c.UserContext()).StartSpan(c.UserContext(), "auth", "verifier", "verify")
		p, err := v.Verify(ctx, c.Get(fiber.HeaderAuthorization))
		if err != nil {
			span.SetStatus("error")
			span.End()
			switch {
			case errors.Is(err, ErrUnauthenticated):
				return engine.UnauthenticatedError("Invalid or missing auth token")
			case errors.Is(err, ErrUnauthorized):
				return engine.UnauthorizedError("User no longer exists")
			default:
				return engine.FromError(err)
			}
		}
		span.SetStatus("ok")
		span.End()

		c.Locals("principal", p)
		ctx = WithPrincipal(c.UserContext(), p)
		c.SetUserContext(instrument.WithUserID(ctx, p.UserID))
		return c.Next()
	}
}

// GetPrincipal extracts the Principal from a Fiber context.
func GetPrincipal(c *fiber.Ctx) *Principal {
	p, _ := c.Locals("principal").(*Principal)
	return p
}

// PrincipalID returns the authenticated user id, or "".
func PrincipalID(c *fiber.Ctx) string {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return ""
}
