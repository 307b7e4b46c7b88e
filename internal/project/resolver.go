package project

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"sqlscope-backend/internal/auth"
	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/store"
)

// Getter loads a project owned by a user.
type Getter interface {
	GetProject(ctx context.Context, userID, projectID string) (*store.Project, error)
}

// Resolver loads the caller's project named by the :projectId route param
// into c.Locals("project"). It must run after auth.Middleware.
func Resolver(projects Getter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := auth.PrincipalID(c)
		if userID == "" {
			return engine.UnauthenticatedError("Missing auth token")
		}
		projectID := c.Params("projectId")
		if projectID == "" {
			return engine.NewAppError("NOT_FOUND", 404, "Project id is required")
		}

		p, err := projects.GetProject(c.UserContext(), userID, projectID)
		if err != nil {
			return engine.FromError(err)
		}
		c.Locals("project", p)
		return c.Next()
	}
}

// GetProject extracts the resolved project from a Fiber context.
func GetProject(c *fiber.Ctx) *store.Project {
	p, _ := c.Locals("project").(*store.Project)
	return p
}
