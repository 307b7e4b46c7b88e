package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sqlscope-backend/internal/auth"
	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/executor"
	"sqlscope-backend/internal/project"
	"sqlscope-backend/internal/store"
)

const defaultLanguage = "sql"

var languages = map[string]bool{
	"sql":        true,
	"postgresql": true,
	"mysql":      true,
	"sqlite":     true,
	"tsql":       true,
}

// Store is the query part of the bookkeeping store.
type Store interface {
	CreateQuery(ctx context.Context, nq store.NewQuery) (*store.Query, error)
	UpdateQuery(ctx context.Context, projectID string, u store.QueryUpdate) (*store.Query, error)
	GetQuery(ctx context.Context, userID, queryID string) (*store.Query, error)
	ListQueries(ctx context.Context, projectID string) ([]store.Query, error)
	DeleteQuery(ctx context.Context, userID, queryID string) error
}

// Handler applies statements to project databases and keeps their history.
type Handler struct {
	queries  Store
	executor *executor.Executor
	log      *zap.Logger
}

func NewHandler(queries Store, ex *executor.Executor, log *zap.Logger) *Handler {
	return &Handler{queries: queries, executor: ex, log: log}
}

// Apply handles POST /api/query/:projectId. A given queryId is resolved first, then the
// statement runs; the record is only written when it succeeds.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var body struct {
		Query    string `json:"query"`
		Language string `json:"language"`
		QueryID  string `json:"queryId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError()
	}
	body.Language = strings.ToLower(strings.TrimSpace(body.Language))
	if body.Language == "" {
		body.Language = defaultLanguage
	}

	var details []engine.ErrorDetail
	if strings.TrimSpace(body.Query) == "" {
		details = append(details, engine.ErrorDetail{Field: "query", Rule: "required", Message: "Query is required"})
	}
	if !languages[body.Language] {
		details = append(details, engine.ErrorDetail{Field: "language", Rule: "enum", Message: "Language must be one of sql, postgresql, mysql, sqlite, tsql"})
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}

	p := project.GetProject(c)
	ctx := c.UserContext()

	// An existing record must belong to this project before the statement touches the target.
	if body.QueryID != "" {
		existing, err := h.queries.GetQuery(ctx, auth.PrincipalID(c), body.QueryID)
		if err != nil {
			return engine.FromError(err)
		}
		if existing.ProjectID != p.ID {
			return engine.FromError(fmt.Errorf("query %s: %w", body.QueryID, store.ErrNotFound))
		}
	}

	payload, err := h.executor.Apply(ctx, p.URL, body.Query)
	if err != nil {
		return engine.FromError(err)
	}

	var q *store.Query
	if body.QueryID != "" {
		q, err = h.queries.UpdateQuery(ctx, p.ID, store.QueryUpdate{
			QueryID:  body.QueryID,
			Text:     body.Query,
			Language: body.Language,
			Result:   payload,
		})
	} else {
		q, err = h.queries.CreateQuery(ctx, store.NewQuery{
			ProjectID: p.ID,
			Text:      body.Query,
			Language:  body.Language,
			Result:    payload,
		})
	}
	if err != nil {
		h.log.Error("store query result", zap.String("project_id", p.ID), zap.Error(err))
		return engine.FromError(err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"response": payload, "queryId": q.ID}})
}

// List handles GET /api/query/list/:projectId.
func (h *Handler) List(c *fiber.Ctx) error {
	queries, err := h.queries.ListQueries(c.UserContext(), project.GetProject(c).ID)
	if err != nil {
		return engine.FromError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"queries": queries}})
}

// Get handles GET /api/query/:queryId.
func (h *Handler) Get(c *fiber.Ctx) error {
	q, err := h.queries.GetQuery(c.UserContext(), auth.PrincipalID(c), c.Params("queryId"))
	if err != nil {
		return engine.FromError(err)
	}
	return c.JSON(fiber.Map{"data": q})
}

// Delete handles DELETE /api/query/:queryId.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.queries.DeleteQuery(c.UserContext(), auth.PrincipalID(c), c.Params("queryId")); err != nil {
		return engine.FromError(err)
	}
	return c.JSON(fiber.Map{"message": "Query deleted"})
}

// RegisterRoutes registers query routes behind authMW.
func RegisterRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, projects project.Getter) {
	resolver := project.Resolver(projects)

	q := app.Group("/api/query", authMW)
	q.Get("/list/:projectId", resolver, h.List)
	q.Post("/:projectId", resolver, h.Apply)
	q.Get("/:queryId", h.Get)
	q.Delete("/:queryId", h.Delete)
}
