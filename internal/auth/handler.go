package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/store"
)

const minPasswordLength = 8

// UserStore is the part of the bookkeeping store the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*store.User, error)
	FindUserByEmail(ctx context.Context, email string) (*store.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UserStore, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError()
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	var details []engine.ErrorDetail
	if !strings.Contains(body.Email, "@") {
		details = append(details, engine.ErrorDetail{Field: "email", Rule: "email", Message: "A valid email is required"})
	}
	if len(body.Password) < minPasswordLength {
		details = append(details, engine.ErrorDetail{Field: "password", Rule: "min_length", Message: "Password must have at least 8 characters"})
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return engine.InternalError()
	}
	user, err := h.users.CreateUser(c.UserContext(), body.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return engine.NewAppError("CONFLICT", 409, "Email is already registered")
		}
		h.log.Error("create user", zap.Error(err))
		return engine.FromError(err)
	}

	token, err := GenerateToken(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		return engine.InternalError()
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"token": token, "userId": user.ID}})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError()
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" || body.Password == "" {
		return engine.UnauthenticatedError("Email and password are required")
	}

	user, err := h.users.FindUserByEmail(c.UserContext(), body.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.UnauthenticatedError("Invalid email or password")
		}
		return engine.FromError(err)
	}
	if !CheckPassword(body.Password, user.PasswordHash) {
		return engine.UnauthenticatedError("Invalid email or password")
	}

	token, err := GenerateToken(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		return engine.InternalError()
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"token": token}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
}
