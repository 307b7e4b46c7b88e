package engine

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {"error": {...}} with its mapped status.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := FromError(err)
		if appErr.Status >= 500 {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("code", appErr.Code),
				zap.Error(err))
		}
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}
}
