package engine

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sqlscope-backend/internal/executor"
	"sqlscope-backend/internal/store"
	"sqlscope-backend/internal/target"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func InvalidPayloadError() *AppError {
	return NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
}

func UnauthenticatedError(msg string) *AppError {
	return NewAppError("UNAUTHENTICATED", 401, msg)
}

func UnauthorizedError(msg string) *AppError {
	return NewAppError("UNAUTHORIZED", 403, msg)
}

func InternalError() *AppError {
	return NewAppError("INTERNAL_ERROR", 500, "Internal server error")
}

// FromError maps any error onto the stable code and status a client sees.
// Returns nil for a nil error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, executor.ErrRejected):
		return NewAppError("STATEMENT_REJECTED", 422, "Statement rejected by policy")
	case errors.Is(err, target.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return NewAppError("NOT_FOUND", 404, err.Error())
	case errors.Is(err, target.ErrSchemaRead):
		return NewAppError("SCHEMA_READ_ERROR", 502, err.Error())
	case errors.Is(err, target.ErrConnection):
		return NewAppError("CONNECTION_ERROR", 503, err.Error())
	case errors.Is(err, target.ErrStatement):
		return NewAppError("STATEMENT_ERROR", 422, err.Error())
	case errors.Is(err, store.ErrUniqueViolation):
		return NewAppError("CONFLICT", 409, "Record already exists")
	case errors.Is(err, store.ErrPersistence):
		return NewAppError("PERSISTENCE_ERROR", 500, "Failed to persist record")
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewAppError(fiberCode(fiberErr.Code), fiberErr.Code, fiberErr.Message)
	}
	return InternalError()
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusBadRequest:
		return "INVALID_PAYLOAD"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
