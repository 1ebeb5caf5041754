package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"regapi/internal/http/middleware"
	"regapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_PID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeErrorDetails(c, status, code, message, nil)
}

func writeErrorDetails(c *fiber.Ctx, status int, code, message string, details any) error {
	res := errorPayload{
		Success:   false,
		Message:   message,
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a service error kind onto a status and error code.
// Unexpected errors are logged with the request ID and reported as 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		verr    *service.ValidationError
		partial *service.PartialSyncError
	)
	switch {
	case errors.Is(err, service.ErrPIDRequired):
		return writeError(c, fiber.StatusBadRequest, "PID_REQUIRED", "pid is required")
	case errors.As(err, &verr):
		return writeErrorDetails(c, fiber.StatusBadRequest, "VALIDATION_FAILED", "validation failed", verr.Fields)
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "student not found")
	case errors.Is(err, service.ErrFileNotFound):
		return writeError(c, fiber.StatusNotFound, "FILE_NOT_FOUND", "file not found")
	case errors.Is(err, service.ErrConflict):
		return writeError(c, fiber.StatusConflict, "CONFLICT", "student was modified concurrently, retry")
	case errors.As(err, &partial):
		// checked before ErrStorage: a partial sync wraps storage errors
		logInternal(c, err)
		return writeErrorDetails(c, fiber.StatusInternalServerError, "PARTIAL_SYNC",
			"changes saved but some replaced files could not be removed",
			fiber.Map{"orphaned": len(partial.Orphaned)})
	case errors.Is(err, service.ErrStorage):
		logInternal(c, err)
		return writeError(c, fiber.StatusBadGateway, "STORAGE_ERROR", "file storage unavailable")
	default:
		logInternal(c, err)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func logInternal(c *fiber.Ctx, err error) {
	zap.L().Error("request_failed",
		zap.String("request_id", middleware.RequestIDFrom(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			logInternal(c, err)
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
