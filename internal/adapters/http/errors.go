package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// fromError maps a service error onto an APIError.
func fromError(c *fiber.Ctx, err error) error {
	var be *domain.BackendError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return newError(c, 401, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrIPBlocked):
		return newError(c, 403, "ip_blocked", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return newError(c, 403, "forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrOutsideDistrict):
		return newError(c, 422, "outside_district", err.Error())
	case errors.Is(err, domain.ErrDailyLimitReached):
		return newError(c, 429, "daily_limit_reached", err.Error())
	case errors.Is(err, domain.ErrBoundaryUnavailable):
		return errUnavailable(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", "upstream timed out")
	case errors.As(err, &be):
		LoggerFromCtx(c.UserContext()).Warn("backend error", "status", be.HTTPStatus, "error", be.Message)
		return newError(c, 502, "upstream_error", be.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("error", err.Error()))
		return errInternal(c, err.Error())
	}
}
