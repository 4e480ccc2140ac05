package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, out_of_range, etc.
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

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// writeDomainError maps a domain error kind onto its HTTP status and code.
func writeDomainError(c *fiber.Ctx, err error) error {
	status, code, msg := classifyError(c, err)
	return newError(c, status, code, msg)
}

// classifyError returns the status, code and client message for err. It
// logs server-side failures and sets Retry-After for retryable ones.
func classifyError(c *fiber.Ctx, err error) (int, string, string) {
	var ne *domain.NotEligibleError
	switch {
	case errors.As(err, &ne) && ne.Reason == domain.ReasonAlreadyClaimed:
		return 409, "already_claimed", err.Error()
	case errors.As(err, &ne):
		return 403, "out_of_range", err.Error()
	case errors.Is(err, domain.ErrReservationConflict):
		return 409, "already_claimed", "already claimed"
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return 400, "invalid_coordinate", err.Error()
	case errors.Is(err, domain.ErrInvalidRadius):
		return 400, "invalid_radius", err.Error()
	case errors.Is(err, domain.ErrInvalidAddress):
		return 400, "invalid_address", err.Error()
	case errors.Is(err, domain.ErrInvalidMetadata):
		return 400, "invalid_metadata", err.Error()
	case errors.Is(err, domain.ErrMetadataNotFound):
		return 404, "not_found", "metadata not found"
	case errors.Is(err, domain.ErrDuplicateMetadata):
		return 409, "conflict", "metadata with the same collection, location and radius already exists"
	case errors.Is(err, domain.ErrStoreUnavailable):
		logging.FromContext(c.UserContext()).Error("store unavailable", "error", err)
		c.Set(fiber.HeaderRetryAfter, "1")
		return 503, "store_unavailable", "storage temporarily unavailable, retry later"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return 504, "timeout", "request timed out"
	}
	logging.FromContext(c.UserContext()).Error("unhandled error", "error", err)
	return 500, "internal_error", "internal error"
}
