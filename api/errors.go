package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/storage"
	"github.com/papercomputeco/warren/pkg/worker"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequestError is a malformed or invalid request, rejected before it reaches
// the catalog.
type RequestError struct {
	Message string
}

func (e RequestError) Error() string {
	return e.Message
}

// statusFor maps a catalog error onto an HTTP status.
func statusFor(err error) int {
	var reqErr RequestError

	switch {
	case errors.As(err, &reqErr), errors.Is(err, catalog.ErrEmptyName), errors.Is(err, catalog.ErrNilCategory):
		return fiber.StatusBadRequest
	case storage.IsNotFound(err):
		return fiber.StatusNotFound
	case storage.IsCycle(err):
		return fiber.StatusConflict
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err. Not-found and cycle
// errors are reported without the wrapping context added by the catalog.
func messageFor(err error) string {
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return nf.Message()
	}

	var ce storage.CycleError
	if errors.As(err, &ce) {
		return ce.Error()
	}

	var reqErr RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "analysis timed out"
	}
	if errors.Is(err, worker.ErrQueueFull) {
		return "analysis queue is full, retry later"
	}

	return err.Error()
}

// respondError writes the mapped status and error body for err.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{Error: messageFor(err)})
}
