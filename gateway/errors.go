package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/dataurl"
	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

var (
	// ErrInvalidRequest is returned for requests missing required fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrBackendFailure is the only error callers see when the backend call
	// fails; the cause is logged server-side.
	ErrBackendFailure = errors.New("model failed")
)

// writeError maps err onto a status code and a client-safe message.
func (g *Gateway) writeError(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusInternalServerError, "internal error"

	var notFound transcript.ErrNotFound
	switch {
	case errors.Is(err, ErrInvalidRequest):
		status, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, dataurl.ErrMalformedPayload):
		status, msg = fiber.StatusBadRequest, "Malformed image payload"
	case errors.Is(err, dataurl.ErrPayloadTooLarge):
		status, msg = fiber.StatusRequestEntityTooLarge, "Image too large"
	case errors.Is(err, auth.ErrUnauthorized):
		status, msg = fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrBackendFailure):
		msg = "Model failed"
	case errors.As(err, &notFound):
		status, msg = fiber.StatusNotFound, "node not found"
	}

	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}
