package httpapi

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
)

// Handlers exposes the dashboard event stream. The JSON and panel routes
// are mounted through the gorouter package.
type Handlers struct {
	Broadcast *dashboard.BroadcastHook
	// Heartbeat is the SSE keep-alive period.
	Heartbeat time.Duration
	// Shutdown ends open event streams when cancelled.
	Shutdown context.Context
}

// HandleEvents streams refresh events as Server-Sent Events.
func (h *Handlers) HandleEvents(c *fiber.Ctx) error {
	if h.Broadcast == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := h.Shutdown
	if ctx == nil {
		ctx = context.Background()
	}
	broadcast, heartbeat := h.Broadcast, h.Heartbeat
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = broadcast.StreamSSE(ctx, w, heartbeat)
	})
	return nil
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteError maps an error category to an HTTP status with a fixed message.
func WriteError(c *fiber.Ctx, err error) error {
	status, message := StatusFor(err)
	body := ErrorBody{Error: message}
	var typed *goerrors.Error
	if goerrors.As(err, &typed) {
		body.Code = typed.TextCode
	}
	return c.Status(status).JSON(body)
}

// StatusFor returns the response status and user-facing message for err.
func StatusFor(err error) (int, string) {
	switch {
	case goerrors.IsNotFound(err):
		return fiber.StatusNotFound, "Registro no encontrado"
	case goerrors.IsAuth(err):
		return fiber.StatusUnauthorized, "Sesión expirada"
	case goerrors.IsValidation(err):
		return fiber.StatusUnprocessableEntity, "Revise los campos marcados"
	case goerrors.HasCategory(err, goerrors.CategoryBadInput):
		return fiber.StatusBadRequest, "Solicitud inválida"
	case goerrors.HasCategory(err, goerrors.CategoryAuthz):
		return fiber.StatusForbidden, "Operación no permitida"
	case goerrors.HasCategory(err, goerrors.CategoryInternal):
		return fiber.StatusInternalServerError, "Error interno"
	default:
		return fiber.StatusBadGateway, "Error de conexión"
	}
}
