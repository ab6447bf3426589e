package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const correlationHeader = "x-correlation-id"

// correlationLocal keys the correlation id in the fiber locals.
const correlationLocal = "correlationId"

// CorrelationID honors an incoming x-correlation-id header or mints a
// fresh one, and echoes it on the response so callers can join logs
// across services.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(correlationLocal, id)
		c.Set(correlationHeader, id)
		return c.Next()
	}
}

// correlationID reads the id the middleware attached to the request.
func correlationID(c *fiber.Ctx) string {
	id, _ := c.Locals(correlationLocal).(string)
	return id
}
