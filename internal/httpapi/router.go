// Package httpapi exposes the order command API over fiber: order
// creation with idempotent replay, order lookup and a health probe.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

func NewRouter(app *fiber.App, orders orderService, logger zerolog.Logger) {
	h := &handlers{orders: orders, logger: logger}

	app.Use(CorrelationID())

	app.Get("/health", h.health)
	app.Post("/orders", h.createOrder)
	app.Get("/orders/:id", h.getOrder)
}
