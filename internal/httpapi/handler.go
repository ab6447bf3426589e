package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orderflow/internal/order"
)

// orderService is the slice of the order service the handlers need.
type orderService interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (*order.Order, bool, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type handlers struct {
	orders orderService
	logger zerolog.Logger
}

type createOrderRequest struct {
	UserID   uuid.UUID `json:"userId"`
	Product  string    `json:"product"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

type errorResponseBody struct {
	Error string `json:"error"`
}

func errorResponse(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponseBody{Error: msg})
}

// createOrder accepts a creation command. The optional Idempotency-Key
// header dedups retries; replays of an already-stored command return the
// original order with a 200 instead of a 201.
func (h *handlers) createOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}

	o, created, err := h.orders.CreateOrder(c.UserContext(), order.CreateOrderInput{
		UserID:         req.UserID,
		Product:        req.Product,
		Quantity:       req.Quantity,
		Price:          req.Price,
		IdempotencyKey: c.Get("Idempotency-Key"),
	})
	if err != nil {
		var verr *order.ValidationError
		switch {
		case errors.As(err, &verr):
			return errorResponse(c, http.StatusBadRequest, verr.Error())
		case errors.Is(err, order.ErrUnknownUser):
			return errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("correlation_id", correlationID(c)).Msg("creating order")
			return errorResponse(c, http.StatusInternalServerError, "internal error")
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(o)
}

func (h *handlers) getOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid id")
	}

	o, err := h.orders.GetOrder(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "order not found")
		}
		h.logger.Error().Err(err).Str("correlation_id", correlationID(c)).Msg("fetching order")
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}

	return c.JSON(o)
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
