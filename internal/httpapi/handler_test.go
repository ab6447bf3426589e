package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/order"
)

type stubService struct {
	createOrder   *order.Order
	createCreated bool
	createErr     error
	gotInput      order.CreateOrderInput

	getOrder *order.Order
	getErr   error
}

func (s *stubService) CreateOrder(_ context.Context, in order.CreateOrderInput) (*order.Order, bool, error) {
	s.gotInput = in
	if s.createErr != nil {
		return nil, false, s.createErr
	}
	return s.createOrder, s.createCreated, nil
}

func (s *stubService) GetOrder(_ context.Context, _ uuid.UUID) (*order.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getOrder, nil
}

func newTestApp(svc orderService) *fiber.App {
	app := fiber.New()
	NewRouter(app, svc, zerolog.Nop())
	return app
}

func postOrder(t *testing.T, app *fiber.App, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateOrder(t *testing.T) {
	userID := uuid.New()
	stored := &order.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Product:        "Book",
		Quantity:       1,
		Price:          10,
		IdempotencyKey: "key-1",
	}
	body := fmt.Sprintf(`{"userId":"%s","product":"Book","quantity":1,"price":10}`, userID)

	testcases := []struct {
		name       string
		svc        *stubService
		body       string
		wantStatus int
	}{
		{
			name:       "new order is created",
			svc:        &stubService{createOrder: stored, createCreated: true},
			body:       body,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "replay returns the stored order",
			svc:        &stubService{createOrder: stored, createCreated: false},
			body:       body,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			svc:        &stubService{},
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "validation failure",
			svc:        &stubService{createErr: &order.ValidationError{Field: "quantity", Reason: "must be at least 1"}},
			body:       body,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown user",
			svc:        &stubService{createErr: fmt.Errorf("%w: %s", order.ErrUnknownUser, userID)},
			body:       body,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage failure",
			svc:        &stubService{createErr: errors.New("boom")},
			body:       body,
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(tc.svc)
			resp := postOrder(t, app, tc.body, nil)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			if tc.wantStatus == http.StatusCreated || tc.wantStatus == http.StatusOK {
				var got order.Order
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, *stored, got)
			}
		})
	}
}

func TestCreateOrderForwardsIdempotencyKeyHeader(t *testing.T) {
	userID := uuid.New()
	svc := &stubService{createOrder: &order.Order{ID: uuid.New()}, createCreated: true}
	app := newTestApp(svc)

	body := fmt.Sprintf(`{"userId":"%s","product":"Book","quantity":1,"price":10}`, userID)
	resp := postOrder(t, app, body, map[string]string{"Idempotency-Key": "client-key-42"})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "client-key-42", svc.gotInput.IdempotencyKey)
	assert.Equal(t, userID, svc.gotInput.UserID)
}

func TestGetOrder(t *testing.T) {
	stored := &order.Order{ID: uuid.New(), Product: "Book", Quantity: 1, Price: 10}

	testcases := []struct {
		name       string
		svc        *stubService
		path       string
		wantStatus int
	}{
		{
			name:       "order found",
			svc:        &stubService{getOrder: stored},
			path:       "/orders/" + stored.ID.String(),
			wantStatus: http.StatusOK,
		},
		{
			name:       "order not found",
			svc:        &stubService{getErr: order.ErrNotFound},
			path:       "/orders/" + uuid.New().String(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed id",
			svc:        &stubService{},
			path:       "/orders/not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage failure",
			svc:        &stubService{getErr: errors.New("boom")},
			path:       "/orders/" + uuid.New().String(),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(tc.svc)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	app := newTestApp(&stubService{getOrder: &order.Order{ID: uuid.New()}})

	t.Run("incoming header is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(correlationHeader, "abc-123")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "abc-123", resp.Header.Get(correlationHeader))
	})

	t.Run("missing header gets a generated id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		id := resp.Header.Get(correlationHeader)
		_, parseErr := uuid.Parse(id)
		assert.NoError(t, parseErr)
	})
}

func TestHealth(t *testing.T) {
	app := newTestApp(&stubService{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
