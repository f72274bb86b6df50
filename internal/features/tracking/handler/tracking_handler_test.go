package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"trackbot/internal/features/tracking/domain"
	"trackbot/internal/features/tracking/ports"
	"trackbot/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTracker struct {
	result domain.Result
}

func (s *stubTracker) Track(trackingNumber string) domain.Result {
	return s.result
}

func newTestApp(adapters map[string]ports.Tracker) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})

	h := NewTrackingHandler(service.NewRouter(adapters, nil))
	app.Get("/tracking/:number", h.GetTracking)
	return app
}

func TestGetTracking_Success(t *testing.T) {
	adapters := map[string]ports.Tracker{
		"fedex": &stubTracker{result: domain.NewResult(domain.StatusDelivered, "2026-02-25", "MEMPHIS, TN", "Delivered")},
	}
	app := newTestApp(adapters)

	req := httptest.NewRequest("GET", "/tracking/794644790138?carrier=fedex", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result domain.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, domain.StatusDelivered, result.StatusKey)
	assert.Equal(t, "2026-02-25", result.DeliveryDate)
}

func TestGetTracking_CarrierAliasResolves(t *testing.T) {
	adapters := map[string]ports.Tracker{
		"fedex": &stubTracker{result: domain.NewResult(domain.StatusInTransit, "", "", "moving")},
	}
	app := newTestApp(adapters)

	req := httptest.NewRequest("GET", "/tracking/794644790138?carrier=Federal+Express", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetTracking_MissingCarrier(t *testing.T) {
	app := newTestApp(map[string]ports.Tracker{})

	req := httptest.NewRequest("GET", "/tracking/794644790138", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "carrier query parameter is required", body.Message)
	assert.Equal(t, "test-ray-id", body.RayID)
}

func TestGetTracking_UnsupportedCarrier(t *testing.T) {
	app := newTestApp(map[string]ports.Tracker{})

	req := httptest.NewRequest("GET", "/tracking/794644790138?carrier=carrier-x", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "carrier not supported", body.Message)
}

func TestGetTracking_FailureResultStillOK(t *testing.T) {
	adapters := map[string]ports.Tracker{
		"ups": &stubTracker{result: domain.Failure(domain.StatusNotFound, "tracking number not found")},
	}
	app := newTestApp(adapters)

	req := httptest.NewRequest("GET", "/tracking/1Z999?carrier=ups", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Lookup failures are payloads, not transport errors.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result domain.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, domain.StatusNotFound, result.StatusKey)
	assert.NotEmpty(t, result.Error)
}
