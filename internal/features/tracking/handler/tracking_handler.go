package handler

import (
	"trackbot/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
)

// TrackingHandler handles HTTP requests for on-demand tracking lookups.
type TrackingHandler struct {
	router *service.Router
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(router *service.Router) *TrackingHandler {
	return &TrackingHandler{router: router}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// GetTracking godoc
// @Summary Look up the normalized status of a shipment
// @Description Resolves the current status for a tracking number via the carrier's adapter
// @Tags tracking
// @Accept json
// @Produce json
// @Param number path string true "Tracking Number"
// @Param carrier query string true "Carrier name (e.g., fedex, ups, royal mail)"
// @Success 200 {object} domain.Result
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tracking/{number} [get]
func (h *TrackingHandler) GetTracking(c *fiber.Ctx) error {
	trackingNumber := c.Params("number")
	if trackingNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "tracking number is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	carrier := c.Query("carrier")
	if carrier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "carrier query parameter is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	if !h.router.Supports(carrier) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "carrier not supported",
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(h.router.Track(trackingNumber, carrier))
}
