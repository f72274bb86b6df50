package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trackbot/internal/core/config"
	"trackbot/internal/core/httpclient"
	"trackbot/internal/core/logger"
	"trackbot/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// DHLAdapter tracks shipments through the DHL Unified Tracking API.
// DHL authenticates with a static API key, no token exchange.
type DHLAdapter struct {
	apiKey   string
	trackURL string
	client   *http.Client
	logger   *zap.Logger
}

// dhlStatusMap maps DHL status codes to the common vocabulary.
var dhlStatusMap = map[string]domain.StatusKey{
	"delivered":   domain.StatusDelivered,
	"transit":     domain.StatusInTransit,
	"failure":     domain.StatusException,
	"pre-transit": domain.StatusLabelCreated,
	"unknown":     domain.StatusUnknown,
}

// NewDHLAdapter creates a DHL adapter from carrier credentials.
func NewDHLAdapter(cfg config.CarrierConfig) *DHLAdapter {
	return &DHLAdapter{
		apiKey:   cfg.DHLAPIKey,
		trackURL: "https://api-eu.dhl.com/track/shipments",
		client:   httpclient.NewClient(requestTimeout),
		logger:   logger.Get(),
	}
}

type dhlTrackResponse struct {
	Shipments []struct {
		Status struct {
			StatusCode  string `json:"statusCode"`
			Description string `json:"description"`
			Timestamp   string `json:"timestamp"`
			Location    struct {
				Address struct {
					AddressLocality string `json:"addressLocality"`
				} `json:"address"`
			} `json:"location"`
		} `json:"status"`
		EstimatedTimeOfDelivery string `json:"estimatedTimeOfDelivery"`
	} `json:"shipments"`
}

// Track resolves the current DHL status for a tracking number.
func (a *DHLAdapter) Track(trackingNumber string) domain.Result {
	if a.apiKey == "" {
		err := "dhl API key not configured"
		a.logger.Error("DHL tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", err))
		return domain.Failure(domain.StatusUnknown, err)
	}

	reqURL := a.trackURL + "?trackingNumber=" + url.QueryEscape(trackingNumber)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	req.Header.Set("DHL-API-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("DHL tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Failure(domain.StatusNotFound, "tracking number not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("dhl track request returned status %d", resp.StatusCode)
		a.logger.Error("DHL tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", msg))
		return domain.Failure(domain.StatusUnknown, msg)
	}

	var data dhlTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Failure(domain.StatusUnknown, fmt.Sprintf("failed to decode dhl response: %v", err))
	}

	return a.mapResponse(data)
}

// mapResponse converts the DHL payload into a normalized result.
func (a *DHLAdapter) mapResponse(data dhlTrackResponse) domain.Result {
	if len(data.Shipments) == 0 {
		return domain.Failure(domain.StatusNotFound, "no shipments in response")
	}

	shipment := data.Shipments[0]
	key, ok := dhlStatusMap[strings.ToLower(shipment.Status.StatusCode)]
	if !ok {
		key = domain.StatusInTransit
	}
	if key == domain.StatusUnknown {
		// DHL's own "unknown" category carries no usable signal.
		return domain.Failure(domain.StatusUnknown, "dhl reports unknown status")
	}

	var deliveryDate string
	if key == domain.StatusDelivered {
		deliveryDate = domain.NormalizeDate(shipment.Status.Timestamp)
	} else {
		deliveryDate = domain.NormalizeDate(shipment.EstimatedTimeOfDelivery)
	}

	location := shipment.Status.Location.Address.AddressLocality

	return domain.NewResult(key, deliveryDate, location, shipment.Status.Description)
}
