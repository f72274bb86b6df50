package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"trackbot/internal/core/config"
	"trackbot/internal/core/httpclient"
	"trackbot/internal/core/logger"
	"trackbot/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// 17TRACK carrier codes used when another adapter delegates with its identity.
const (
	// CarrierAuto lets the aggregator detect the carrier from the number format.
	CarrierAuto = 0
	// CarrierRoyalMail is the aggregator's Royal Mail code.
	CarrierRoyalMail = 11031
)

// alreadyRegistered is the aggregator's rejection code for a number it knows.
// Registration is idempotent: this rejection counts as success.
const alreadyRegistered = -18019902

// SeventeenTrackAdapter tracks shipments through the 17TRACK aggregator.
// The aggregator speaks a two-step protocol: register the number, then
// query its tracking info. Package status arrives as a numeric code.
type SeventeenTrackAdapter struct {
	apiKey      string
	registerURL string
	queryURL    string
	client      *http.Client
	logger      *zap.Logger
}

// seventeenStatusMap maps the aggregator's numeric package status to the
// common vocabulary. This table is independent of the per-carrier API maps.
var seventeenStatusMap = map[int]domain.StatusKey{
	0:  domain.StatusNotFound,       // Not found
	10: domain.StatusInTransit,      // In transit
	20: domain.StatusException,      // Expired
	30: domain.StatusOutForDelivery, // Ready for pickup
	35: domain.StatusException,      // Undelivered
	40: domain.StatusDelivered,      // Delivered
	50: domain.StatusException,      // Alert
}

// NewSeventeenTrackAdapter creates the shared aggregator adapter.
func NewSeventeenTrackAdapter(cfg config.CarrierConfig) *SeventeenTrackAdapter {
	return &SeventeenTrackAdapter{
		apiKey:      cfg.SeventeenTrackAPIKey,
		registerURL: "https://api.17track.net/track/v1/register",
		queryURL:    "https://api.17track.net/track/v1/gettrackinfo",
		client:      httpclient.NewClient(requestTimeout),
		logger:      logger.Get(),
	}
}

type seventeenRequest struct {
	Number  string `json:"number"`
	Carrier int    `json:"carrier,omitempty"`
}

type seventeenResponse struct {
	Code int `json:"code"`
	Data struct {
		Accepted []struct {
			Number string `json:"number"`
			Track  struct {
				// E is the numeric package status.
				E int `json:"e"`
				// Z0 is the latest tracking event.
				Z0 struct {
					A string `json:"a"` // event time
					C string `json:"c"` // location
					Z string `json:"z"` // description
				} `json:"z0"`
			} `json:"track"`
		} `json:"accepted"`
		Rejected []struct {
			Number string `json:"number"`
			Error  struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"rejected"`
	} `json:"data"`
}

// Track resolves a tracking number with carrier auto-detection.
func (a *SeventeenTrackAdapter) Track(trackingNumber string) domain.Result {
	return a.TrackCarrier(trackingNumber, CarrierAuto)
}

// TrackCarrier resolves a tracking number for a specific aggregator carrier
// code. Delegating adapters pass their own identity here.
func (a *SeventeenTrackAdapter) TrackCarrier(trackingNumber string, carrier int) domain.Result {
	if a.apiKey == "" {
		err := "17track API key not configured"
		a.logger.Error("17TRACK tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", err))
		return domain.Failure(domain.StatusUnknown, err)
	}

	if err := a.register(trackingNumber, carrier); err != nil {
		a.logger.Error("17TRACK registration error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}

	data, err := a.call(a.queryURL, trackingNumber, carrier)
	if err != nil {
		a.logger.Error("17TRACK tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}

	return a.mapResponse(data)
}

// register submits the number to the aggregator. Re-registering an already
// known number is treated as success.
func (a *SeventeenTrackAdapter) register(trackingNumber string, carrier int) error {
	data, err := a.call(a.registerURL, trackingNumber, carrier)
	if err != nil {
		return err
	}

	if len(data.Data.Accepted) > 0 {
		return nil
	}
	for _, rej := range data.Data.Rejected {
		if rej.Error.Code == alreadyRegistered {
			return nil
		}
		return fmt.Errorf("17track registration rejected: %s", rej.Error.Message)
	}
	return fmt.Errorf("17track registration produced no result")
}

// call posts a single-number request to an aggregator endpoint.
func (a *SeventeenTrackAdapter) call(endpoint, trackingNumber string, carrier int) (*seventeenResponse, error) {
	body, _ := json.Marshal([]seventeenRequest{{Number: trackingNumber, Carrier: carrier}})

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("17token", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("17track request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("17track request returned status %d", resp.StatusCode)
	}

	var data seventeenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode 17track response: %w", err)
	}
	if data.Code != 0 {
		return nil, fmt.Errorf("17track returned error code %d", data.Code)
	}
	return &data, nil
}

// mapResponse converts the aggregator payload into a normalized result.
func (a *SeventeenTrackAdapter) mapResponse(data *seventeenResponse) domain.Result {
	if len(data.Data.Accepted) == 0 {
		return domain.Failure(domain.StatusNotFound, "number not accepted by aggregator")
	}

	track := data.Data.Accepted[0].Track
	key, ok := seventeenStatusMap[track.E]
	if !ok {
		key = domain.StatusInTransit
	}
	if key == domain.StatusNotFound {
		return domain.Failure(domain.StatusNotFound, "aggregator has no information")
	}

	// The aggregator reports event times, not delivery estimates; only a
	// delivered event yields a date.
	var deliveryDate string
	if key == domain.StatusDelivered {
		deliveryDate = domain.NormalizeDate(track.Z0.A)
	}

	return domain.NewResult(key, deliveryDate, track.Z0.C, track.Z0.Z)
}
