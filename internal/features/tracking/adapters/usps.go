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

// USPSAdapter tracks shipments through the USPS Tracking API v3.
type USPSAdapter struct {
	clientID     string
	clientSecret string
	tokenURL     string
	trackURL     string
	token        bearerToken
	client       *http.Client
	logger       *zap.Logger
}

// uspsStatusMap maps USPS status categories to the common vocabulary.
var uspsStatusMap = map[string]domain.StatusKey{
	"DELIVERED":        domain.StatusDelivered,
	"IN_TRANSIT":       domain.StatusInTransit,
	"OUT_FOR_DELIVERY": domain.StatusOutForDelivery,
	"ALERT":            domain.StatusException,
	"PRE_TRANSIT":      domain.StatusLabelCreated,
	"ACCEPTED":         domain.StatusInTransit,
}

// NewUSPSAdapter creates a USPS adapter from carrier credentials.
func NewUSPSAdapter(cfg config.CarrierConfig) *USPSAdapter {
	return &USPSAdapter{
		clientID:     cfg.USPSClientID,
		clientSecret: cfg.USPSClientSecret,
		tokenURL:     "https://api.usps.com/oauth2/v3/token",
		trackURL:     "https://api.usps.com/tracking/v3/tracking",
		client:       httpclient.NewClient(requestTimeout),
		logger:       logger.Get(),
	}
}

type uspsTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type uspsTrackResponse struct {
	StatusCategory       string `json:"statusCategory"`
	Status               string `json:"status"`
	DestinationCity      string `json:"destinationCity"`
	DestinationState     string `json:"destinationState"`
	ActualDeliveryDate   string `json:"actualDeliveryDate"`
	ExpectedDeliveryDate string `json:"expectedDeliveryDate"`
}

// authenticate returns a cached bearer token, refreshing it when expired.
func (a *USPSAdapter) authenticate() (string, error) {
	if a.token.valid() {
		return a.token.value, nil
	}
	if a.clientID == "" || a.clientSecret == "" {
		return "", fmt.Errorf("usps API credentials not configured")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
	}
	resp, err := a.client.Post(a.tokenURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("usps token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("usps token request returned status %d", resp.StatusCode)
	}

	var data uspsTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode usps token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("usps token response missing access_token")
	}

	expiresIn := data.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	a.token.set(data.AccessToken, expiresIn)
	return a.token.value, nil
}

// Track resolves the current USPS status for a tracking number.
func (a *USPSAdapter) Track(trackingNumber string) domain.Result {
	token, err := a.authenticate()
	if err != nil {
		a.logger.Error("USPS tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}

	req, err := http.NewRequest(http.MethodGet, a.trackURL+"/"+trackingNumber, nil)
	if err != nil {
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("USPS tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	defer resp.Body.Close()

	// USPS answers an authoritative 404 for unknown tracking numbers.
	if resp.StatusCode == http.StatusNotFound {
		return domain.Failure(domain.StatusNotFound, "tracking number not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("usps track request returned status %d", resp.StatusCode)
		a.logger.Error("USPS tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", msg))
		return domain.Failure(domain.StatusUnknown, msg)
	}

	var data uspsTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Failure(domain.StatusUnknown, fmt.Sprintf("failed to decode usps response: %v", err))
	}

	return a.mapResponse(data)
}

// mapResponse converts the USPS payload into a normalized result.
func (a *USPSAdapter) mapResponse(data uspsTrackResponse) domain.Result {
	key, ok := uspsStatusMap[strings.ToUpper(data.StatusCategory)]
	if !ok {
		key = domain.StatusInTransit
	}

	location := joinLocation(data.DestinationCity, data.DestinationState)

	deliveryDate := domain.NormalizeDate(data.ActualDeliveryDate)
	if deliveryDate == "" {
		deliveryDate = domain.NormalizeDate(data.ExpectedDeliveryDate)
	}

	return domain.NewResult(key, deliveryDate, location, data.Status)
}
