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

// UPSAdapter tracks shipments through the UPS Tracking API v1.
type UPSAdapter struct {
	clientID     string
	clientSecret string
	tokenURL     string
	trackURL     string
	token        bearerToken
	client       *http.Client
	logger       *zap.Logger
}

// upsStatusMap maps UPS activity status types to the common vocabulary.
var upsStatusMap = map[string]domain.StatusKey{
	"D": domain.StatusDelivered,
	"I": domain.StatusInTransit,
	"P": domain.StatusInTransit,
	"M": domain.StatusLabelCreated,
	"X": domain.StatusException,
	"O": domain.StatusOutForDelivery,
}

// NewUPSAdapter creates a UPS adapter from carrier credentials.
func NewUPSAdapter(cfg config.CarrierConfig) *UPSAdapter {
	return &UPSAdapter{
		clientID:     cfg.UPSClientID,
		clientSecret: cfg.UPSClientSecret,
		tokenURL:     "https://onlinetools.ups.com/security/v1/oauth/token",
		trackURL:     "https://onlinetools.ups.com/api/track/v1/details",
		client:       httpclient.NewClient(requestTimeout),
		logger:       logger.Get(),
	}
}

type upsTokenResponse struct {
	AccessToken string `json:"access_token"`
	// UPS returns expires_in as a string.
	ExpiresIn json.Number `json:"expires_in"`
}

type upsTrackResponse struct {
	TrackResponse struct {
		Shipment []struct {
			Package []struct {
				Activity []struct {
					Date   string `json:"date"`
					Status struct {
						Type        string `json:"type"`
						Description string `json:"description"`
					} `json:"status"`
					Location struct {
						Address struct {
							City          string `json:"city"`
							StateProvince string `json:"stateProvince"`
							Country       string `json:"country"`
						} `json:"address"`
					} `json:"location"`
				} `json:"activity"`
				DeliveryDate []struct {
					Date string `json:"date"`
				} `json:"deliveryDate"`
			} `json:"package"`
		} `json:"shipment"`
	} `json:"trackResponse"`
}

// authenticate returns a cached bearer token, refreshing it when expired.
// UPS issues long-lived tokens (14400s default).
func (a *UPSAdapter) authenticate() (string, error) {
	if a.token.valid() {
		return a.token.value, nil
	}
	if a.clientID == "" || a.clientSecret == "" {
		return "", fmt.Errorf("ups API credentials not configured")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequest(http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ups token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ups token request returned status %d", resp.StatusCode)
	}

	var data upsTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode ups token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("ups token response missing access_token")
	}

	expiresIn, err := data.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		expiresIn = 14400
	}
	a.token.set(data.AccessToken, expiresIn)
	return a.token.value, nil
}

// Track resolves the current UPS status for a tracking number.
func (a *UPSAdapter) Track(trackingNumber string) domain.Result {
	token, err := a.authenticate()
	if err != nil {
		a.logger.Error("UPS tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}

	transID := trackingNumber
	if len(transID) > 20 {
		transID = transID[:20]
	}

	reqURL := fmt.Sprintf("%s/%s?locale=en_US&returnSignature=false", a.trackURL, trackingNumber)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("transId", "track-"+transID)
	req.Header.Set("transactionSrc", "trackbot")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("UPS tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Failure(domain.StatusNotFound, "tracking number not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("ups track request returned status %d", resp.StatusCode)
		a.logger.Error("UPS tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", msg))
		return domain.Failure(domain.StatusUnknown, msg)
	}

	var data upsTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Failure(domain.StatusUnknown, fmt.Sprintf("failed to decode ups response: %v", err))
	}

	return a.mapResponse(data)
}

// mapResponse converts the UPS payload into a normalized result.
func (a *UPSAdapter) mapResponse(data upsTrackResponse) domain.Result {
	if len(data.TrackResponse.Shipment) == 0 || len(data.TrackResponse.Shipment[0].Package) == 0 {
		return domain.Failure(domain.StatusNotFound, "no shipment data")
	}

	pkg := data.TrackResponse.Shipment[0].Package[0]
	if len(pkg.Activity) == 0 {
		return domain.Failure(domain.StatusNotFound, "no activity")
	}

	latest := pkg.Activity[0]
	key, ok := upsStatusMap[strings.ToUpper(latest.Status.Type)]
	if !ok {
		key = domain.StatusInTransit
	}

	location := joinLocation(
		latest.Location.Address.City,
		latest.Location.Address.StateProvince,
		latest.Location.Address.Country,
	)

	// UPS delivery dates arrive as bare YYYYMMDD strings.
	var deliveryDate string
	if len(pkg.DeliveryDate) > 0 {
		deliveryDate = domain.NormalizeDate(pkg.DeliveryDate[0].Date)
	}
	if key == domain.StatusDelivered && deliveryDate == "" {
		deliveryDate = domain.NormalizeDate(latest.Date)
	}

	return domain.NewResult(key, deliveryDate, location, latest.Status.Description)
}
