package adapters

import (
	"bytes"
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

// FedExAdapter tracks shipments through the FedEx Track API v1.
type FedExAdapter struct {
	apiKey    string
	secretKey string
	tokenURL  string
	trackURL  string
	token     bearerToken
	client    *http.Client
	logger    *zap.Logger
}

// fedexStatusMap maps FedEx latestStatusDetail codes to the common vocabulary.
// Unmapped codes from a successful response fall back to in_transit.
var fedexStatusMap = map[string]domain.StatusKey{
	"DL": domain.StatusDelivered,
	"IT": domain.StatusInTransit,
	"OD": domain.StatusOutForDelivery,
	"DE": domain.StatusException,
	"PU": domain.StatusInTransit,
	"PL": domain.StatusLabelCreated,
}

// NewFedExAdapter creates a FedEx adapter from carrier credentials.
func NewFedExAdapter(cfg config.CarrierConfig) *FedExAdapter {
	return &FedExAdapter{
		apiKey:    cfg.FedExAPIKey,
		secretKey: cfg.FedExSecretKey,
		tokenURL:  "https://apis.fedex.com/oauth/token",
		trackURL:  "https://apis.fedex.com/track/v1/trackingnumbers",
		client:    httpclient.NewClient(requestTimeout),
		logger:    logger.Get(),
	}
}

// fedexTokenResponse is the OAuth token exchange payload.
type fedexTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// fedexTrackResponse covers the slice of the Track API response we consume.
type fedexTrackResponse struct {
	Output struct {
		CompleteTrackResults []struct {
			TrackResults []struct {
				Error *struct {
					Message string `json:"message"`
				} `json:"error"`
				LatestStatusDetail struct {
					Code         string `json:"code"`
					Description  string `json:"description"`
					ScanLocation struct {
						City                string `json:"city"`
						StateOrProvinceCode string `json:"stateOrProvinceCode"`
						CountryCode         string `json:"countryCode"`
					} `json:"scanLocation"`
				} `json:"latestStatusDetail"`
				DateAndTimes []struct {
					Type     string `json:"type"`
					DateTime string `json:"dateTime"`
				} `json:"dateAndTimes"`
			} `json:"trackResults"`
		} `json:"completeTrackResults"`
	} `json:"output"`
}

// authenticate returns a cached bearer token, refreshing it when expired.
func (a *FedExAdapter) authenticate() (string, error) {
	if a.token.valid() {
		return a.token.value, nil
	}
	if a.apiKey == "" || a.secretKey == "" {
		return "", fmt.Errorf("fedex API credentials not configured")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.apiKey},
		"client_secret": {a.secretKey},
	}
	resp, err := a.client.Post(a.tokenURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("fedex token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fedex token request returned status %d", resp.StatusCode)
	}

	var data fedexTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode fedex token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("fedex token response missing access_token")
	}

	expiresIn := data.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	a.token.set(data.AccessToken, expiresIn)
	return a.token.value, nil
}

// Track resolves the current FedEx status for a tracking number.
func (a *FedExAdapter) Track(trackingNumber string) domain.Result {
	token, err := a.authenticate()
	if err != nil {
		a.logger.Error("FedEx tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}

	body, _ := json.Marshal(map[string]interface{}{
		"trackingInfo": []map[string]interface{}{
			{"trackingNumberInfo": map[string]string{"trackingNumber": trackingNumber}},
		},
		"includeDetailedScans": false,
	})

	req, err := http.NewRequest(http.MethodPost, a.trackURL, bytes.NewReader(body))
	if err != nil {
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("FedEx tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("fedex track request returned status %d", resp.StatusCode)
		a.logger.Error("FedEx tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", msg))
		return domain.Failure(domain.StatusUnknown, msg)
	}

	var data fedexTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Failure(domain.StatusUnknown, fmt.Sprintf("failed to decode fedex response: %v", err))
	}

	return a.mapResponse(data)
}

// mapResponse converts the FedEx payload into a normalized result.
func (a *FedExAdapter) mapResponse(data fedexTrackResponse) domain.Result {
	if len(data.Output.CompleteTrackResults) == 0 ||
		len(data.Output.CompleteTrackResults[0].TrackResults) == 0 {
		return domain.Failure(domain.StatusNotFound, "no track results")
	}

	result := data.Output.CompleteTrackResults[0].TrackResults[0]
	if result.Error != nil {
		return domain.Failure(domain.StatusNotFound, result.Error.Message)
	}

	latest := result.LatestStatusDetail
	key, ok := fedexStatusMap[strings.ToUpper(latest.Code)]
	if !ok {
		key = domain.StatusInTransit
	}

	location := joinLocation(
		latest.ScanLocation.City,
		latest.ScanLocation.StateOrProvinceCode,
		latest.ScanLocation.CountryCode,
	)

	var deliveryDate string
	for _, d := range result.DateAndTimes {
		if d.Type == "ACTUAL_DELIVERY" || d.Type == "ESTIMATED_DELIVERY" {
			deliveryDate = domain.NormalizeDate(d.DateTime)
			break
		}
	}

	return domain.NewResult(key, deliveryDate, location, latest.Description)
}
