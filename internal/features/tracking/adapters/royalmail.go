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

// RoyalMailAdapter tracks shipments through the Royal Mail Tracking API v2.
// Royal Mail reports free-text status descriptions, so mapping is an ordered
// phrase scan rather than a code table. When the direct API call fails the
// adapter delegates to the shared aggregator with its own carrier identity.
type RoyalMailAdapter struct {
	apiKey   string
	trackURL string
	client   *http.Client
	fallback *SeventeenTrackAdapter
	logger   *zap.Logger
}

// phraseRule maps a status-description substring to a status key.
// Rules are scanned in order; the first match wins.
type phraseRule struct {
	phrase string
	key    domain.StatusKey
}

var royalMailPhraseRules = []phraseRule{
	{"delivered", domain.StatusDelivered},
	{"out for delivery", domain.StatusOutForDelivery},
	{"with delivery", domain.StatusOutForDelivery},
	{"collected", domain.StatusInTransit},
	{"accepted", domain.StatusInTransit},
	{"in transit", domain.StatusInTransit},
	{"transit", domain.StatusInTransit},
	{"arrived", domain.StatusInTransit},
	{"exception", domain.StatusException},
	{"returned", domain.StatusException},
	{"failed", domain.StatusException},
	{"posted", domain.StatusLabelCreated},
	{"dispatched", domain.StatusLabelCreated},
}

// NewRoyalMailAdapter creates a Royal Mail adapter. The fallback aggregator
// may be nil when no aggregator key is configured.
func NewRoyalMailAdapter(cfg config.CarrierConfig, fallback *SeventeenTrackAdapter) *RoyalMailAdapter {
	return &RoyalMailAdapter{
		apiKey:   cfg.RoyalMailAPIKey,
		trackURL: "https://api.royalmail.net/tracking/v2/events",
		client:   httpclient.NewClient(requestTimeout),
		fallback: fallback,
		logger:   logger.Get(),
	}
}

type royalMailResponse struct {
	MailPieces []struct {
		Summary struct {
			StatusDescription     string `json:"statusDescription"`
			EstimatedDeliveryDate struct {
				StartOfEstimatedWindow string `json:"startOfEstimatedWindow"`
			} `json:"estimatedDeliveryDate"`
		} `json:"summary"`
		Events []struct {
			EventDateTime string `json:"eventDateTime"`
			LocationName  string `json:"locationName"`
		} `json:"events"`
	} `json:"mailPieces"`
}

// Track resolves the current Royal Mail status for a tracking number,
// chaining to the aggregator when the direct lookup fails.
func (a *RoyalMailAdapter) Track(trackingNumber string) domain.Result {
	result := a.trackDirect(trackingNumber)
	if result.Error != "" && result.StatusKey == domain.StatusUnknown && a.fallback != nil {
		a.logger.Warn("Royal Mail direct lookup failed, delegating to aggregator",
			zap.String("tracking_number", trackingNumber),
			zap.String("error", result.Error),
		)
		return a.fallback.TrackCarrier(trackingNumber, CarrierRoyalMail)
	}
	return result
}

func (a *RoyalMailAdapter) trackDirect(trackingNumber string) domain.Result {
	if a.apiKey == "" {
		return domain.Failure(domain.StatusUnknown, "royal mail API key not configured")
	}

	reqURL := a.trackURL + "?trackingNumber=" + url.QueryEscape(trackingNumber)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	req.Header.Set("x-ibm-client-id", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("Royal Mail tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Failure(domain.StatusNotFound, "tracking number not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("royal mail track request returned status %d", resp.StatusCode)
		a.logger.Error("Royal Mail tracking error", zap.String("tracking_number", trackingNumber), zap.String("error", msg))
		return domain.Failure(domain.StatusUnknown, msg)
	}

	var data royalMailResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Failure(domain.StatusUnknown, fmt.Sprintf("failed to decode royal mail response: %v", err))
	}

	return a.mapResponse(data)
}

// mapResponse converts the Royal Mail payload into a normalized result.
func (a *RoyalMailAdapter) mapResponse(data royalMailResponse) domain.Result {
	if len(data.MailPieces) == 0 {
		return domain.Failure(domain.StatusNotFound, "no mail pieces in response")
	}

	piece := data.MailPieces[0]
	rawStatus := piece.Summary.StatusDescription
	key := matchPhrase(royalMailPhraseRules, rawStatus, domain.StatusInTransit)

	var location string
	if len(piece.Events) > 0 {
		location = piece.Events[0].LocationName
	}

	var deliveryDate string
	if key == domain.StatusDelivered && len(piece.Events) > 0 {
		deliveryDate = domain.NormalizeDate(piece.Events[0].EventDateTime)
	}
	if deliveryDate == "" {
		deliveryDate = domain.NormalizeDate(piece.Summary.EstimatedDeliveryDate.StartOfEstimatedWindow)
	}

	return domain.NewResult(key, deliveryDate, location, rawStatus)
}

// matchPhrase scans ordered phrase rules against text, case-insensitive,
// first match wins. Returns fallback when nothing matches.
func matchPhrase(rules []phraseRule, text string, fallback domain.StatusKey) domain.StatusKey {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		if strings.Contains(lower, rule.phrase) {
			return rule.key
		}
	}
	return fallback
}
