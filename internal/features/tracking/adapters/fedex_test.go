package adapters

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trackbot/internal/core/config"
	"trackbot/internal/features/tracking/domain"

	"github.com/stretchr/testify/assert"
)

// newFedExTestServer serves the OAuth token and a canned track response.
func newFedExTestServer(t *testing.T, trackJSON string, tokenCalls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			if tokenCalls != nil {
				*tokenCalls++
			}
			fmt.Fprint(w, `{"access_token":"tok_fedex","expires_in":3600}`)
		case "/track":
			assert.Equal(t, "Bearer tok_fedex", r.Header.Get("Authorization"))
			fmt.Fprint(w, trackJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newFedExTestAdapter(ts *httptest.Server) *FedExAdapter {
	a := NewFedExAdapter(config.CarrierConfig{
		FedExAPIKey:    "key",
		FedExSecretKey: "secret",
	})
	a.tokenURL = ts.URL + "/oauth/token"
	a.trackURL = ts.URL + "/track"
	return a
}

func TestFedExAdapter_Track_Delivered(t *testing.T) {
	trackJSON := `{
		"output": {"completeTrackResults": [{"trackResults": [{
			"latestStatusDetail": {
				"code": "DL",
				"description": "Delivered",
				"scanLocation": {"city": "MEMPHIS", "stateOrProvinceCode": "TN", "countryCode": "US"}
			},
			"dateAndTimes": [
				{"type": "ACTUAL_DELIVERY", "dateTime": "2026-02-25T14:30:00-06:00"}
			]
		}]}]}
	}`
	ts := newFedExTestServer(t, trackJSON, nil)
	defer ts.Close()

	result := newFedExTestAdapter(ts).Track("794644790138")

	assert.Equal(t, domain.StatusDelivered, result.StatusKey)
	assert.Equal(t, "DELIVERED", result.DisplayStatus)
	assert.Equal(t, "2026-02-25", result.DeliveryDate)
	assert.Equal(t, "MEMPHIS, TN, US", result.Location)
	assert.Equal(t, "Delivered", result.RawStatus)
	assert.Empty(t, result.Error)
}

func TestFedExAdapter_Track_UnmappedCodeDefaultsToInTransit(t *testing.T) {
	trackJSON := `{
		"output": {"completeTrackResults": [{"trackResults": [{
			"latestStatusDetail": {"code": "ZZ", "description": "Mystery scan"}
		}]}]}
	}`
	ts := newFedExTestServer(t, trackJSON, nil)
	defer ts.Close()

	result := newFedExTestAdapter(ts).Track("794644790138")

	assert.Equal(t, domain.StatusInTransit, result.StatusKey)
	assert.True(t, result.Trustworthy())
}

func TestFedExAdapter_Track_UpstreamError(t *testing.T) {
	trackJSON := `{
		"output": {"completeTrackResults": [{"trackResults": [{
			"error": {"message": "tracking number cannot be found"}
		}]}]}
	}`
	ts := newFedExTestServer(t, trackJSON, nil)
	defer ts.Close()

	result := newFedExTestAdapter(ts).Track("000000000000")

	assert.Equal(t, domain.StatusNotFound, result.StatusKey)
	assert.Contains(t, result.Error, "cannot be found")
}

func TestFedExAdapter_Track_MissingCredentials(t *testing.T) {
	a := NewFedExAdapter(config.CarrierConfig{})

	result := a.Track("794644790138")

	assert.Equal(t, domain.StatusUnknown, result.StatusKey)
	assert.Contains(t, result.Error, "not configured")
}

func TestFedExAdapter_Track_TokenReusedAcrossCalls(t *testing.T) {
	trackJSON := `{
		"output": {"completeTrackResults": [{"trackResults": [{
			"latestStatusDetail": {"code": "IT", "description": "In transit"}
		}]}]}
	}`
	var tokenCalls int
	ts := newFedExTestServer(t, trackJSON, &tokenCalls)
	defer ts.Close()

	a := newFedExTestAdapter(ts)
	a.Track("794644790138")
	a.Track("794644790139")

	assert.Equal(t, 1, tokenCalls)
}

func TestFedExAdapter_Track_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			fmt.Fprint(w, `{"access_token":"tok_fedex","expires_in":3600}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := newFedExTestAdapter(ts)

	result := a.Track("794644790138")

	assert.Equal(t, domain.StatusUnknown, result.StatusKey)
	assert.NotEmpty(t, result.Error)
	assert.False(t, result.Trustworthy())
}
