package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trackbot/internal/core/config"
	"trackbot/internal/features/shipments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authPath = "/open-apis/auth/v3/tenant_access_token/internal"

// newLarkTestClient builds a client against a test server that already
// handles the auth exchange; handler receives every other request.
func newLarkTestClient(t *testing.T, handler http.HandlerFunc) (*LarkClient, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == authPath {
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "app-id", creds["app_id"])
			assert.Equal(t, "app-secret", creds["app_secret"])
			fmt.Fprint(w, `{"code": 0, "tenant_access_token": "t-token", "expire": 7200}`)
			return
		}
		assert.Equal(t, "Bearer t-token", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	client := NewLarkClient(config.LarkConfig{
		AppID:     "app-id",
		AppSecret: "app-secret",
		ChatID:    "oc_chat",
		BaseURL:   ts.URL,
	})
	return client, ts
}

func TestLarkClient_ListTabs_V3(t *testing.T) {
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/sheets/v3/spreadsheets/tok1/sheets/query", r.URL.Path)
		fmt.Fprint(w, `{"code": 0, "data": {"sheets": [
			{"title": "Hannah", "sheet_id": "sh1"},
			{"title": "TEMPLATE", "sheet_id": "sh2"},
			{"title": "FEB", "sheet_id": "sh3"}
		]}}`)
	})

	tabs, err := client.ListTabs("tok1")

	require.NoError(t, err)
	assert.Equal(t, []domain.Tab{
		{Title: "Hannah", SheetID: "sh1"},
		{Title: "FEB", SheetID: "sh3"},
	}, tabs)
}

func TestLarkClient_ListTabs_FallsBackToV2(t *testing.T) {
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sheets/v3/") {
			fmt.Fprint(w, `{"code": 1254005, "msg": "not supported"}`)
			return
		}
		assert.Equal(t, "/open-apis/sheets/v2/spreadsheets/tok1/metainfo", r.URL.Path)
		fmt.Fprint(w, `{"code": 0, "data": {"sheets": [
			{"title": "Lucy", "sheetId": "sh9"}
		]}}`)
	})

	tabs, err := client.ListTabs("tok1")

	require.NoError(t, err)
	assert.Equal(t, []domain.Tab{{Title: "Lucy", SheetID: "sh9"}}, tabs)
}

func TestLarkClient_ListTabs_BothEndpointsFail(t *testing.T) {
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.ListTabs("tok1")

	assert.Error(t, err)
}

func TestLarkClient_ReadItems(t *testing.T) {
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/values/sh1!A3:Q500")
		assert.Equal(t, "ToString", r.URL.Query().Get("valueRenderOption"))
		fmt.Fprint(w, `{"code": 0, "data": {"valueRange": {"values": [
			["S-1", "Vendor A", "BRENDAN", "ORD-1", "Acme", "", "1Z999", "UPS", "", "", "", "", "IN TRANSIT", "", "", "", "2026-02-20"],
			["S-2", "Vendor B", "", "ORD-2", "", "", "", "", "", "", "", "", "", "", "", "", ""],
			["S-3", 42, "Alice", "ORD-3", "Bravo", "", "9400100", "USPS", "", "", "", "", "DELIVERED", "", "", "", ""]
		]}}}`)
	})

	items, err := client.ReadItems("tok1", domain.Tab{Title: "FEB", SheetID: "sh1"})

	require.NoError(t, err)
	require.Len(t, items, 2)

	// Row without a tracking number is skipped; numbering still tracks the sheet.
	assert.Equal(t, 3, items[0].RowNum)
	assert.Equal(t, 5, items[1].RowNum)

	first := items[0]
	assert.Equal(t, "tok1", first.SheetToken)
	assert.Equal(t, "sh1", first.SheetID)
	assert.Equal(t, "FEB", first.Tab)
	assert.Equal(t, "BRENDAN", first.Recipient)
	assert.Equal(t, "1Z999", first.TrackingNum)
	assert.Equal(t, "UPS", first.Carrier)
	assert.Equal(t, "IN TRANSIT", first.CurrentStatus)
	assert.Equal(t, "2026-02-20", first.DeliveryDate)

	// Non-string cells coerce to their printed form.
	assert.Equal(t, "42", items[1].Vendor)
}

func TestLarkClient_WriteStatus_WithDate(t *testing.T) {
	var payload struct {
		ValueRanges []struct {
			Range  string          `json:"range"`
			Values [][]interface{} `json:"values"`
		} `json:"valueRanges"`
	}
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/sheets/v2/spreadsheets/tok1/values_batch_update", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"code": 0}`)
	})

	err := client.WriteStatus("tok1", "sh1", 7, "DELIVERED", "2026-02-25")

	require.NoError(t, err)
	require.Len(t, payload.ValueRanges, 2)
	assert.Equal(t, "sh1!M7:M7", payload.ValueRanges[0].Range)
	assert.Equal(t, "DELIVERED", payload.ValueRanges[0].Values[0][0])
	assert.Equal(t, "sh1!Q7:Q7", payload.ValueRanges[1].Range)
	assert.Equal(t, "2026-02-25", payload.ValueRanges[1].Values[0][0])
}

func TestLarkClient_WriteStatus_NoDateWritesOnlyStatus(t *testing.T) {
	var payload struct {
		ValueRanges []json.RawMessage `json:"valueRanges"`
	}
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"code": 0}`)
	})

	err := client.WriteStatus("tok1", "sh1", 7, "IN TRANSIT", "")

	require.NoError(t, err)
	assert.Len(t, payload.ValueRanges, 1)
}

func TestLarkClient_Send_InteractiveCard(t *testing.T) {
	var payload map[string]string
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/im/v1/messages", r.URL.Path)
		assert.Equal(t, "chat_id", r.URL.Query().Get("receive_id_type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"code": 0}`)
	})

	err := client.Send("**Shipment Tracker**\nreport body")

	require.NoError(t, err)
	assert.Equal(t, "oc_chat", payload["receive_id"])
	assert.Equal(t, "interactive", payload["msg_type"])
	assert.Contains(t, payload["content"], "Shipment Update")
	assert.Contains(t, payload["content"], "report body")
}

func TestLarkClient_Send_NoChatIDIsNoop(t *testing.T) {
	called := false
	client, _ := newLarkTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	client.chatID = ""

	err := client.Send("hello")

	assert.NoError(t, err)
	assert.False(t, called)
}

func TestLarkClient_TokenReusedAcrossCalls(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == authPath {
			calls++
			fmt.Fprint(w, `{"code": 0, "tenant_access_token": "t-token", "expire": 7200}`)
			return
		}
		fmt.Fprint(w, `{"code": 0, "data": {"sheets": []}}`)
	}))
	defer ts.Close()

	client := NewLarkClient(config.LarkConfig{AppID: "a", AppSecret: "s", BaseURL: ts.URL})
	client.ListTabs("tok1")
	client.ListTabs("tok2")

	assert.Equal(t, 1, calls)
}

func TestLarkClient_AuthFailureSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": 99991663, "msg": "app not found"}`)
	}))
	defer ts.Close()

	client := NewLarkClient(config.LarkConfig{AppID: "a", AppSecret: "s", BaseURL: ts.URL})

	_, err := client.ListTabs("tok1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "app not found")
}
