package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trackbot/internal/core/config"
	"trackbot/internal/core/httpclient"
	"trackbot/internal/core/logger"
	"trackbot/internal/features/shipments/domain"

	"go.uber.org/zap"
)

// Column letters for the cells this bot writes. The read range A:Q and the
// per-field indexes in readItems must stay in sync with the sheet layout.
const (
	statusColumn       = "M"
	deliveryDateColumn = "Q"
)

// headerRow is the 1-indexed header row; data starts on the row after.
const headerRow = 2

// maxDataRow bounds one read; tabs never grow past this in practice.
const maxDataRow = 500

// tokenExpiryMargin refreshes the tenant token before it can expire mid-call.
const tokenExpiryMargin = 300 * time.Second

// LarkClient talks to the Lark Suite open API. It implements both the
// shipments Store port (sheets) and the Notifier port (group messages).
type LarkClient struct {
	baseURL   string
	appID     string
	appSecret string
	chatID    string
	client    *http.Client
	logger    *zap.Logger

	token        string
	tokenExpires time.Time
}

// NewLarkClient creates a Lark client from app credentials.
func NewLarkClient(cfg config.LarkConfig) *LarkClient {
	return &LarkClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		chatID:    cfg.ChatID,
		client:    httpclient.NewClient(30 * time.Second),
		logger:    logger.Get(),
	}
}

type larkTokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

// tenantToken returns a cached tenant access token, refreshing when expired.
func (c *LarkClient) tenantToken() (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExpires) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	resp, err := c.client.Post(
		c.baseURL+"/open-apis/auth/v3/tenant_access_token/internal",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lark auth request failed: %w", err)
	}
	defer resp.Body.Close()

	var data larkTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode lark auth response: %w", err)
	}
	if data.Code != 0 {
		return "", fmt.Errorf("lark auth failed: code=%d msg=%s", data.Code, data.Msg)
	}

	expire := data.Expire
	if expire <= 0 {
		expire = 7200
	}
	c.token = data.TenantAccessToken
	c.tokenExpires = time.Now().Add(time.Duration(expire)*time.Second - tokenExpiryMargin)
	c.logger.Info("Lark tenant token acquired")
	return c.token, nil
}

// do performs an authenticated JSON request against the Lark API.
func (c *LarkClient) do(method, path string, body interface{}, out interface{}) error {
	token, err := c.tenantToken()
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lark request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lark API returned status %d for %s", resp.StatusCode, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode lark response: %w", err)
		}
	}
	return nil
}

type larkSheetsQueryResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Sheets []struct {
			Title   string `json:"title"`
			SheetID string `json:"sheet_id"`
		} `json:"sheets"`
	} `json:"data"`
}

type larkMetainfoResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Sheets []struct {
			Title   string `json:"title"`
			SheetID string `json:"sheetId"`
		} `json:"sheets"`
	} `json:"data"`
}

// ListTabs returns the tabs of a spreadsheet, TEMPLATE filtered out.
// The v3 endpoint is tried first with a v2 metainfo fallback, since not all
// tenants have v3 enabled.
func (c *LarkClient) ListTabs(spreadsheetToken string) ([]domain.Tab, error) {
	var v3 larkSheetsQueryResponse
	err := c.do(http.MethodGet,
		"/open-apis/sheets/v3/spreadsheets/"+spreadsheetToken+"/sheets/query", nil, &v3)
	if err == nil && v3.Code == 0 {
		tabs := make([]domain.Tab, 0, len(v3.Data.Sheets))
		for _, s := range v3.Data.Sheets {
			if s.Title != "TEMPLATE" {
				tabs = append(tabs, domain.Tab{Title: s.Title, SheetID: s.SheetID})
			}
		}
		return tabs, nil
	}
	if err != nil {
		c.logger.Warn("Sheets v3 query failed, falling back to v2",
			zap.String("token", spreadsheetToken), zap.Error(err))
	} else {
		c.logger.Warn("Sheets v3 query rejected, falling back to v2",
			zap.String("token", spreadsheetToken),
			zap.Int("code", v3.Code), zap.String("msg", v3.Msg))
	}

	var v2 larkMetainfoResponse
	err = c.do(http.MethodGet,
		"/open-apis/sheets/v2/spreadsheets/"+spreadsheetToken+"/metainfo", nil, &v2)
	if err != nil {
		return nil, fmt.Errorf("cannot read spreadsheet %s: %w", spreadsheetToken, err)
	}
	if v2.Code != 0 {
		return nil, fmt.Errorf("cannot read spreadsheet %s: code=%d msg=%s",
			spreadsheetToken, v2.Code, v2.Msg)
	}

	tabs := make([]domain.Tab, 0, len(v2.Data.Sheets))
	for _, s := range v2.Data.Sheets {
		if s.Title != "TEMPLATE" {
			tabs = append(tabs, domain.Tab{Title: s.Title, SheetID: s.SheetID})
		}
	}
	return tabs, nil
}

type larkValuesResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ValueRange struct {
			Values [][]interface{} `json:"values"`
		} `json:"valueRange"`
	} `json:"data"`
}

// Zero-based indexes into the A:Q read range.
const (
	colShipmentID   = 0  // A
	colVendor       = 1  // B
	colRecipient    = 2  // C
	colOrderNum     = 3  // D
	colCustomer     = 4  // E
	colTrackingNum  = 6  // G
	colCarrier      = 7  // H
	colStatus       = 12 // M
	colDeliveryDate = 16 // Q
)

// ReadItems reads every row with a tracking number from one tab.
func (c *LarkClient) ReadItems(spreadsheetToken string, tab domain.Tab) ([]domain.Item, error) {
	startRow := headerRow + 1
	rangeStr := fmt.Sprintf("%s!A%d:%s%d", tab.SheetID, startRow, deliveryDateColumn, maxDataRow)

	var data larkValuesResponse
	path := fmt.Sprintf("/open-apis/sheets/v2/spreadsheets/%s/values/%s?valueRenderOption=ToString",
		spreadsheetToken, rangeStr)
	if err := c.do(http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	if data.Code != 0 {
		return nil, fmt.Errorf("failed to read range %s: code=%d msg=%s", rangeStr, data.Code, data.Msg)
	}

	var items []domain.Item
	for i, row := range data.Data.ValueRange.Values {
		tracking := cellString(row, colTrackingNum)
		if tracking == "" {
			continue
		}
		items = append(items, domain.Item{
			SheetToken:    spreadsheetToken,
			SheetID:       tab.SheetID,
			Tab:           tab.Title,
			RowNum:        startRow + i,
			ShipmentID:    cellString(row, colShipmentID),
			Vendor:        cellString(row, colVendor),
			Recipient:     cellString(row, colRecipient),
			OrderNum:      cellString(row, colOrderNum),
			Customer:      cellString(row, colCustomer),
			TrackingNum:   tracking,
			Carrier:       cellString(row, colCarrier),
			CurrentStatus: cellString(row, colStatus),
			DeliveryDate:  cellString(row, colDeliveryDate),
		})
	}

	c.logger.Info("Read tracking rows",
		zap.String("sheet_id", tab.SheetID),
		zap.Int("rows", len(items)),
	)
	return items, nil
}

// cellString extracts a trimmed string cell, tolerating short rows and
// non-string cell values.
func cellString(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	if s, ok := row[idx].(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

type larkWriteResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// WriteStatus updates the status cell and, when a date is present, the
// delivery date cell of one row in a single batch update.
func (c *LarkClient) WriteStatus(spreadsheetToken, sheetID string, rowNum int, status, deliveryDate string) error {
	type valueRange struct {
		Range  string          `json:"range"`
		Values [][]interface{} `json:"values"`
	}

	cell := func(col string, value string) valueRange {
		ref := fmt.Sprintf("%s!%s%d:%s%d", sheetID, col, rowNum, col, rowNum)
		return valueRange{Range: ref, Values: [][]interface{}{{value}}}
	}

	ranges := []valueRange{cell(statusColumn, status)}
	if deliveryDate != "" {
		ranges = append(ranges, cell(deliveryDateColumn, deliveryDate))
	}

	var data larkWriteResponse
	path := "/open-apis/sheets/v2/spreadsheets/" + spreadsheetToken + "/values_batch_update"
	err := c.do(http.MethodPost, path, map[string]interface{}{"valueRanges": ranges}, &data)
	if err != nil {
		return err
	}
	if data.Code != 0 {
		return fmt.Errorf("failed to write cells: code=%d msg=%s", data.Code, data.Msg)
	}

	c.logger.Info("Updated cells",
		zap.String("sheet_id", sheetID),
		zap.Int("row", rowNum),
		zap.Int("cells", len(ranges)),
	)
	return nil
}

// Send posts one interactive card message to the configured group chat.
func (c *LarkClient) Send(message string) error {
	if c.chatID == "" {
		c.logger.Warn("No chat_id configured, skipping notification")
		return nil
	}

	card := map[string]interface{}{
		"config": map[string]bool{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"title":    map[string]string{"tag": "plain_text", "content": "📦 Shipment Update"},
			"template": "blue",
		},
		"elements": []map[string]string{
			{"tag": "markdown", "content": message},
		},
	}
	cardJSON, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to build card: %w", err)
	}

	body := map[string]string{
		"receive_id": c.chatID,
		"msg_type":   "interactive",
		"content":    string(cardJSON),
	}

	var data larkWriteResponse
	path := "/open-apis/im/v1/messages?receive_id_type=chat_id"
	if err := c.do(http.MethodPost, path, body, &data); err != nil {
		return err
	}
	if data.Code != 0 {
		return fmt.Errorf("failed to send message: code=%d msg=%s", data.Code, data.Msg)
	}

	c.logger.Info("Notification sent to group chat")
	return nil
}
