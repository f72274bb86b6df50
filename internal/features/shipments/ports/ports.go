package ports

import (
	shipdomain "trackbot/internal/features/shipments/domain"
	trackdomain "trackbot/internal/features/tracking/domain"
)

// Store is the persistence boundary: a spreadsheet of tracked shipment rows.
type Store interface {
	// ListTabs returns the processable tabs in a spreadsheet.
	ListTabs(spreadsheetToken string) ([]shipdomain.Tab, error)
	// ReadItems reads all rows with a tracking number from one tab.
	ReadItems(spreadsheetToken string, tab shipdomain.Tab) ([]shipdomain.Item, error)
	// WriteStatus updates the status and, when non-empty, the delivery
	// date cells of one row.
	WriteStatus(spreadsheetToken, sheetID string, rowNum int, status, deliveryDate string) error
}

// Notifier is the outbound notification boundary, called once per run.
type Notifier interface {
	Send(message string) error
}

// Tracker is the carrier-lookup boundary the runner depends on.
type Tracker interface {
	// Track resolves one tracking number; failures come back as values.
	Track(trackingNumber, carrier string) trackdomain.Result
	// Supports reports whether the carrier routes to a live adapter.
	Supports(carrier string) bool
}
