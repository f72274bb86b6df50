package domain

// Tab identifies one sheet tab inside a spreadsheet.
type Tab struct {
	// Title is the tab name as shown in the spreadsheet.
	Title string
	// SheetID is the stable identifier used by the sheets API.
	SheetID string
}

// Item is one persisted shipment row read at the start of a run.
// Descriptive metadata flows through to the report unchanged; only the
// status and delivery date columns are ever written back.
type Item struct {
	// SheetToken identifies the spreadsheet the row lives in.
	SheetToken string
	// SheetID identifies the tab.
	SheetID string
	// Tab is the tab title, used as the report group key.
	Tab string
	// RowNum is the 1-indexed sheet row, stable for the run.
	RowNum int

	ShipmentID  string
	Vendor      string
	Recipient   string
	OrderNum    string
	Customer    string
	TrackingNum string
	Carrier     string

	// CurrentStatus is the stored display label (e.g. "IN TRANSIT").
	CurrentStatus string
	// DeliveryDate is the stored delivery date, empty if unknown.
	DeliveryDate string
}

// Decision is the reconciliation outcome for one item in one run.
// It is consumed immediately by the write path and the report; never stored.
type Decision struct {
	// Write indicates the status and delivery date should be persisted.
	Write bool
	// Status is the display label to persist and/or report.
	Status string
	// DeliveryDate is the delivery date to persist and/or report.
	DeliveryDate string
	// RawStatus is the carrier's own text, for report wording only.
	RawStatus string
	// Suppressed indicates the fresh result was untrustworthy and the
	// stored state was carried forward instead.
	Suppressed bool
}

// Entry is one line of the run report: an item plus its reconciled status.
type Entry struct {
	Tab          string
	TrackingNum  string
	Carrier      string
	Recipient    string
	Customer     string
	Status       string
	DeliveryDate string
	RawStatus    string
}

// NewEntry pairs an item with its decision for reporting.
func NewEntry(item Item, decision Decision) Entry {
	return Entry{
		Tab:          item.Tab,
		TrackingNum:  item.TrackingNum,
		Carrier:      item.Carrier,
		Recipient:    item.Recipient,
		Customer:     item.Customer,
		Status:       decision.Status,
		DeliveryDate: decision.DeliveryDate,
		RawStatus:    decision.RawStatus,
	}
}
