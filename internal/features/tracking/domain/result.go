package domain

import "strings"

// StatusKey is the carrier-agnostic status vocabulary every adapter maps into.
type StatusKey string

const (
	// StatusDelivered indicates the shipment reached its recipient.
	StatusDelivered StatusKey = "delivered"
	// StatusInTransit indicates the shipment is moving through the carrier network.
	StatusInTransit StatusKey = "in_transit"
	// StatusOutForDelivery indicates the shipment is on a vehicle for final delivery.
	StatusOutForDelivery StatusKey = "out_for_delivery"
	// StatusException indicates a delivery problem reported by the carrier.
	StatusException StatusKey = "exception"
	// StatusLabelCreated indicates a label exists but the carrier has not received the package.
	StatusLabelCreated StatusKey = "label_created"
	// StatusPending indicates no status has been observed yet.
	StatusPending StatusKey = "pending"
	// StatusNotFound indicates the carrier explicitly reports no such shipment.
	StatusNotFound StatusKey = "not_found"
	// StatusUnknown indicates the lookup failed to produce a trustworthy status.
	StatusUnknown StatusKey = "unknown"
)

// displayLabels is the fixed status -> label table written to sheets and reports.
var displayLabels = map[StatusKey]string{
	StatusDelivered:      "DELIVERED",
	StatusInTransit:      "IN TRANSIT",
	StatusOutForDelivery: "OUT FOR DELIVERY",
	StatusException:      "EXCEPTION",
	StatusLabelCreated:   "LABEL CREATED",
	StatusPending:        "PENDING",
	StatusNotFound:       "NOT FOUND",
	StatusUnknown:        "UNKNOWN",
}

// Display returns the human-facing label for the status key.
// Keys outside the fixed vocabulary display as UNKNOWN.
func (k StatusKey) Display() string {
	if label, ok := displayLabels[k]; ok {
		return label
	}
	return displayLabels[StatusUnknown]
}

// Valid reports whether the key belongs to the fixed vocabulary.
func (k StatusKey) Valid() bool {
	_, ok := displayLabels[k]
	return ok
}

// Trustworthy reports whether the key carries a real signal from the carrier.
// Unknown and not-found results must never overwrite stored state.
func (k StatusKey) Trustworthy() bool {
	return k != StatusUnknown && k != StatusNotFound
}

// Result is the normalized outcome of one tracking lookup.
type Result struct {
	// StatusKey is the normalized status.
	StatusKey StatusKey `json:"status_key"`
	// DisplayStatus is the stable label derived from StatusKey.
	DisplayStatus string `json:"status"`
	// DeliveryDate is the actual or estimated delivery date (YYYY-MM-DD), empty if unknown.
	DeliveryDate string `json:"delivery_date"`
	// Location is the latest known location, empty if unavailable.
	Location string `json:"location"`
	// RawStatus is the carrier's own status text, kept for diagnostics only.
	RawStatus string `json:"raw_status"`
	// Error is non-empty when the lookup produced no trustworthy status.
	Error string `json:"error,omitempty"`
}

// NewResult builds a Result for a successful lookup.
func NewResult(key StatusKey, deliveryDate, location, rawStatus string) Result {
	if !key.Valid() {
		key = StatusUnknown
	}
	return Result{
		StatusKey:     key,
		DisplayStatus: key.Display(),
		DeliveryDate:  deliveryDate,
		Location:      location,
		RawStatus:     rawStatus,
	}
}

// Failure builds a Result for a failed lookup. Only unknown and not_found may
// carry an error; any other key is coerced to unknown.
func Failure(key StatusKey, errMsg string) Result {
	if key != StatusNotFound {
		key = StatusUnknown
	}
	return Result{
		StatusKey:     key,
		DisplayStatus: key.Display(),
		Error:         errMsg,
	}
}

// Trustworthy reports whether the result may overwrite stored state.
func (r Result) Trustworthy() bool {
	return r.Error == "" && r.StatusKey.Trustworthy()
}

// NormalizeDate reduces an upstream date value to YYYY-MM-DD.
// Accepts ISO timestamps (truncated to the date part) and bare 8-digit
// YYYYMMDD strings (reformatted with dashes). Returns "" for anything else;
// an empty date means unknown, never today.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) == 8 && isDigits(s) {
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	}
	if len(s) >= 10 && isDigits(s[:4]) && s[4] == '-' && isDigits(s[5:7]) && s[7] == '-' && isDigits(s[8:10]) {
		return s[:10]
	}
	return ""
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
