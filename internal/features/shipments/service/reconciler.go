package service

import (
	"strings"

	shipdomain "trackbot/internal/features/shipments/domain"
	trackdomain "trackbot/internal/features/tracking/domain"
)

// Reconciler decides, for one tracked item and one fresh lookup result,
// whether stored state changes. It is pure and deterministic: the same
// inputs always produce the same decision.
//
// Writes happen only on confirmed transitions. A failed or empty lookup
// never downgrades known-good state; it carries the stored status forward
// into the report and suppresses the write.
type Reconciler struct{}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Decide reconciles the stored state of an item against a fresh result.
// Terminal (delivered) items and unrecognized carriers are handled by the
// runner before any lookup happens; Decide only sees items that were
// actually polled.
func (r *Reconciler) Decide(item shipdomain.Item, fresh trackdomain.Result) shipdomain.Decision {
	stored := strings.ToUpper(strings.TrimSpace(item.CurrentStatus))

	if !fresh.Trustworthy() {
		status := stored
		if status == "" {
			status = trackdomain.StatusPending.Display()
		}
		return shipdomain.Decision{
			Write:        false,
			Status:       status,
			DeliveryDate: item.DeliveryDate,
			RawStatus:    fresh.RawStatus,
			Suppressed:   true,
		}
	}

	label := fresh.StatusKey.Display()
	deliveryDate := fresh.DeliveryDate
	if deliveryDate == "" {
		deliveryDate = item.DeliveryDate
	}

	if label != stored {
		return shipdomain.Decision{
			Write:        true,
			Status:       label,
			DeliveryDate: deliveryDate,
			RawStatus:    fresh.RawStatus,
		}
	}

	// Unchanged status: keep the row as-is to avoid redundant writes,
	// but the item still shows up in the report.
	return shipdomain.Decision{
		Write:        false,
		Status:       label,
		DeliveryDate: deliveryDate,
		RawStatus:    fresh.RawStatus,
	}
}
