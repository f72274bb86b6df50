package service

import (
	"sort"
	"strings"
	"time"

	shipdomain "trackbot/internal/features/shipments/domain"
)

// AllDeliveredMessage is sent when the run leaves nothing to report.
const AllDeliveredMessage = "All shipments delivered. Nothing to track today."

// permanentTabs always render first, in this order.
var permanentTabs = []string{"Hannah", "Lucy", "Other"}

// monthOrder sorts month tabs in calendar order after the permanent tabs.
var monthOrder = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// RenderReport builds the run summary from all report entries.
//
// Layout: delivered shipments are excluded; duplicate tracking numbers keep
// their first occurrence; entries bucket by tab (permanent tabs first, then
// months in calendar order, then any unexpected tab name alphabetically),
// and within a tab by carrier, alphabetical. Empty sections are omitted.
func RenderReport(entries []shipdomain.Entry) string {
	var active []shipdomain.Entry
	for _, e := range entries {
		if strings.ToUpper(e.Status) != "DELIVERED" {
			active = append(active, e)
		}
	}

	if len(active) == 0 {
		return AllDeliveredMessage
	}

	seen := make(map[string]bool)
	var unique []shipdomain.Entry
	for _, e := range active {
		tn := strings.TrimSpace(e.TrackingNum)
		if tn == "" || seen[tn] {
			continue
		}
		seen[tn] = true
		unique = append(unique, e)
	}

	buckets := make(map[string][]shipdomain.Entry)
	for _, e := range unique {
		tab := strings.TrimSpace(e.Tab)
		buckets[tab] = append(buckets[tab], e)
	}

	lines := []string{"**Shipment Tracker**"}

	renderSection := func(label string, items []shipdomain.Entry) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, "\n**— "+label+" —**")

		byCarrier := make(map[string][]shipdomain.Entry)
		for _, e := range items {
			c := strings.ToUpper(strings.TrimSpace(e.Carrier))
			if c == "" {
				c = "UNKNOWN"
			}
			byCarrier[c] = append(byCarrier[c], e)
		}

		carriers := make([]string, 0, len(byCarrier))
		for c := range byCarrier {
			carriers = append(carriers, c)
		}
		sort.Strings(carriers)

		for _, c := range carriers {
			lines = append(lines, "\n*"+c+"*")
			for _, e := range byCarrier[c] {
				lines = append(lines, shipmentLine(e))
			}
		}
	}

	rendered := make(map[string]bool)
	for _, tab := range permanentTabs {
		renderSection(tab, buckets[tab])
		rendered[tab] = true
	}
	for _, month := range monthOrder {
		renderSection(month, buckets[month])
		rendered[month] = true
	}

	// Safety net for unexpected tab names.
	var rest []string
	for tab := range buckets {
		if !rendered[tab] {
			rest = append(rest, tab)
		}
	}
	sort.Strings(rest)
	for _, tab := range rest {
		renderSection(tab, buckets[tab])
	}

	return strings.Join(lines, "\n")
}

// shipmentLine formats one shipment as: tracking -- name -- date/status.
func shipmentLine(e shipdomain.Entry) string {
	recipient := strings.TrimSpace(e.Recipient)
	customer := strings.TrimSpace(e.Customer)

	var name string
	switch strings.ToUpper(recipient) {
	case "BRENDAN":
		name = "Brendan"
	case "CUSTOMER DIRECT":
		name = customer
	default:
		name = recipient
		if name == "" {
			name = customer
		}
	}
	if name == "" {
		name = "Unknown"
	}

	tracking := e.TrackingNum
	if tracking == "" {
		tracking = "N/A"
	}

	return tracking + " -- " + name + " -- " + statusPhrase(e)
}

// statusPhrase picks the human wording for one entry's status.
func statusPhrase(e shipdomain.Entry) string {
	status := strings.ToUpper(strings.TrimSpace(e.Status))
	raw := strings.TrimSpace(e.RawStatus)

	switch status {
	case "OUT FOR DELIVERY":
		return "out for delivery today"
	case "LABEL CREATED":
		return "waiting to ship"
	case "EXCEPTION":
		if raw != "" {
			return "exception - " + raw
		}
		return "exception"
	case "UNKNOWN", "UNKNOWN CARRIER", "NOT FOUND", "PENDING", "":
		return "pending"
	}

	if e.DeliveryDate != "" {
		return formatDeliveryDate(e.DeliveryDate)
	}
	return "in transit"
}

// formatDeliveryDate converts "2026-02-25" into
// "expected delivery on Wednesday, February 25, 2026".
// Unparseable input is shown verbatim rather than dropped.
func formatDeliveryDate(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 10 {
		s = s[:10]
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if dt, err := time.Parse(layout, s); err == nil {
			return "expected delivery on " + dt.Format("Monday, January 2, 2006")
		}
	}
	return raw
}
