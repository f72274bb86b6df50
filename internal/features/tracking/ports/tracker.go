package ports

import "trackbot/internal/features/tracking/domain"

// Tracker is the contract every carrier adapter implements.
type Tracker interface {
	// Track resolves the current status for a tracking number.
	// Failures never escape the adapter: network, auth, parse and
	// upstream not-found conditions all come back as a Result with
	// status unknown or not_found and the Error field set.
	Track(trackingNumber string) domain.Result
}
