package service

import (
	"strings"

	"trackbot/internal/core/logger"
	"trackbot/internal/features/tracking/domain"
	"trackbot/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// carrierAliases maps free-text carrier names from the sheet to canonical
// registry keys. Lookups fall back to a lowercased, trimmed version of the
// input, so exact canonical keys always resolve.
var carrierAliases = map[string]string{
	"ups":                   "ups",
	"united parcel":         "ups",
	"united parcel service": "ups",
	"fedex":                 "fedex",
	"fed ex":                "fedex",
	"federal express":       "fedex",
	"usps":                  "usps",
	"us postal":             "usps",
	"united states postal":  "usps",
	"dhl":                   "dhl",
	"dhl express":           "dhl",
	"royalmail":             "royalmail",
	"royal mail":            "royalmail",
	"ontrac":                "ontrac",
	"17track":               "17track",
	"17 track":              "17track",
}

// Router dispatches tracking lookups to the adapter responsible for a
// carrier. It owns the adapter instances for the lifetime of one run.
type Router struct {
	adapters map[string]ports.Tracker
	cache    *ResultCache
	logger   *zap.Logger
}

// NewRouter creates a Router over a registry of adapters. cache may be nil
// to disable result caching.
func NewRouter(adapters map[string]ports.Tracker, cache *ResultCache) *Router {
	return &Router{
		adapters: adapters,
		cache:    cache,
		logger:   logger.Get(),
	}
}

// Normalize converts a free-text carrier name into its canonical key.
func Normalize(carrier string) string {
	key := strings.ToLower(strings.TrimSpace(carrier))
	if canonical, ok := carrierAliases[key]; ok {
		return canonical
	}
	return key
}

// Supports reports whether some adapter handles the carrier.
func (r *Router) Supports(carrier string) bool {
	_, ok := r.adapters[Normalize(carrier)]
	return ok
}

// Track resolves one tracking number via the adapter for its carrier.
// An unrecognized carrier yields an unknown-status result, never an error:
// one bad row must not abort a run.
func (r *Router) Track(trackingNumber, carrier string) domain.Result {
	key := Normalize(carrier)

	adapter, ok := r.adapters[key]
	if !ok {
		r.logger.Warn("Unknown carrier",
			zap.String("carrier", carrier),
			zap.String("tracking_number", trackingNumber),
		)
		return domain.Failure(domain.StatusUnknown, "unsupported carrier: "+carrier)
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(key, trackingNumber); ok {
			r.logger.Debug("Tracking result served from cache",
				zap.String("carrier", key),
				zap.String("tracking_number", trackingNumber),
			)
			return cached
		}
	}

	r.logger.Info("Tracking shipment",
		zap.String("carrier", key),
		zap.String("tracking_number", trackingNumber),
	)
	result := adapter.Track(trackingNumber)

	// Only trustworthy results are worth caching; failures should be
	// retried on the next lookup.
	if r.cache != nil && result.Trustworthy() {
		r.cache.Put(key, trackingNumber, result)
	}

	return result
}
