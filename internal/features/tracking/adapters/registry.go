package adapters

import (
	"trackbot/internal/core/config"
	"trackbot/internal/features/tracking/ports"
)

// NewRegistry constructs one live adapter per supported carrier, keyed by
// canonical carrier identifier. Adapters are built once per run so token
// caches survive across all tracked items sharing a carrier.
func NewRegistry(cfg config.CarrierConfig) map[string]ports.Tracker {
	aggregator := NewSeventeenTrackAdapter(cfg)

	return map[string]ports.Tracker{
		"fedex":     NewFedExAdapter(cfg),
		"ups":       NewUPSAdapter(cfg),
		"usps":      NewUSPSAdapter(cfg),
		"dhl":       NewDHLAdapter(cfg),
		"royalmail": NewRoyalMailAdapter(cfg, aggregator),
		"ontrac":    NewOnTracAdapter(cfg.OnTracURL, cfg.Proxy()),
		"17track":   aggregator,
	}
}
