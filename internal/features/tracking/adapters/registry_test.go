package adapters

import (
	"testing"

	"trackbot/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CoversAllCarriers(t *testing.T) {
	registry := NewRegistry(config.CarrierConfig{})

	for _, key := range []string{"fedex", "ups", "usps", "dhl", "royalmail", "ontrac", "17track"} {
		assert.Contains(t, registry, key)
	}
}

func TestNewRegistry_RoyalMailSharesAggregator(t *testing.T) {
	registry := NewRegistry(config.CarrierConfig{SeventeenTrackAPIKey: "k"})

	rm, ok := registry["royalmail"].(*RoyalMailAdapter)
	require.True(t, ok)
	agg, ok := registry["17track"].(*SeventeenTrackAdapter)
	require.True(t, ok)

	assert.Same(t, agg, rm.fallback)
}
