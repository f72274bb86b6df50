package service

import (
	"testing"
	"time"

	"trackbot/internal/core/cache"
	"trackbot/internal/features/tracking/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResultCache(t *testing.T, ttl time.Duration) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	return NewResultCache(backend, ttl), mr
}

func TestResultCache_PutGet(t *testing.T) {
	rc, _ := newTestResultCache(t, time.Minute)

	stored := domain.NewResult(domain.StatusDelivered, "2026-02-25", "Austin, TX", "Delivered")
	rc.Put("ups", "1Z999AA10123456784", stored)

	got, ok := rc.Get("ups", "1Z999AA10123456784")
	assert.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestResultCache_MissReturnsFalse(t *testing.T) {
	rc, _ := newTestResultCache(t, time.Minute)

	_, ok := rc.Get("ups", "unknown")
	assert.False(t, ok)
}

func TestResultCache_KeyedByCarrier(t *testing.T) {
	rc, _ := newTestResultCache(t, time.Minute)

	rc.Put("ups", "12345", domain.NewResult(domain.StatusInTransit, "", "", "moving"))

	_, ok := rc.Get("fedex", "12345")
	assert.False(t, ok)
}

func TestResultCache_EntryExpires(t *testing.T) {
	rc, mr := newTestResultCache(t, time.Minute)

	rc.Put("ups", "12345", domain.NewResult(domain.StatusInTransit, "", "", "moving"))
	mr.FastForward(2 * time.Minute)

	_, ok := rc.Get("ups", "12345")
	assert.False(t, ok)
}

func TestResultCache_CorruptEntryIsMiss(t *testing.T) {
	rc, mr := newTestResultCache(t, time.Minute)

	require.NoError(t, mr.Set("tracking:ups:12345", "{not json"))

	_, ok := rc.Get("ups", "12345")
	assert.False(t, ok)
}

func TestResultCache_BackendDownIsMiss(t *testing.T) {
	rc, mr := newTestResultCache(t, time.Minute)
	mr.Close()

	_, ok := rc.Get("ups", "12345")
	assert.False(t, ok)

	// Writes to a dead backend are swallowed.
	rc.Put("ups", "12345", domain.NewResult(domain.StatusInTransit, "", "", "moving"))
}
