package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStatusKey_Display verifies the fixed status -> label table.
func TestStatusKey_Display(t *testing.T) {
	cases := map[StatusKey]string{
		StatusDelivered:      "DELIVERED",
		StatusInTransit:      "IN TRANSIT",
		StatusOutForDelivery: "OUT FOR DELIVERY",
		StatusException:      "EXCEPTION",
		StatusLabelCreated:   "LABEL CREATED",
		StatusPending:        "PENDING",
		StatusNotFound:       "NOT FOUND",
		StatusUnknown:        "UNKNOWN",
	}

	for key, label := range cases {
		assert.Equal(t, label, key.Display())
		assert.True(t, key.Valid())
	}
}

// TestStatusKey_Display_OutsideVocabulary verifies unknown keys fall back to UNKNOWN.
func TestStatusKey_Display_OutsideVocabulary(t *testing.T) {
	assert.Equal(t, "UNKNOWN", StatusKey("teleported").Display())
	assert.False(t, StatusKey("teleported").Valid())
}

// TestNewResult_CoercesInvalidKey verifies NewResult never emits a key outside the vocabulary.
func TestNewResult_CoercesInvalidKey(t *testing.T) {
	res := NewResult(StatusKey("bogus"), "", "", "")
	assert.Equal(t, StatusUnknown, res.StatusKey)
	assert.Equal(t, "UNKNOWN", res.DisplayStatus)
}

// TestFailure_Invariant verifies error-carrying results only use unknown or not_found.
func TestFailure_Invariant(t *testing.T) {
	res := Failure(StatusUnknown, "timeout")
	assert.Equal(t, StatusUnknown, res.StatusKey)
	assert.Equal(t, "timeout", res.Error)
	assert.False(t, res.Trustworthy())

	res = Failure(StatusNotFound, "no such shipment")
	assert.Equal(t, StatusNotFound, res.StatusKey)

	// Any other key is coerced to unknown.
	res = Failure(StatusDelivered, "nonsense")
	assert.Equal(t, StatusUnknown, res.StatusKey)
}

// TestResult_Trustworthy verifies the trust rules used by reconciliation.
func TestResult_Trustworthy(t *testing.T) {
	assert.True(t, NewResult(StatusDelivered, "2026-02-25", "", "Delivered").Trustworthy())
	assert.True(t, NewResult(StatusInTransit, "", "", "").Trustworthy())
	assert.False(t, NewResult(StatusNotFound, "", "", "").Trustworthy())
	assert.False(t, NewResult(StatusUnknown, "", "", "").Trustworthy())
	assert.False(t, Failure(StatusUnknown, "boom").Trustworthy())
}

// TestNormalizeDate covers the upstream date shapes the adapters see.
func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"20260225", "2026-02-25"},
		{"2026-02-25", "2026-02-25"},
		{"2026-02-25T14:30:00Z", "2026-02-25"},
		{"2026-02-25 14:30:00", "2026-02-25"},
		{" 2026-02-25 ", "2026-02-25"},
		{"", ""},
		{"tomorrow", ""},
		{"2026/02/25", ""},
		{"202602", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeDate(c.in), "input %q", c.in)
	}
}
