// Package adapters contains one tracking adapter per carrier family.
// Every adapter maps its carrier's native response shape into a
// domain.Result and never lets a failure escape its Track method.
package adapters

import (
	"strings"
	"time"
)

// requestTimeout is the fixed timeout applied to every upstream carrier call.
const requestTimeout = 30 * time.Second

// tokenExpiryMargin is subtracted from upstream token lifetimes so a token
// is refreshed before it can expire mid-request.
const tokenExpiryMargin = 300 * time.Second

// bearerToken caches an OAuth access token and its expiry instant.
// Each authenticating adapter owns exactly one; nothing else mutates it.
type bearerToken struct {
	value   string
	expires time.Time
}

// valid reports whether the cached token can still be reused.
func (t *bearerToken) valid() bool {
	return t.value != "" && time.Now().Before(t.expires)
}

// set stores a fresh token with the safety margin applied.
func (t *bearerToken) set(value string, expiresIn int64) {
	t.value = value
	t.expires = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenExpiryMargin)
}

// joinLocation assembles a display location from optional address parts.
func joinLocation(parts ...string) string {
	var filled []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, ", ")
}
