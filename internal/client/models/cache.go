package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is one cached read result. A nil ExpiresAt never expires.
// Timestamps are milliseconds since the Unix epoch.
type CacheEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

// ExpiredAt reports whether the entry is past its expiry at now.
func (e *CacheEntry) ExpiredAt(now time.Time) bool {
	return e.ExpiresAt != nil && now.UnixMilli() > *e.ExpiresAt
}
