// Package cache keeps read results keyed by string with an optional expiry.
//
// Entries are persisted in the cachedData namespace as a JSON array of
// [key, entry] pairs. Expired entries are removed lazily when read, and
// Sweep can purge them in bulk.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/records"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
)

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type Manager struct {
	store records.Store
	log   logging.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewManager(store records.Store, log logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	m := &Manager{store: store, log: log.With("module", "cache"), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) load(ctx context.Context) ([]models.CacheEntry, error) {
	recs, err := m.store.Load(ctx, records.NamespaceCachedData)
	if err != nil {
		return nil, err
	}

	entries := make([]models.CacheEntry, 0, len(recs))
	for _, rec := range recs {
		var pair []json.RawMessage
		if err := json.Unmarshal(rec, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: malformed cache record %s", records.ErrStore, rec)
		}
		var e models.CacheEntry
		if err := json.Unmarshal(pair[0], &e.Key); err != nil {
			return nil, fmt.Errorf("%w: malformed cache key: %v", records.ErrStore, err)
		}
		key := e.Key
		if err := json.Unmarshal(pair[1], &e); err != nil {
			return nil, fmt.Errorf("%w: malformed cache entry[%s]: %v", records.ErrStore, key, err)
		}
		e.Key = key
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *Manager) save(ctx context.Context, entries []models.CacheEntry) error {
	recs := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		rec, err := json.Marshal([2]any{e.Key, e})
		if err != nil {
			return fmt.Errorf("encode cache entry[%s]: %w", e.Key, err)
		}
		recs = append(recs, rec)
	}
	return m.store.Save(ctx, records.NamespaceCachedData, recs)
}

func indexOf(entries []models.CacheEntry, key string) int {
	for i := range entries {
		if entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Put stores value under key, replacing any previous entry. A nil ttl means
// the entry never expires; otherwise it expires ttlMinutes after now.
func (m *Manager) Put(ctx context.Context, key string, value any, ttlMinutes *int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value[%s]: %w", key, err)
	}

	now := m.now()
	e := models.CacheEntry{Key: key, Value: data, Timestamp: now.UnixMilli()}
	if ttlMinutes != nil {
		ttl := max(*ttlMinutes, 0)
		exp := now.Add(time.Duration(ttl) * time.Minute).UnixMilli()
		e.ExpiresAt = &exp
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(ctx)
	if err != nil {
		return err
	}
	if i := indexOf(entries, key); i >= 0 {
		entries[i] = e
	} else {
		entries = append(entries, e)
	}
	return m.save(ctx, entries)
}

// Get returns the cached value and true, or false when the key is absent or
// expired. An expired entry is deleted as part of the read.
func (m *Manager) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(ctx)
	if err != nil {
		return nil, false, err
	}
	i := indexOf(entries, key)
	if i < 0 {
		return nil, false, nil
	}

	if entries[i].ExpiredAt(m.now()) {
		entries = append(entries[:i], entries[i+1:]...)
		if err := m.save(ctx, entries); err != nil {
			return nil, false, err
		}
		m.log.Debug(ctx, "evicted expired entry", "key", key)
		return nil, false, nil
	}
	return entries[i].Value, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, key)
	if i < 0 {
		return nil
	}
	return m.save(ctx, append(entries[:i], entries[i+1:]...))
}

func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(ctx, nil)
}

// Sweep removes every expired entry and reports how many were dropped.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	kept := entries[:0]
	for _, e := range entries {
		if !e.ExpiredAt(now) {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := m.save(ctx, kept); err != nil {
		return 0, err
	}
	m.log.Debug(ctx, "cache sweep", "removed", removed)
	return removed, nil
}

// Len counts stored entries, expired ones included.
func (m *Manager) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
