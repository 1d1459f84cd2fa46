package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Records are copied on the way in
// and out so callers cannot mutate stored data.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	updated map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), updated: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Load(ctx context.Context, namespace string) ([]json.RawMessage, error) {
	s.mu.Lock()
	b := s.data[namespace]
	s.mu.Unlock()

	recs, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt namespace[%s]: %v", ErrStore, namespace, err)
	}
	return recs, nil
}

func (s *MemoryStore) Save(ctx context.Context, namespace string, recs []json.RawMessage) error {
	b, err := encode(recs)
	if err != nil {
		return fmt.Errorf("%w: failed to encode namespace[%s]: %v", ErrStore, namespace, err)
	}
	s.mu.Lock()
	s.data[namespace] = bytes.Clone(b)
	s.updated[namespace] = s.now()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) UpdatedAt(ctx context.Context, namespace string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated[namespace], nil
}

func (s *MemoryStore) Close() error { return nil }
