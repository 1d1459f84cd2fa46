package records

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	NamespacePendingActions = "pendingActions"
	NamespaceCachedData     = "cachedData"
)

var ErrStore = errors.New("persistent store failure")

// Store is a durable namespace -> ordered records mapping.
//
// Load of a namespace that was never saved returns an empty slice and no
// error. Save replaces the namespace atomically. UpdatedAt reports the time
// of the last Save, or the zero time for a namespace never saved.
type Store interface {
	Load(ctx context.Context, namespace string) ([]json.RawMessage, error)
	Save(ctx context.Context, namespace string, recs []json.RawMessage) error
	UpdatedAt(ctx context.Context, namespace string) (time.Time, error)
	Close() error
}

func encode(recs []json.RawMessage) ([]byte, error) {
	if recs == nil {
		recs = []json.RawMessage{}
	}
	return json.Marshal(recs)
}

func decode(b []byte) ([]json.RawMessage, error) {
	if len(b) == 0 {
		return []json.RawMessage{}, nil
	}
	var recs []json.RawMessage
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []json.RawMessage{}
	}
	return recs, nil
}
