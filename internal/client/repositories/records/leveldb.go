package records

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore keeps each namespace under the key "ns:<name>" with its
// last write time under "ts:<name>". Both keys go in one synced batch.
type LevelDBStore struct {
	db  *leveldb.DB
	now func() time.Time
}

func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %v", ErrStore, path, err)
	}
	return &LevelDBStore{db: db, now: time.Now}, nil
}

func nsKey(namespace string) []byte { return []byte("ns:" + namespace) }
func tsKey(namespace string) []byte { return []byte("ts:" + namespace) }

func (s *LevelDBStore) Load(ctx context.Context, namespace string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	b, err := s.db.Get(nsKey(namespace), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load namespace[%s]: %v", ErrStore, namespace, err)
	}

	recs, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt namespace[%s]: %v", ErrStore, namespace, err)
	}
	return recs, nil
}

func (s *LevelDBStore) Save(ctx context.Context, namespace string, recs []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	data, err := encode(recs)
	if err != nil {
		return fmt.Errorf("%w: failed to encode namespace[%s]: %v", ErrStore, namespace, err)
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(s.now().UnixMilli()))

	batch := new(leveldb.Batch)
	batch.Put(nsKey(namespace), data)
	batch.Put(tsKey(namespace), ts)
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: failed to save namespace[%s]: %v", ErrStore, namespace, err)
	}
	return nil
}

func (s *LevelDBStore) UpdatedAt(ctx context.Context, namespace string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	b, err := s.db.Get(tsKey(namespace), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil || len(b) != 8 {
		return time.Time{}, fmt.Errorf("%w: failed to read timestamp[%s]: %v", ErrStore, namespace, err)
	}
	return time.UnixMilli(int64(binary.BigEndian.Uint64(b))), nil
}

func (s *LevelDBStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close leveldb: %v", ErrStore, err)
	}
	return nil
}
