package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/dbx"
)

// SQLiteStore keeps each namespace as one row of the namespaces table.
// The *sql.DB is owned by the caller; Close does not close it.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Load(ctx context.Context, namespace string) ([]json.RawMessage, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM namespaces WHERE name = ?`, namespace).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load namespace[%s]: %v", ErrStore, namespace, err)
	}

	recs, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt namespace[%s]: %v", ErrStore, namespace, err)
	}
	return recs, nil
}

func (s *SQLiteStore) Save(ctx context.Context, namespace string, recs []json.RawMessage) error {
	data, err := encode(recs)
	if err != nil {
		return fmt.Errorf("%w: failed to encode namespace[%s]: %v", ErrStore, namespace, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO namespaces (name, data, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		`, namespace, data, s.now().UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save namespace[%s]: %v", ErrStore, namespace, err)
	}
	return nil
}

func (s *SQLiteStore) UpdatedAt(ctx context.Context, namespace string) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM namespaces WHERE name = ?`, namespace).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: failed to read timestamp[%s]: %v", ErrStore, namespace, err)
	}
	return time.UnixMilli(ms), nil
}

func (s *SQLiteStore) Close() error { return nil }
