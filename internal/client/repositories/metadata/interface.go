// Package metadata stores small client-side settings in the local database:
// the bearer token handed to the remote API and the time of the last
// completed sync pass.
package metadata

import (
	"context"
	"time"
)

const (
	KeyAccessToken  = "access_token"
	KeyLastSyncTime = "last_sync_time"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
