package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionDescriptor_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      ActionDescriptor
		wantErr bool
	}{
		{name: "lower case accepted", in: ActionDescriptor{Kind: "create", Endpoint: "/bills", Method: "post"}},
		{name: "delete", in: ActionDescriptor{Kind: ActionDelete, Endpoint: "/bills/1", Method: "DELETE"}},
		{name: "unknown kind", in: ActionDescriptor{Kind: "MERGE", Endpoint: "/bills", Method: "POST"}, wantErr: true},
		{name: "get is not a write", in: ActionDescriptor{Kind: ActionCreate, Endpoint: "/bills", Method: "GET"}, wantErr: true},
		{name: "blank endpoint", in: ActionDescriptor{Kind: ActionCreate, Endpoint: " ", Method: "POST"}, wantErr: true},
		{name: "negative retries", in: ActionDescriptor{Kind: ActionCreate, Endpoint: "/b", Method: "POST", MaxRetries: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.in
			err := d.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAction))
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Kind.Valid())
			assert.True(t, ValidWriteMethod(d.Method))
		})
	}
}

func TestPendingAction_Exhausted(t *testing.T) {
	a := &PendingAction{MaxRetries: 3, RetryCount: 2}
	assert.False(t, a.Exhausted())
	a.RetryCount = 3
	assert.True(t, a.Exhausted())
}

func TestCacheEntry_ExpiredAt(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	exp := now.UnixMilli()

	e := &CacheEntry{ExpiresAt: &exp}
	assert.False(t, e.ExpiredAt(now), "exactly at expiry is still fresh")
	assert.True(t, e.ExpiredAt(now.Add(time.Millisecond)))

	forever := &CacheEntry{}
	assert.False(t, forever.ExpiredAt(now.Add(24*365*time.Hour)))
}

func TestSyncStatus_Clone(t *testing.T) {
	ts := time.Now()
	s := SyncStatus{LastSyncTime: &ts, SyncErrors: []string{"a"}}

	c := s.Clone()
	c.SyncErrors[0] = "b"
	*c.LastSyncTime = ts.Add(time.Hour)

	assert.Equal(t, "a", s.SyncErrors[0])
	assert.Equal(t, ts, *s.LastSyncTime)
}
