package models

import "time"

// SyncStatus is the derived, published view of the offline layer.
type SyncStatus struct {
	IsOnline     bool
	IsSyncing    bool
	PendingCount int
	LastSyncTime *time.Time
	SyncErrors   []string
}

// Clone returns a deep copy safe to hand to subscribers.
func (s SyncStatus) Clone() SyncStatus {
	out := s
	if s.LastSyncTime != nil {
		t := *s.LastSyncTime
		out.LastSyncTime = &t
	}
	if s.SyncErrors != nil {
		out.SyncErrors = append([]string(nil), s.SyncErrors...)
	}
	return out
}
