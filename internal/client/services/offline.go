package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/offlinekit/internal/client/cache"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/network"
	"github.com/dmitrijs2005/offlinekit/internal/client/queue"
	"github.com/dmitrijs2005/offlinekit/internal/client/syncer"
)

// OfflineService is the caller-facing surface of the offline layer.
type OfflineService interface {
	AddPendingAction(ctx context.Context, d models.ActionDescriptor) (*models.PendingAction, error)
	PendingActions(ctx context.Context) ([]*models.PendingAction, error)
	CacheData(ctx context.Context, key string, data any, ttlMinutes *int) error
	GetCachedData(ctx context.Context, key string) (json.RawMessage, bool, error)
	// ClearCache removes one key, or every entry when key is nil.
	ClearCache(ctx context.Context, key *string) error
	ClearAllOfflineData(ctx context.Context) error
	ForceSyncAll(ctx context.Context) (bool, error)
	Status() models.SyncStatus
	SubscribeStatus(fn func(models.SyncStatus)) (unsubscribe func())
	SubscribeNetwork(fn func(online bool)) (unsubscribe func())
}

type offlineService struct {
	queue   *queue.Queue
	cache   *cache.Manager
	engine  *syncer.Engine
	monitor *network.Monitor
}

func NewOfflineService(q *queue.Queue, cm *cache.Manager, e *syncer.Engine, m *network.Monitor) OfflineService {
	return &offlineService{queue: q, cache: cm, engine: e, monitor: m}
}

func (s *offlineService) AddPendingAction(ctx context.Context, d models.ActionDescriptor) (*models.PendingAction, error) {
	return s.engine.Enqueue(ctx, d)
}

func (s *offlineService) PendingActions(ctx context.Context) ([]*models.PendingAction, error) {
	return s.queue.List(ctx)
}

func (s *offlineService) CacheData(ctx context.Context, key string, data any, ttlMinutes *int) error {
	return s.cache.Put(ctx, key, data, ttlMinutes)
}

func (s *offlineService) GetCachedData(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return s.cache.Get(ctx, key)
}

func (s *offlineService) ClearCache(ctx context.Context, key *string) error {
	if key == nil {
		return s.cache.Clear(ctx)
	}
	return s.cache.Delete(ctx, *key)
}

// ClearAllOfflineData drops every queued action and cached entry.
func (s *offlineService) ClearAllOfflineData(ctx context.Context) error {
	if err := s.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear pending actions: %w", err)
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return s.engine.RefreshPending(ctx)
}

// ForceSyncAll runs a drain pass now. It reports false when a pass was
// already running.
func (s *offlineService) ForceSyncAll(ctx context.Context) (bool, error) {
	return s.engine.SyncNow(ctx)
}

func (s *offlineService) Status() models.SyncStatus {
	return s.engine.Status()
}

func (s *offlineService) SubscribeStatus(fn func(models.SyncStatus)) func() {
	return s.engine.Subscribe(fn)
}

func (s *offlineService) SubscribeNetwork(fn func(online bool)) func() {
	return s.monitor.Subscribe(fn)
}
