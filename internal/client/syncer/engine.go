package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/metrics"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/network"
	"github.com/dmitrijs2005/offlinekit/internal/client/queue"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
	"github.com/dmitrijs2005/offlinekit/internal/pubsub"
	"golang.org/x/time/rate"
)

var ErrOffline = errors.New("offline")

// SyncTimeStore persists the time of the last completed pass.
type SyncTimeStore interface {
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithReplayLimit caps replay requests at rps with the given burst.
// A non-positive rps disables the limit.
func WithReplayLimit(rps float64, burst int) Option {
	return func(e *Engine) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithReplayTimeout bounds each replay request.
func WithReplayTimeout(d time.Duration) Option {
	return func(e *Engine) { e.replayTimeout = d }
}

func WithSyncTimeStore(s SyncTimeStore) Option {
	return func(e *Engine) { e.syncTimes = s }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	queue   *queue.Queue
	client  client.Client
	monitor *network.Monitor
	log     logging.Logger

	metrics       *metrics.Metrics
	limiter       *rate.Limiter
	replayTimeout time.Duration
	syncTimes     SyncTimeStore
	now           func() time.Time

	syncing atomic.Bool
	lifeMu  sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	unsub   func()

	pubMu  sync.Mutex
	mu     sync.Mutex
	status models.SyncStatus
	hub    pubsub.Hub[models.SyncStatus]
}

func NewEngine(q *queue.Queue, c client.Client, m *network.Monitor, log logging.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	e := &Engine{
		queue:   q,
		client:  c,
		monitor: m,
		log:     log.With("module", "syncer"),
		limiter: rate.NewLimiter(rate.Inf, 0),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.status.IsOnline = m.CurrentStatus()
	return e
}

// Start loads the initial status and subscribes to connectivity changes.
// If the monitor already reports online and actions are pending, a pass is
// triggered right away.
func (e *Engine) Start(ctx context.Context) error {
	pending, err := e.queue.Count(ctx)
	if err != nil {
		return fmt.Errorf("count pending actions: %w", err)
	}

	var last *time.Time
	if e.syncTimes != nil {
		if last, err = e.syncTimes.GetTime(ctx, metadata.KeyLastSyncTime); err != nil {
			e.log.Warn(ctx, "failed to read last sync time", "error", err)
		}
	}

	e.update(func(s *models.SyncStatus) {
		s.PendingCount = pending
		s.LastSyncTime = last
		s.IsOnline = e.monitor.CurrentStatus()
	})
	e.metrics.SetPending(pending)

	e.unsub = e.monitor.Subscribe(e.onConnectivity)

	if e.monitor.CurrentStatus() && pending > 0 {
		e.Trigger("startup")
	}
	return nil
}

func (e *Engine) onConnectivity(online bool) {
	e.update(func(s *models.SyncStatus) { s.IsOnline = online })
	if online {
		e.Trigger("online")
	}
}

// Close stops reacting to connectivity changes and waits for background
// passes to finish.
func (e *Engine) Close() {
	e.lifeMu.Lock()
	if e.closed {
		e.lifeMu.Unlock()
		return
	}
	e.closed = true
	e.lifeMu.Unlock()

	if e.unsub != nil {
		e.unsub()
	}
	e.wg.Wait()
}

// Trigger starts a background pass unless one is already running, the
// engine is closed or the monitor reports offline. It reports whether a pass
// was started.
func (e *Engine) Trigger(reason string) bool {
	ctx := context.Background()

	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	if e.closed {
		return false
	}
	if !e.monitor.CurrentStatus() {
		e.log.Debug(ctx, "sync skipped while offline", "reason", reason)
		return false
	}
	if !e.syncing.CompareAndSwap(false, true) {
		e.metrics.TriggerDropped()
		e.log.Debug(ctx, "sync already running, trigger dropped", "reason", reason)
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_ = e.drain(ctx, reason)
	}()
	return true
}

// SyncNow runs a pass on the calling goroutine. It returns false when a
// pass was already running, and ErrOffline when the monitor reports
// offline. A store failure that aborted the pass is returned as the error.
func (e *Engine) SyncNow(ctx context.Context) (bool, error) {
	if !e.monitor.CurrentStatus() {
		return false, ErrOffline
	}
	e.lifeMu.RLock()
	if e.closed {
		e.lifeMu.RUnlock()
		return false, nil
	}
	if !e.syncing.CompareAndSwap(false, true) {
		e.lifeMu.RUnlock()
		e.metrics.TriggerDropped()
		return false, nil
	}
	e.wg.Add(1)
	e.lifeMu.RUnlock()

	defer e.wg.Done()
	return true, e.drain(ctx, "manual")
}

// RetryPending triggers a pass when online with actions still queued.
func (e *Engine) RetryPending(ctx context.Context) {
	if !e.monitor.CurrentStatus() || e.syncing.Load() {
		return
	}
	n, err := e.queue.Count(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to count pending actions", "error", err)
		return
	}
	if n > 0 {
		e.Trigger("retry")
	}
}

// Enqueue stores a new pending action, publishes the new pending count and,
// when online, triggers a pass.
func (e *Engine) Enqueue(ctx context.Context, d models.ActionDescriptor) (*models.PendingAction, error) {
	a, err := e.queue.EnqueueDescriptor(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := e.RefreshPending(ctx); err != nil {
		e.log.Warn(ctx, "failed to refresh pending count", "error", err)
	}
	if e.monitor.CurrentStatus() {
		e.Trigger("enqueue")
	}
	return a, nil
}

// RefreshPending re-reads the queue length and publishes it.
func (e *Engine) RefreshPending(ctx context.Context) error {
	n, err := e.queue.Count(ctx)
	if err != nil {
		return err
	}
	e.update(func(s *models.SyncStatus) { s.PendingCount = n })
	e.metrics.SetPending(n)
	return nil
}

func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status.Clone()
}

// Subscribe registers fn for every published status. Listeners run
// synchronously and must not call back into the engine.
func (e *Engine) Subscribe(fn func(models.SyncStatus)) (unsubscribe func()) {
	return e.hub.Subscribe(fn)
}

func (e *Engine) update(fn func(s *models.SyncStatus)) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	e.mu.Lock()
	fn(&e.status)
	snapshot := e.status.Clone()
	e.mu.Unlock()

	e.hub.Publish(snapshot)
}
