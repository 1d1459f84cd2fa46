package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/metrics"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/network"
	"github.com/dmitrijs2005/offlinekit/internal/client/queue"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records every request and answers with respond.
type fakeClient struct {
	mu      sync.Mutex
	calls   []client.Request
	respond func(req client.Request) error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeClient) Do(ctx context.Context, req client.Request) (*client.Response, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		if err := respond(req); err != nil {
			return nil, err
		}
	}
	return &client.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeClient) requests() []client.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Request(nil), f.calls...)
}

// flakyStore fails every Save while failSave is set, and every Load while
// failLoad is set.
type flakyStore struct {
	records.Store
	failSave atomic.Bool
	failLoad atomic.Bool
}

func (s *flakyStore) Load(ctx context.Context, ns string) ([]json.RawMessage, error) {
	if s.failLoad.Load() {
		return nil, errors.Join(records.ErrStore, errors.New("disk I/O error"))
	}
	return s.Store.Load(ctx, ns)
}

func (s *flakyStore) Save(ctx context.Context, ns string, recs []json.RawMessage) error {
	if s.failSave.Load() {
		return errors.Join(records.ErrStore, errors.New("disk full"))
	}
	return s.Store.Save(ctx, ns, recs)
}

type memTimes struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func (s *memTimes) GetTime(_ context.Context, key string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memTimes) SetTime(_ context.Context, key string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = t
	return nil
}

type fixture struct {
	engine  *Engine
	monitor *network.Monitor
	client  *fakeClient
	queue   *queue.Queue
	store   *flakyStore
}

func newFixture(t *testing.T, online bool, opts ...Option) *fixture {
	t.Helper()
	store := &flakyStore{Store: records.NewMemoryStore()}
	q := queue.New(store, nil)
	mon := network.NewMonitor(online, nil)
	fc := &fakeClient{}

	e := NewEngine(q, fc, mon, nil, opts...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Close)

	return &fixture{engine: e, monitor: mon, client: fc, queue: q, store: store}
}

func bill(amount int) models.ActionDescriptor {
	return models.ActionDescriptor{
		Kind:     models.ActionCreate,
		Endpoint: "/bills",
		Method:   http.MethodPost,
		Payload:  map[string]int{"amount": amount},
	}
}

func waitIdle(t *testing.T, e *Engine, pending int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := e.Status()
		return !s.IsSyncing && s.PendingCount == pending
	}, 2*time.Second, time.Millisecond)
}

func TestEngine_OfflineEnqueueThenReconnectReplaysInOrder(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := f.engine.Enqueue(ctx, bill(100*i))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.engine.Status().PendingCount)
	assert.Empty(t, f.client.requests(), "nothing is sent while offline")

	f.monitor.Set(true)
	waitIdle(t, f.engine, 0)

	reqs := f.client.requests()
	require.Len(t, reqs, 3)
	for i, r := range reqs {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bills", r.Endpoint)
		var body map[string]int
		require.NoError(t, json.Unmarshal(r.Body, &body))
		assert.Equal(t, 100*(i+1), body["amount"])
	}

	s := f.engine.Status()
	assert.Empty(t, s.SyncErrors)
	assert.NotNil(t, s.LastSyncTime)
	assert.True(t, s.IsOnline)
}

func TestEngine_RetryCapIsInclusive(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.client.respond = func(client.Request) error { return client.ErrUnavailable }

	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)

	for pass := 1; pass <= 2; pass++ {
		ran, err := f.engine.SyncNow(ctx)
		require.NoError(t, err)
		require.True(t, ran)

		s := f.engine.Status()
		assert.Equal(t, 1, s.PendingCount)
		require.Len(t, s.SyncErrors, 1)
		assert.Contains(t, s.SyncErrors[0], "failed")

		list, err := f.queue.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, pass, list[0].RetryCount)
	}

	ran, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	s := f.engine.Status()
	assert.Zero(t, s.PendingCount)
	assert.Equal(t, []string{"dropped after 3 retries: /bills"}, s.SyncErrors)
	assert.Len(t, f.client.requests(), 3)

	_, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Len(t, f.client.requests(), 3, "never attempted after being dropped")
	assert.Empty(t, f.engine.Status().SyncErrors, "errors are cleared by the next pass")
}

func TestEngine_FailureDoesNotBlockLaterActions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.client.respond = func(r client.Request) error {
		if r.Endpoint == "/broken" {
			return &client.StatusError{StatusCode: http.StatusUnprocessableEntity}
		}
		return nil
	}

	_, err := f.queue.Enqueue(ctx, models.ActionUpdate, "/broken", http.MethodPut, nil, 5)
	require.NoError(t, err)
	_, err = f.queue.EnqueueDescriptor(ctx, bill(2))
	require.NoError(t, err)

	_, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)

	assert.Len(t, f.client.requests(), 2)
	s := f.engine.Status()
	assert.Equal(t, 1, s.PendingCount)
	require.Len(t, s.SyncErrors, 1)
	assert.Contains(t, s.SyncErrors[0], "PUT /broken failed (attempt 1 of 5)")
}

func TestEngine_SnapshotIsolation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	gate := make(chan struct{})
	var first sync.Once
	started := make(chan struct{})
	f.client.respond = func(client.Request) error {
		first.Do(func() {
			close(started)
			<-gate
		})
		return nil
	}

	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.SyncNow(ctx)
		done <- err
	}()
	<-started

	late, err := f.engine.Enqueue(ctx, bill(2))
	require.NoError(t, err)

	close(gate)
	require.NoError(t, <-done)

	require.Len(t, f.client.requests(), 1, "action queued mid-pass waits for the next pass")
	assert.Equal(t, 1, f.engine.Status().PendingCount)

	ran, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	reqs := f.client.requests()
	require.Len(t, reqs, 2)
	assert.JSONEq(t, string(late.Payload), string(reqs[1].Body))
	assert.Zero(t, f.engine.Status().PendingCount)
}

func TestEngine_NoConcurrentPassesUnderFlapping(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	f := newFixture(t, false, WithMetrics(m))
	ctx := context.Background()

	f.client.respond = func(client.Request) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}
	for i := 0; i < 10; i++ {
		_, err := f.engine.Enqueue(ctx, bill(i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				f.monitor.Set(true)
				f.engine.Trigger("test")
				f.monitor.Set(false)
			}
		}()
	}
	wg.Wait()
	f.monitor.Set(true)

	waitIdle(t, f.engine, 0)
	assert.Equal(t, int32(1), f.client.maxInFlight.Load(), "passes never overlap")
	assert.GreaterOrEqual(t, len(f.client.requests()), 10)

	n, err := testutil.GatherAndCount(reg, "offlinekit_sync_passes_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	assert.Equal(t, 0.0, gaugeValue(t, reg, "offlinekit_pending_actions"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestEngine_StoreFailureAbortsPass(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)
	_, err = f.queue.EnqueueDescriptor(ctx, bill(2))
	require.NoError(t, err)

	f.store.failSave.Store(true)
	ran, err := f.engine.SyncNow(ctx)
	require.True(t, ran)
	require.Error(t, err)
	assert.ErrorIs(t, err, records.ErrStore)

	assert.Len(t, f.client.requests(), 1, "remaining actions are not attempted")
	s := f.engine.Status()
	assert.False(t, s.IsSyncing)
	require.Len(t, s.SyncErrors, 1)
	assert.Contains(t, s.SyncErrors[0], "store error: ")
	assert.Equal(t, 2, s.PendingCount)

	f.store.failSave.Store(false)
	_, err = f.engine.SyncNow(ctx)
	require.NoError(t, err)

	// the first action is delivered again: at-least-once
	assert.Len(t, f.client.requests(), 3)
	assert.Zero(t, f.engine.Status().PendingCount)
}

func TestEngine_UnreadableStoreReportedOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)

	f.store.failLoad.Store(true)
	ran, err := f.engine.SyncNow(ctx)
	require.True(t, ran)
	assert.ErrorIs(t, err, records.ErrStore)

	assert.Empty(t, f.client.requests())
	s := f.engine.Status()
	assert.False(t, s.IsSyncing)
	require.Len(t, s.SyncErrors, 1)
	assert.Contains(t, s.SyncErrors[0], "store error: ")
	assert.Contains(t, s.SyncErrors[0], "disk I/O error")
}

func TestEngine_SyncNowWhileRunningIsDropped(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	gate := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	f.client.respond = func(client.Request) error {
		once.Do(func() { close(started) })
		<-gate
		return nil
	}
	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)

	require.True(t, f.engine.Trigger("first"))
	<-started

	ran, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.False(t, f.engine.Trigger("second"))

	close(gate)
	waitIdle(t, f.engine, 0)
	assert.Len(t, f.client.requests(), 1)
}

func TestEngine_SyncNowOffline(t *testing.T) {
	f := newFixture(t, false)

	ran, err := f.engine.SyncNow(context.Background())
	assert.False(t, ran)
	assert.ErrorIs(t, err, ErrOffline)
	assert.False(t, f.engine.Trigger("offline"))
}

func TestEngine_PublishesStartAndEnd(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []models.SyncStatus
	unsub := f.engine.Subscribe(func(s models.SyncStatus) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsub()

	_, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsSyncing)
	assert.False(t, seen[1].IsSyncing)
	assert.NotNil(t, seen[1].LastSyncTime)
}

func TestEngine_EnqueueWhileOnlineTriggersPass(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.engine.Enqueue(context.Background(), bill(5))
	require.NoError(t, err)

	waitIdle(t, f.engine, 0)
	assert.Len(t, f.client.requests(), 1)
}

func TestEngine_RetryPending(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.engine.RetryPending(ctx)
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, f.client.requests(), "no pass when nothing is queued")

	_, err := f.queue.EnqueueDescriptor(ctx, bill(1))
	require.NoError(t, err)
	f.engine.RetryPending(ctx)
	waitIdle(t, f.engine, 0)
	assert.Len(t, f.client.requests(), 1)
}

func TestEngine_CloseStopsReactingToMonitor(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.engine.Enqueue(ctx, bill(1))
	require.NoError(t, err)

	f.engine.Close()
	f.monitor.Set(true)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, f.client.requests())
	assert.False(t, f.engine.Status().IsOnline)
}

func TestEngine_PersistsLastSyncTime(t *testing.T) {
	times := &memTimes{m: map[string]time.Time{}}
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, true, WithSyncTimeStore(times), WithClock(func() time.Time { return at }))

	_, err := f.engine.SyncNow(context.Background())
	require.NoError(t, err)

	got, err := times.GetTime(context.Background(), "last_sync_time")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, at, *got)

	e2 := NewEngine(f.queue, f.client, f.monitor, nil, WithSyncTimeStore(times))
	require.NoError(t, e2.Start(context.Background()))
	defer e2.Close()
	require.NotNil(t, e2.Status().LastSyncTime)
	assert.Equal(t, at, *e2.Status().LastSyncTime)
}

func TestEngine_StartWhileOnlineDrainsBacklog(t *testing.T) {
	store := records.NewMemoryStore()
	q := queue.New(store, nil)
	_, err := q.EnqueueDescriptor(context.Background(), bill(1))
	require.NoError(t, err)

	fc := &fakeClient{}
	e := NewEngine(q, fc, network.NewMonitor(true, nil), nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Close()

	waitIdle(t, e, 0)
	assert.Len(t, fc.requests(), 1)
}

func TestEngine_ReplayLimit(t *testing.T) {
	f := newFixture(t, true, WithReplayLimit(50, 1))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.queue.EnqueueDescriptor(ctx, bill(i))
		require.NoError(t, err)
	}

	start := time.Now()
	_, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)

	assert.Len(t, f.client.requests(), 4)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
