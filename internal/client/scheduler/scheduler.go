// Package scheduler runs named periodic tasks on their own tickers and
// stops them together on shutdown.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/logging"
)

type task struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
}

type Scheduler struct {
	log logging.Logger

	mu      sync.Mutex
	tasks   []task
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func New(log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{log: log.With("module", "scheduler")}
}

// Every registers fn to run each interval once the scheduler is started.
// Tasks with a non-positive interval are ignored. Registering while running
// starts the task immediately.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		s.log.Warn(context.Background(), "task disabled", "task", name)
		return
	}
	t := task{name: name, interval: interval, fn: fn}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	if s.running {
		s.spawn(s.ctx, t)
	}
}

func (s *Scheduler) spawn(ctx context.Context, t task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.log.Debug(ctx, "task tick", "task", t.name)
				t.fn(ctx)
			}
		}
	}()
}

// Start launches every registered task. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, t := range s.tasks {
		s.spawn(s.ctx, t)
	}
	s.log.Info(ctx, "scheduler started", "tasks", len(s.tasks))
}

// Stop cancels all tasks and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info(context.Background(), "scheduler stopped")
}
