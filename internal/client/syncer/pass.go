package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/metrics"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/queue"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/metadata"
)

// drain runs one pass. The caller must have set e.syncing; drain clears it.
// The pass is detached from ctx cancellation and always runs its snapshot
// to completion.
func (e *Engine) drain(ctx context.Context, reason string) error {
	ctx = context.WithoutCancel(ctx)
	start := e.now()
	log := e.log.With("reason", reason)

	e.update(func(s *models.SyncStatus) {
		s.IsSyncing = true
		s.SyncErrors = nil
	})

	var syncErrors []string
	storeErr := e.replaySnapshot(ctx, &syncErrors)
	if storeErr != nil {
		syncErrors = append(syncErrors, "store error: "+storeErr.Error())
		log.Error(ctx, "drain pass aborted", "error", storeErr)
	}

	// a failing store usually fails Count too; report it once
	pending, err := e.queue.Count(ctx)
	if err != nil && storeErr == nil {
		syncErrors = append(syncErrors, "store error: "+err.Error())
		storeErr = err
	}

	finished := e.now()
	if e.syncTimes != nil {
		if err := e.syncTimes.SetTime(ctx, metadata.KeyLastSyncTime, finished); err != nil {
			log.Warn(ctx, "failed to persist last sync time", "error", err)
		}
	}

	result := metrics.ResultCompleted
	if storeErr != nil {
		result = metrics.ResultAborted
	}
	e.metrics.Pass(result, finished.Sub(start))

	e.update(func(s *models.SyncStatus) {
		s.IsSyncing = false
		s.LastSyncTime = &finished
		s.SyncErrors = syncErrors
		if err == nil {
			s.PendingCount = pending
		}
		e.syncing.Store(false)
	})
	if err == nil {
		e.metrics.SetPending(pending)
	}

	log.Info(ctx, "drain pass finished", "result", result, "pending", pending, "errors", len(syncErrors))
	return storeErr
}

// replaySnapshot attempts every action queued at pass start. It returns
// the first store error, which ends the pass.
func (e *Engine) replaySnapshot(ctx context.Context, syncErrors *[]string) error {
	snapshot, err := e.queue.List(ctx)
	if err != nil {
		return err
	}

	for _, a := range snapshot {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		replayErr := e.replay(ctx, a)
		if replayErr == nil {
			if err := e.queue.Remove(ctx, a.ID); err != nil && !errors.Is(err, queue.ErrNotFound) {
				return err
			}
			e.metrics.Replay(metrics.OutcomeSuccess)
			continue
		}

		a.RetryCount++
		if a.Exhausted() {
			if err := e.queue.Remove(ctx, a.ID); err != nil && !errors.Is(err, queue.ErrNotFound) {
				return err
			}
			*syncErrors = append(*syncErrors, fmt.Sprintf("dropped after %d retries: %s", a.RetryCount, a.Endpoint))
			e.metrics.Replay(metrics.OutcomeDropped)
			e.log.Warn(ctx, "action dropped", "id", a.ID, "endpoint", a.Endpoint, "error", replayErr)
			continue
		}

		if err := e.queue.Update(ctx, a); err != nil && !errors.Is(err, queue.ErrNotFound) {
			return err
		}
		*syncErrors = append(*syncErrors, fmt.Sprintf("%s %s failed (attempt %d of %d): %v",
			a.Method, a.Endpoint, a.RetryCount, a.MaxRetries, replayErr))
		e.metrics.Replay(metrics.OutcomeRetry)
	}
	return nil
}

func (e *Engine) replay(ctx context.Context, a *models.PendingAction) error {
	if e.replayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.replayTimeout)
		defer cancel()
	}
	_, err := e.client.Do(ctx, client.Request{
		Method:   a.Method,
		Endpoint: a.Endpoint,
		Body:     a.Payload,
	})
	return err
}
