// Package queue is the durable FIFO of write intents recorded while offline.
//
// The whole list lives in the pendingActions namespace and every mutation
// rewrites it under a mutex, so overlapping calls never lose updates.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/records"
	"github.com/dmitrijs2005/offlinekit/internal/common"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("pending action %w", common.ErrorNotFound)

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithDefaultMaxRetries sets the cap used when Enqueue gets maxRetries <= 0.
func WithDefaultMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.defaultMaxRetries = n
		}
	}
}

type Queue struct {
	store records.Store
	log   logging.Logger
	now   func() time.Time
	newID func() (uuid.UUID, error)

	defaultMaxRetries int

	mu sync.Mutex
}

func New(store records.Store, log logging.Logger, opts ...Option) *Queue {
	if log == nil {
		log = logging.Nop()
	}
	q := &Queue{
		store:             store,
		log:               log.With("module", "queue"),
		now:               time.Now,
		newID:             uuid.NewV7,
		defaultMaxRetries: models.DefaultMaxRetries,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *Queue) load(ctx context.Context) ([]*models.PendingAction, error) {
	recs, err := q.store.Load(ctx, records.NamespacePendingActions)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PendingAction, 0, len(recs))
	for _, rec := range recs {
		var a models.PendingAction
		if err := json.Unmarshal(rec, &a); err != nil {
			return nil, fmt.Errorf("%w: malformed pending action: %v", records.ErrStore, err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (q *Queue) save(ctx context.Context, actions []*models.PendingAction) error {
	recs := make([]json.RawMessage, 0, len(actions))
	for _, a := range actions {
		rec, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode pending action %s: %w", a.ID, err)
		}
		recs = append(recs, rec)
	}
	return q.store.Save(ctx, records.NamespacePendingActions, recs)
}

// Enqueue validates and appends a new action and persists it before
// returning the stored record.
func (q *Queue) Enqueue(ctx context.Context, kind models.ActionKind, endpoint, method string, payload any, maxRetries int) (*models.PendingAction, error) {
	d := models.ActionDescriptor{Kind: kind, Endpoint: endpoint, Method: method, Payload: payload, MaxRetries: maxRetries}
	return q.EnqueueDescriptor(ctx, d)
}

func (q *Queue) EnqueueDescriptor(ctx context.Context, d models.ActionDescriptor) (*models.PendingAction, error) {
	if d.MaxRetries <= 0 {
		d.MaxRetries = q.defaultMaxRetries
	}
	if err := d.Normalize(); err != nil {
		return nil, err
	}

	var body json.RawMessage
	if d.Payload != nil {
		b, err := json.Marshal(d.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %v", models.ErrInvalidAction, err)
		}
		body = b
	}

	id, err := q.newID()
	if err != nil {
		return nil, fmt.Errorf("generate action id: %w", err)
	}

	a := &models.PendingAction{
		ID:         id.String(),
		Kind:       d.Kind,
		Endpoint:   d.Endpoint,
		Method:     d.Method,
		Payload:    body,
		CreatedAt:  q.now().UnixMilli(),
		MaxRetries: d.MaxRetries,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.save(ctx, append(actions, a)); err != nil {
		return nil, err
	}

	q.log.Debug(ctx, "action queued", "id", a.ID, "kind", a.Kind, "endpoint", a.Endpoint)
	out := *a
	return &out, nil
}

// List returns the queued actions oldest first.
func (q *Queue) List(ctx context.Context) ([]*models.PendingAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.load(ctx)
	if err != nil {
		return err
	}
	for i, a := range actions {
		if a.ID == id {
			return q.save(ctx, append(actions[:i], actions[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Update persists the retry bookkeeping of an existing action in place.
func (q *Queue) Update(ctx context.Context, action *models.PendingAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.load(ctx)
	if err != nil {
		return err
	}
	for i, a := range actions {
		if a.ID == action.ID {
			cp := *action
			actions[i] = &cp
			return q.save(ctx, actions)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, action.ID)
}

func (q *Queue) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.save(ctx, nil)
}
