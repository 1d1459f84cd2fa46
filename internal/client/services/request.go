package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/offlinekit/internal/client/cache"
	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/network"
	"github.com/dmitrijs2005/offlinekit/internal/client/syncer"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
)

// ReadRequest is a GET against the remote API. A live result is cached
// under CacheKey only when TTLMinutes is set.
type ReadRequest struct {
	Endpoint   string
	CacheKey   string
	TTLMinutes *int
	Query      url.Values
}

// WriteRequest is a mutating call. OfflineAction describes what to queue
// when the call cannot be made live; its empty fields default to the
// request's own endpoint, method and payload.
type WriteRequest struct {
	Endpoint      string
	Method        string
	Payload       any
	OfflineAction *models.ActionDescriptor
}

type Result struct {
	Data       json.RawMessage
	StatusCode int
	FromCache  bool
	Queued     bool
	ActionID   string
}

type RequestService interface {
	Get(ctx context.Context, req ReadRequest) (*Result, error)
	Write(ctx context.Context, req WriteRequest) (*Result, error)
}

type requestService struct {
	client  client.Client
	monitor *network.Monitor
	cache   *cache.Manager
	engine  *syncer.Engine
	log     logging.Logger
}

func NewRequestService(c client.Client, m *network.Monitor, cm *cache.Manager, e *syncer.Engine, log logging.Logger) RequestService {
	if log == nil {
		log = logging.Nop()
	}
	return &requestService{client: c, monitor: m, cache: cm, engine: e, log: log.With("module", "requests")}
}

func (s *requestService) Get(ctx context.Context, req ReadRequest) (*Result, error) {
	if !s.monitor.CurrentStatus() {
		res, ok, err := s.fromCache(ctx, req.CacheKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoConnectionNoCache
		}
		return res, nil
	}

	resp, err := s.client.Do(ctx, client.Request{Method: http.MethodGet, Endpoint: req.Endpoint, Query: req.Query})
	if err != nil {
		res, ok, cerr := s.fromCache(ctx, req.CacheKey)
		if cerr != nil {
			s.log.Warn(ctx, "cache fallback failed", "key", req.CacheKey, "error", cerr)
		}
		if ok {
			s.log.Info(ctx, "live read failed, serving cache", "endpoint", req.Endpoint, "error", err)
			return res, nil
		}
		return nil, err
	}

	if req.CacheKey != "" && req.TTLMinutes != nil {
		if err := s.cache.Put(ctx, req.CacheKey, resp.Body, req.TTLMinutes); err != nil {
			s.log.Warn(ctx, "failed to cache response", "key", req.CacheKey, "error", err)
		}
	}
	return &Result{Data: resp.Body, StatusCode: resp.StatusCode}, nil
}

func (s *requestService) fromCache(ctx context.Context, key string) (*Result, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Result{Data: data, StatusCode: http.StatusOK, FromCache: true}, true, nil
}

// Write performs req live when online. Live failures are returned as is and
// never queued; only a write attempted while offline is deferred.
func (s *requestService) Write(ctx context.Context, req WriteRequest) (*Result, error) {
	method := strings.ToUpper(req.Method)
	if !models.ValidWriteMethod(method) {
		return nil, fmt.Errorf("%w: unsupported method %q", models.ErrInvalidAction, req.Method)
	}

	if !s.monitor.CurrentStatus() {
		if req.OfflineAction == nil {
			return nil, ErrNoConnection
		}
		d := *req.OfflineAction
		if d.Endpoint == "" {
			d.Endpoint = req.Endpoint
		}
		if d.Method == "" {
			d.Method = method
		}
		if d.Payload == nil {
			d.Payload = req.Payload
		}

		a, err := s.engine.Enqueue(ctx, d)
		if err != nil {
			return nil, err
		}
		return &Result{StatusCode: http.StatusAccepted, Queued: true, ActionID: a.ID}, nil
	}

	var body json.RawMessage
	if req.Payload != nil {
		b, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = b
	}

	resp, err := s.client.Do(ctx, client.Request{Method: method, Endpoint: req.Endpoint, Body: body})
	if err != nil {
		return nil, err
	}
	return &Result{Data: resp.Body, StatusCode: resp.StatusCode}, nil
}
