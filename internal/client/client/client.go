package client

import (
	"context"
	"encoding/json"
	"net/url"
)

// Request describes one call to the remote API. Body is sent as JSON when
// non-empty.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     json.RawMessage
}

// Response is a successful (2xx) exchange.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Client performs requests against the remote API.
type Client interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Prober reports whether the remote side is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// TokenSource supplies the bearer token for outbound calls. An empty token
// means the request is sent unauthenticated.
type TokenSource func(ctx context.Context) (string, error)
