package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/common"
)

const maxBodyBytes = 8 << 20

// HTTPClient talks to the remote API over net/http.
type HTTPClient struct {
	baseURL *url.URL
	hc      *http.Client
	timeout time.Duration
	token   TokenSource
}

// NewHTTPClient builds a client rooted at baseURL. Each request is bounded
// by timeout; token may be nil.
func NewHTTPClient(baseURL string, timeout time.Duration, token TokenSource) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}
	return &HTTPClient{
		baseURL: u,
		hc:      &http.Client{},
		timeout: timeout,
		token:   token,
	}, nil
}

// resolve joins endpoint onto the base path. A query carried inside the
// endpoint is merged with query; keys in query win.
func (c *HTTPClient) resolve(endpoint string, query url.Values) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""

	merged := ref.Query()
	for k, v := range query {
		merged[k] = v
	}
	u.RawQuery = ""
	if len(merged) > 0 {
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}

func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	target, err := c.resolve(req.Endpoint, req.Query)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", common.ContentTypeJSON)
	if body != nil {
		httpReq.Header.Set("Content-Type", common.ContentTypeJSON)
	}

	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			httpReq.Header.Set(common.AuthorizationHeader, common.BearerPrefix+tok)
		}
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.mapError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = nil
	} else if !json.Valid(data) {
		// non-JSON bodies are passed through as a JSON string
		data, _ = json.Marshal(string(data))
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func (c *HTTPClient) mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
