package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HTTPProber treats any 2xx answer from the health URL as online.
type HTTPProber struct {
	url string
	hc  *http.Client
}

func NewHTTPProber(baseURL, healthPath string) *HTTPProber {
	return &HTTPProber{
		url: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(healthPath, "/"),
		hc:  &http.Client{},
	}
}

func (p *HTTPProber) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// GRPCHealthProber checks a grpc.health.v1 endpoint for SERVING.
type GRPCHealthProber struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

// NewGRPCHealthProber connects lazily to addr. Extra dial options are
// appended after the insecure transport credentials.
func NewGRPCHealthProber(addr, service string, opts ...grpc.DialOption) (*GRPCHealthProber, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCHealthProber{
		conn:    conn,
		client:  healthpb.NewHealthClient(conn),
		service: service,
	}, nil
}

func (p *GRPCHealthProber) Ping(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return p.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: health %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProber) mapError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (p *GRPCHealthProber) Close() error {
	return p.conn.Close()
}
