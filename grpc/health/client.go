// Package health checks the standard gRPC health service of a target.
package health

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ErrNotServing is returned by Serving when the target answers with a status other than SERVING.
var ErrNotServing = errors.New("service not serving")

type config struct {
	target      string
	dialTimeout time.Duration
	dialOptions []grpc.DialOption
	conn        grpc.ClientConnInterface
}

// Option is a functional option for configuring the health checker creation.
type Option func(*config)

// WithTarget sets the target address for the gRPC connection (e.g., "localhost:50051").
func WithTarget(target string) Option {
	return func(c *config) {
		c.target = target
	}
}

// WithDialOptions allows passing custom gRPC DialOptions, e.g. the logging interceptors.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *config) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// WithConn checks through an existing connection, which Close leaves open.
func WithConn(conn grpc.ClientConnInterface) Option {
	return func(c *config) {
		c.conn = conn
	}
}

// HealthChecker is a wrapper around the gRPC health client that manages the underlying connection.
type HealthChecker struct {
	client grpc_health_v1.HealthClient
	conn   *grpc.ClientConn
}

// Check performs a health check on the specified service.
func (h *HealthChecker) Check(
	ctx context.Context,
	req *grpc_health_v1.HealthCheckRequest,
	opts ...grpc.CallOption,
) (*grpc_health_v1.HealthCheckResponse, error) {
	return h.client.Check(ctx, req, opts...)
}

// Serving returns nil if service, "" for the whole server, reports SERVING.
func (h *HealthChecker) Serving(ctx context.Context, service string) error {
	resp, err := h.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return errors.Wrapf(ErrNotServing, "status %s", resp.GetStatus())
	}
	return nil
}

// Close closes the connection the checker dialed itself.
func (h *HealthChecker) Close() error {
	if h.conn != nil {
		return h.conn.Close()
	}
	return nil
}

// NewHealthChecker creates a new HealthChecker with the provided functional options.
// Without WithConn it dials the target, by default "localhost:50051", insecure with a 10s
// connect timeout. The user should call Close() when done, typically with defer.
func NewHealthChecker(opts ...Option) (*HealthChecker, error) {
	c := &config{
		target:      "localhost:50051",
		dialTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.conn != nil {
		return &HealthChecker{client: grpc_health_v1.NewHealthClient(c.conn)}, nil
	}

	if c.target == "" {
		return nil, errors.New("target address is required")
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.DefaultConfig,
			MinConnectTimeout: c.dialTimeout,
		}),
	}, c.dialOptions...)

	conn, err := grpc.NewClient(c.target, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", c.target)
	}

	return &HealthChecker{client: grpc_health_v1.NewHealthClient(conn), conn: conn}, nil
}
