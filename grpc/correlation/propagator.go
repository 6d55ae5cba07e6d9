// Package correlation threads a correlation id through outgoing gRPC calls:
// it is written to the outgoing metadata for the remote side and pushed into
// the context logger for everything that runs on behalf of the call.
package correlation

import (
	"context"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/headers"
)

// CallKind is the shape of an outgoing call.
type CallKind string

const (
	Unary        CallKind = "unary"
	ServerStream CallKind = "server_stream"
)

func (k CallKind) String() string { return string(k) }

type config struct {
	header string
	reuse  bool
}

// Option configures a Propagator.
type Option func(*config)

// WithHeader sets the outgoing metadata key carrying the id. Default is x-correlation-id.
func WithHeader(header string) Option {
	return func(c *config) {
		c.header = header
	}
}

// WithReuse controls whether an id already present on the context is reused
// instead of generating a new one. Default is enabled.
func WithReuse(enabled bool) Option {
	return func(c *config) {
		c.reuse = enabled
	}
}

// Propagator begins correlation scopes for outgoing calls. It is safe for concurrent use.
type Propagator struct {
	cfg    config
	active atomic.Int64
}

// NewPropagator creates a Propagator with the given options.
func NewPropagator(opts ...Option) *Propagator {
	cfg := config{
		header: headers.HeaderXCorrelationID,
		reuse:  true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Propagator{cfg: cfg}
}

// Begin opens the correlation scope of one call. The returned context carries the id
// in its correlation data, its context logger and its outgoing metadata. Begin never fails.
// The caller must Release the scope once the call's unit of work is over.
func (p *Propagator) Begin(ctx context.Context, kind CallKind) (context.Context, *Scope) {
	id := ""
	if p.cfg.reuse {
		id = correlation.ID(ctx)
	}
	if id == "" {
		id = correlation.NewID()
	}

	ctx = correlation.SetID(ctx, id)

	// Set rather than append, so nested interceptors never send the header twice.
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(p.cfg.header, id)
	ctx = metadata.NewOutgoingContext(ctx, md)

	p.active.Add(1)
	return ctx, &Scope{id: id, kind: kind, propagator: p}
}

// Active returns the number of scopes begun and not yet released.
func (p *Propagator) Active() int64 {
	return p.active.Load()
}

// Scope is the correlation scope of a single call.
type Scope struct {
	id         string
	kind       CallKind
	propagator *Propagator
	release    sync.Once
}

// ID returns the correlation id of the call.
func (s *Scope) ID() string {
	return s.id
}

// Kind returns the shape of the call.
func (s *Scope) Kind() CallKind {
	return s.kind
}

// Release ends the scope. Only the first call has an effect.
func (s *Scope) Release() {
	s.release.Do(func() {
		s.propagator.active.Add(-1)
	})
}
