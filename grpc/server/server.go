// Package server runs gRPC and HTTP servers side by side and shuts them down gracefully.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// Server owns a set of gRPC and HTTP servers.
type Server struct {
	log             *logger.Logger
	grpcEndpoints   []grpcEndpoint
	httpEndpoints   []httpEndpoint
	hooks           []ShutdownHook
	shutdownTimeout time.Duration
	signalHandling  bool

	mu          sync.Mutex
	listeners   map[string]net.Listener
	grpcServers []*grpc.Server
	httpServers []*http.Server
	stopOnce    sync.Once
	stopErr     error
}

// ShutdownHook is a cleanup step run once the servers are stopped, e.g. closing the client connection
// of a trigger API. Hooks run by ascending Priority.
type ShutdownHook struct {
	Name     string
	Priority int
	Timeout  time.Duration // defaults to DefaultHookTimeout
	Hook     func(context.Context) error
}

// Option configures a Server.
type Option func(*Server) error

func WithLogger(log *logger.Logger) Option {
	return func(s *Server) error {
		s.log = log
		return nil
	}
}

// WithHTTPServer adds an HTTP server serving handler on address.
func WithHTTPServer(name, address string, handler http.Handler, opts ...HTTPOption) Option {
	return func(s *Server) error {
		if handler == nil {
			return errors.Newf("http server %q: handler is required", name)
		}
		e := httpEndpoint{
			name:         name,
			address:      address,
			handler:      handler,
			readTimeout:  DefaultHTTPReadTimeout,
			writeTimeout: DefaultHTTPWriteTimeout,
		}
		for _, opt := range opts {
			opt(&e)
		}
		s.httpEndpoints = append(s.httpEndpoints, e)
		return nil
	}
}

// WithGRPCServer adds a gRPC server on address. When grpcServer is nil a plain one is created;
// setup registers the services.
func WithGRPCServer(name, address string, grpcServer *grpc.Server, setup func(*grpc.Server)) Option {
	return func(s *Server) error {
		if setup == nil {
			return errors.Newf("grpc server %q: setup function is required", name)
		}
		s.grpcEndpoints = append(s.grpcEndpoints, grpcEndpoint{
			name:    name,
			address: address,
			srv:     grpcServer,
			setup:   setup,
		})
		return nil
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		s.shutdownTimeout = timeout
		return nil
	}
}

// WithShutdownHook registers a cleanup function run after the servers have stopped.
func WithShutdownHook(hook ShutdownHook) Option {
	return func(s *Server) error {
		if hook.Hook == nil {
			return errors.Newf("shutdown hook %q: function is required", hook.Name)
		}
		if hook.Timeout <= 0 {
			hook.Timeout = DefaultHookTimeout
		}
		s.hooks = append(s.hooks, hook)
		return nil
	}
}

// WithSignalHandling controls whether SIGINT and SIGTERM stop Serve. Enabled by default.
func WithSignalHandling(enabled bool) Option {
	return func(s *Server) error {
		s.signalHandling = enabled
		return nil
	}
}

func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		log:             logger.Instance(),
		shutdownTimeout: DefaultShutdownTimeout,
		signalHandling:  true,
		listeners:       make(map[string]net.Listener),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	names := make(map[string]struct{})
	for _, name := range s.names() {
		if _, dup := names[name]; dup {
			return nil, errors.Newf("duplicate server name %q", name)
		}
		names[name] = struct{}{}
	}
	slices.SortStableFunc(s.hooks, func(a, b ShutdownHook) int { return a.Priority - b.Priority })

	return s, nil
}

func (s *Server) names() []string {
	var names []string
	for _, e := range s.grpcEndpoints {
		names = append(names, e.name)
	}
	for _, e := range s.httpEndpoints {
		names = append(names, e.name)
	}
	return names
}

// Serve listens on every configured address and blocks until ctx is done, a signal arrives
// or a server fails. The servers are then stopped gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if len(s.grpcEndpoints)+len(s.httpEndpoints) == 0 {
		return errors.New("no servers configured")
	}
	if s.signalHandling {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	errCh := make(chan error, len(s.grpcEndpoints)+len(s.httpEndpoints))

	for _, e := range s.grpcEndpoints {
		lis, err := s.listen(e.name, e.address)
		if err != nil {
			return errors.CombineErrors(err, s.Stop(context.Background()))
		}
		srv := e.srv
		if srv == nil {
			srv = NewGRPCServer(nil, nil)
		}
		e.setup(srv)
		s.mu.Lock()
		s.grpcServers = append(s.grpcServers, srv)
		s.mu.Unlock()

		s.log.Info("starting grpc server", logger.String("name", e.name), logger.String("address", lis.Addr().String()))
		go func(name string) {
			if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- errors.Wrapf(err, "grpc server %q", name)
			}
		}(e.name)
	}

	for _, e := range s.httpEndpoints {
		lis, err := s.listen(e.name, e.address)
		if err != nil {
			return errors.CombineErrors(err, s.Stop(context.Background()))
		}
		srv := e.server()
		s.mu.Lock()
		s.httpServers = append(s.httpServers, srv)
		s.mu.Unlock()

		s.log.Info("starting http server", logger.String("name", e.name), logger.String("address", lis.Addr().String()))
		go func(name string) {
			if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- errors.Wrapf(err, "http server %q", name)
			}
		}(e.name)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info("shutting down servers")
	case serveErr = <-errCh:
		s.log.Error("server failed, shutting down", logger.Error(serveErr))
	}

	return errors.CombineErrors(serveErr, s.Stop(context.Background()))
}

func (s *Server) listen(name, address string) (net.Listener, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %q on %s", name, address)
	}
	s.mu.Lock()
	s.listeners[name] = lis
	s.mu.Unlock()
	return lis, nil
}

// Addr returns the address the named server listens on, nil before Serve.
func (s *Server) Addr(name string) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lis, ok := s.listeners[name]; ok {
		return lis.Addr()
	}
	return nil
}

// Stop gracefully stops every server then runs the shutdown hooks by priority.
// Only the first call has an effect; later calls return its result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()

		s.mu.Lock()
		grpcServers, httpServers := s.grpcServers, s.httpServers
		s.mu.Unlock()

		var errs error
		for _, srv := range grpcServers {
			stopGRPC(ctx, srv)
		}
		for _, srv := range httpServers {
			if err := srv.Shutdown(ctx); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrap(err, "http shutdown"))
			}
		}
		errs = errors.CombineErrors(errs, s.executeShutdownHooks(ctx))
		s.stopErr = errs
	})
	return s.stopErr
}

func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
}

func (s *Server) executeShutdownHooks(ctx context.Context) error {
	var errs error
	for _, hook := range s.hooks {
		hookCtx, cancel := context.WithTimeout(ctx, hook.Timeout)
		err := hook.Hook(hookCtx)
		cancel()
		if err != nil {
			s.log.Error("shutdown hook failed", logger.String("hook", hook.Name), logger.Error(err))
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "shutdown hook %q", hook.Name))
		}
	}
	return errs
}
