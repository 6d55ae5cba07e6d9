package server

import (
	"net/http"
	"time"

	"google.golang.org/grpc"
)

const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultHookTimeout     = 5 * time.Second

	// The trigger API holds a request open for a whole server-streaming call,
	// so writes get more room than reads.
	DefaultHTTPReadTimeout   = 5 * time.Second
	DefaultHTTPWriteTimeout  = 10 * time.Second
	DefaultHTTPIdleTimeout   = 120 * time.Second
	DefaultHTTPHeaderTimeout = 2 * time.Second
)

// httpEndpoint is an HTTP server managed by Server, named for logging.
type httpEndpoint struct {
	name         string
	address      string
	handler      http.Handler
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (e httpEndpoint) server() *http.Server {
	return &http.Server{
		Handler:           e.handler,
		ReadTimeout:       e.readTimeout,
		WriteTimeout:      e.writeTimeout,
		IdleTimeout:       DefaultHTTPIdleTimeout,
		ReadHeaderTimeout: DefaultHTTPHeaderTimeout,
	}
}

// grpcEndpoint is a gRPC server managed by Server. A nil srv gets a plain NewGRPCServer.
type grpcEndpoint struct {
	name    string
	address string
	srv     *grpc.Server
	setup   func(*grpc.Server)
}

// HTTPOption tunes an HTTP server added with WithHTTPServer.
type HTTPOption func(*httpEndpoint)

// WithHTTPReadTimeout bounds reading a whole request. Non-positive values keep the default.
func WithHTTPReadTimeout(timeout time.Duration) HTTPOption {
	return func(e *httpEndpoint) {
		if timeout > 0 {
			e.readTimeout = timeout
		}
	}
}

// WithHTTPWriteTimeout bounds writing a response, which for the trigger API spans the gRPC call.
// Non-positive values keep the default.
func WithHTTPWriteTimeout(timeout time.Duration) HTTPOption {
	return func(e *httpEndpoint) {
		if timeout > 0 {
			e.writeTimeout = timeout
		}
	}
}
