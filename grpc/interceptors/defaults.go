package interceptors

import (
	"time"

	grpctrace "github.com/DataDog/dd-trace-go/contrib/google.golang.org/grpc/v2"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
)

// Config holds essential configuration options for the server interceptor chains.
type Config struct {
	RequestTimeout time.Duration
	Environment    string
	ServiceName    string

	PanicRecoveryEnabled bool

	LoggingOptions []LoggingInterceptorOption
}

// ConfigOption is a functional option for configuring the interceptor chain
type ConfigOption func(*Config)

// WithRequestTimeout sets the server-side request timeout duration
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithPanicRecovery enables or disables the panic recovery interceptor
func WithPanicRecovery(enabled bool) ConfigOption {
	return func(c *Config) {
		c.PanicRecoveryEnabled = enabled
	}
}

// WithLoggingOptions appends logging options to the chain's logger interceptor
func WithLoggingOptions(opts ...LoggingInterceptorOption) ConfigOption {
	return func(c *Config) {
		c.LoggingOptions = append(c.LoggingOptions, opts...)
	}
}

// WithBasicLogging enables logging without payloads
func WithBasicLogging(enabled bool, level zapcore.Level) ConfigOption {
	return WithLoggingOptions(
		LogEnabled(enabled),
		LogLevel(level),
		ErrorLogLevel(zapcore.ErrorLevel),
		LogParams(false),
	)
}

// WithDetailedLogging enables logging with request and response payloads
func WithDetailedLogging() ConfigOption {
	return WithLoggingOptions(
		LogEnabled(true),
		LogLevel(zapcore.InfoLevel),
		ErrorLogLevel(zapcore.ErrorLevel),
		LogParams(true),
	)
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig(serviceName, environment string, opts ...ConfigOption) *Config {
	config := &Config{
		RequestTimeout:       30 * time.Second,
		ServiceName:          serviceName,
		Environment:          environment,
		PanicRecoveryEnabled: true,
		LoggingOptions: []LoggingInterceptorOption{
			LogEnabled(true),
			LogLevel(zapcore.InfoLevel),
			LogParams(false), // payloads may hold sensitive data
			WithSkippedLogsByMethods(healthCheckMethod),
			GrpcCodeLogLevel(
				map[codes.Code]zapcore.Level{ //nolint:exhaustive
					codes.Canceled: zapcore.WarnLevel,
				},
			),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// NewDefaultServerUnaryChain creates a server interceptor chain with sensible defaults.
//
// Example usage:
//
//	chain := NewDefaultServerUnaryChain("greeter", "production", logger,
//	    WithRequestTimeout(60 * time.Second),
//	    WithDetailedLogging(),
//	)
func NewDefaultServerUnaryChain(
	serviceName,
	environment string,
	log *logger.Logger,
	opts ...ConfigOption,
) *UnaryServerInterceptorChain {
	cfg := NewConfig(serviceName, environment, opts...)
	chain := NewUnaryServerInterceptorChain()

	if cfg.RequestTimeout > 0 {
		chain.Push("server-deadline", ServerDeadlineInterceptor(cfg.RequestTimeout))
	}

	chain.Push("trace", grpctrace.UnaryServerInterceptor(
		grpctrace.WithService(cfg.ServiceName),
		grpctrace.WithAnalytics(true),
		grpctrace.WithMetadataTags(),
		grpctrace.WithUntracedMethods(healthCheckMethod),
	))

	chain.Push("correlation", UnaryCorrelationServerInterceptor)
	chain.Push("headers", ResponseHeadersInterceptor())
	chain.Push("logger", UnaryLoggerServerInterceptor(log, cfg.LoggingOptions...))
	chain.Push("errors", UnaryErrorServerInterceptor)

	if cfg.PanicRecoveryEnabled {
		chain.Push("panic-recovery", UnaryPanicRecoveryServerInterceptor(log))
	}

	chain.Push("context-status", UnaryContextStatusInterceptor())

	return chain
}

// NewDefaultServerStreamChain is the streaming counterpart of NewDefaultServerUnaryChain.
// Stream deadlines are left to the client.
func NewDefaultServerStreamChain(
	serviceName,
	environment string,
	log *logger.Logger,
	opts ...ConfigOption,
) *StreamServerInterceptorChain {
	cfg := NewConfig(serviceName, environment, opts...)
	chain := NewStreamServerInterceptorChain()

	chain.Push("trace", grpctrace.StreamServerInterceptor(
		grpctrace.WithService(cfg.ServiceName),
		grpctrace.WithAnalytics(true),
		grpctrace.WithMetadataTags(),
	))
	chain.Push("correlation", StreamCorrelationServerInterceptor)
	chain.Push("logger", StreamLoggerServerInterceptor(log, cfg.LoggingOptions...))
	chain.Push("errors", StreamErrorServerInterceptor)

	if cfg.PanicRecoveryEnabled {
		chain.Push("panic-recovery", StreamPanicRecoveryServerInterceptor(log))
	}

	chain.Push("context-status", StreamContextStatusInterceptor())

	return chain
}

// NewDefaultClientUnaryChain creates the client chain for unary calls: tracing, upstream tagging and
// call logging. The logger runs inside the tracer so failures tag the client span.
func NewDefaultClientUnaryChain(
	serviceName string,
	log *logger.Logger,
	loggerOpts ...LoggingInterceptorOption,
) *UnaryClientInterceptorChain {
	chain := NewUnaryClientInterceptorChain()
	chain.Push("tracer", grpctrace.UnaryClientInterceptor(
		grpctrace.WithService(serviceName),
		grpctrace.WithAnalytics(true),
	))
	chain.Push("upstream-info", UnaryUpstreamInfoClientInterceptor(serviceName))
	chain.Push("logger", UnaryLoggerClientInterceptor(log, loggerOpts...))

	return chain
}

// NewDefaultClientStreamChain is the streaming counterpart of NewDefaultClientUnaryChain.
func NewDefaultClientStreamChain(
	serviceName string,
	log *logger.Logger,
	loggerOpts ...LoggingInterceptorOption,
) *StreamClientInterceptorChain {
	chain := NewStreamClientInterceptorChain()
	chain.Push("tracer", grpctrace.StreamClientInterceptor(
		grpctrace.WithService(serviceName),
		grpctrace.WithAnalytics(true),
	))
	chain.Push("upstream-info", StreamUpstreamInfoClientInterceptor(serviceName))
	chain.Push("logger", StreamLoggerClientInterceptor(log, loggerOpts...))

	return chain
}

// ClientDialOptions returns the dial options installing the default client chains, sharing
// one correlation propagator between unary and streaming calls.
//
//	conn, err := grpc.NewClient(target, append(creds, interceptors.ClientDialOptions("api", log)...)...)
func ClientDialOptions(
	serviceName string,
	log *logger.Logger,
	loggerOpts ...LoggingInterceptorOption,
) []grpc.DialOption {
	opts := append([]LoggingInterceptorOption{WithPropagator(correlation.NewPropagator())}, loggerOpts...)
	return []grpc.DialOption{
		grpc.WithUnaryInterceptor(NewDefaultClientUnaryChain(serviceName, log, opts...).Commit()),
		grpc.WithStreamInterceptor(NewDefaultClientStreamChain(serviceName, log, opts...).Commit()),
	}
}

// NewProductionServerChain creates a production-ready server interceptor chain
func NewProductionServerChain(serviceName, environment string, log *logger.Logger) *UnaryServerInterceptorChain {
	return NewDefaultServerUnaryChain(serviceName, environment, log,
		WithRequestTimeout(30*time.Second),
		WithBasicLogging(true, zapcore.InfoLevel),
	)
}

// NewDevelopmentServerChain creates a development-friendly server interceptor chain
func NewDevelopmentServerChain(serviceName, environment string, log *logger.Logger) *UnaryServerInterceptorChain {
	return NewDefaultServerUnaryChain(serviceName, environment, log,
		WithRequestTimeout(60*time.Second),
		WithDetailedLogging(),
		WithLoggingOptions(LogLevel(zapcore.DebugLevel)),
	)
}
