package interceptors

import (
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
)

const (
	DefaultInterceptorLogLevel      zapcore.Level = zapcore.InfoLevel
	DefaultInterceptorErrorLogLevel zapcore.Level = zapcore.ErrorLevel
)

type LoggingInterceptorConfig struct {
	// LogEnabled false keeps only failure events.
	LogEnabled   bool
	LogRequests  bool
	LogResponses bool
	// LogMessages controls the payload of streamed messages.
	LogMessages        bool
	LogParamsBlocklist []*fieldmaskpb.FieldMask
	// MaxPayloadSize truncates rendered payloads longer than this many bytes. Zero disables it.
	MaxPayloadSize int
	LogLevel       zapcore.Level
	ErrorLogLevel  zapcore.Level

	// If set, overrides ErrorLogLevel for specified gRPC codes. All other codes will be logged with ErrorLogLevel.
	// Setting code.OK here will have no effect (LogLevel will still be followed)
	GrpcCodeLogLevel map[codes.Code]zapcore.Level

	skipLoggingByMethod map[string]struct{}
	propagator          *correlation.Propagator
}

type LoggingInterceptorOption func(*LoggingInterceptorConfig)

// LogParams toggles request, response and streamed message payloads at once.
func LogParams(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogRequests = v
		o.LogResponses = v
		o.LogMessages = v
	}
}

func LogEnabled(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogEnabled = v
	}
}

func LogRequests(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogRequests = v
	}
}

func LogResponses(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogResponses = v
	}
}

func LogMessages(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogMessages = v
	}
}

// WithPayloadBlocklist removes the given field paths from every logged payload.
// Paths use field mask syntax, e.g. "user.password".
func WithPayloadBlocklist(paths ...string) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		if len(paths) == 0 {
			return
		}
		o.LogParamsBlocklist = append(o.LogParamsBlocklist, &fieldmaskpb.FieldMask{Paths: paths})
	}
}

func WithMaxPayloadSize(size int) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.MaxPayloadSize = size
	}
}

func LogLevel(level zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogLevel = level
	}
}

func GrpcCodeLogLevel(errorCodeLogLevel map[codes.Code]zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.GrpcCodeLogLevel = errorCodeLogLevel
	}
}

func ErrorLogLevel(level zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.ErrorLogLevel = level
	}
}

func WithSkippedLogsByMethods(methods ...string) LoggingInterceptorOption {
	skipLoggingByMethod := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		skipLoggingByMethod[method] = struct{}{}
	}
	return func(o *LoggingInterceptorConfig) {
		o.skipLoggingByMethod = skipLoggingByMethod
	}
}

// WithPropagator shares a correlation propagator between interceptors, e.g. to observe
// its active scopes. Each interceptor otherwise gets its own.
func WithPropagator(p *correlation.Propagator) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.propagator = p
	}
}

func interceptorConfig(opts ...LoggingInterceptorOption) *LoggingInterceptorConfig {
	cfg := &LoggingInterceptorConfig{
		LogEnabled:    true,
		LogRequests:   true,
		LogResponses:  true,
		LogMessages:   true,
		LogLevel:      DefaultInterceptorLogLevel,
		ErrorLogLevel: DefaultInterceptorErrorLogLevel,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.propagator == nil {
		cfg.propagator = correlation.NewPropagator()
	}
	return cfg
}

func (c *LoggingInterceptorConfig) skipped(fullMethod string) bool {
	_, ok := c.skipLoggingByMethod[fullMethod]
	return ok
}

// failureLevel determines the log level of a failed call from its status code.
func (c *LoggingInterceptorConfig) failureLevel(o Outcome) zapcore.Level {
	if codeLevel, exists := c.GrpcCodeLogLevel[o.Code]; exists && o.Code != codes.OK {
		return codeLevel
	}
	return c.ErrorLogLevel
}
