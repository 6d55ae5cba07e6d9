package interceptors

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
)

const (
	msgUnaryStart         = "Starting gRPC unary call"
	msgUnaryCompleted     = "gRPC unary call completed successfully"
	msgUnaryFailed        = "gRPC unary call failed"
	msgUnaryUnexpected    = "Unexpected error in gRPC unary call"
	msgStreamStart        = "Starting gRPC server-streaming call"
	msgStreamInitFailed   = "gRPC server-streaming call failed during initialization"
	msgStreamInitUnexpect = "Unexpected error during gRPC server-streaming call initialization"
	msgStreamMessage      = "Received streamed message"
	msgStreamCompleted    = "gRPC server-streaming call completed"
	msgStreamFailed       = "gRPC server-streaming call failed"
	msgStreamUnexpected   = "Unexpected error in gRPC server-streaming call"
)

// clientLogger holds what the client interceptors share across calls.
type clientLogger struct {
	log *logger.Logger
	cfg *LoggingInterceptorConfig
}

func newClientLogger(log *logger.Logger, opts ...LoggingInterceptorOption) *clientLogger {
	if log == nil {
		log = logger.Instance()
	}
	return &clientLogger{
		// interceptor stacks are not useful in stack traces
		log: logger.NewLogger(log.WithOptions(zap.AddStacktrace(zap.FatalLevel))),
		cfg: interceptorConfig(opts...),
	}
}

// begin opens the correlation scope of a call and returns its context, description and logger.
func (c *clientLogger) begin(
	ctx context.Context,
	method string,
	cc *grpc.ClientConn,
	kind correlation.CallKind,
) (context.Context, *correlation.Scope, *CallContext, *logger.Logger) {
	ctx, scope := c.cfg.propagator.Begin(ctx, kind)
	call := newCallContext(method, cc, scope)
	callLog := c.log.With(call.fields()...).With(traceFields(ctx)...)
	return ctx, scope, call, callLog
}

// UnaryLoggerClientInterceptor creates a gRPC unary client interceptor that logs the start of
// every outgoing call and its completion or failure with the elapsed time. A correlation id is
// attached to the outgoing metadata and to the context logger for the duration of the call.
// The reply and the error returned by the invoker reach the caller unchanged.
func UnaryLoggerClientInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.UnaryClientInterceptor {
	c := newClientLogger(log, opts...)

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if c.cfg.skipped(method) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		ctx, scope, call, callLog := c.begin(ctx, method, cc, correlation.Unary)
		defer scope.Release()

		if c.cfg.LogEnabled {
			var fields []logger.Field
			if c.cfg.LogRequests {
				fields = payloadFields(requestKey, req, c.cfg)
			}
			callLog.Log(c.cfg.LogLevel, msgUnaryStart, fields...)
		}

		result := &unaryResult{call: call, log: callLog, cfg: c.cfg}
		return result.await(ctx, reply, func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}

// StreamLoggerClientInterceptor creates a gRPC stream client interceptor for server-streaming
// calls. It logs the start of the call with its request, every received message with its running
// count, and the completion or failure of the stream. Client-streaming and bidirectional calls are
// passed through untouched.
//
// The correlation scope of a call is released when the stream ends or its context is done.
// Callers must either drain the stream to io.EOF or an error, or cancel its context; a stream
// dropped on a context that is never cancelled keeps its scope active.
func StreamLoggerClientInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.StreamClientInterceptor {
	c := newClientLogger(log, opts...)

	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		if c.cfg.skipped(method) || !isServerStreaming(desc) {
			return streamer(ctx, desc, cc, method, opts...)
		}

		ctx, scope, call, callLog := c.begin(ctx, method, cc, correlation.ServerStream)

		cs, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			logStreamStart(callLog, c.cfg, nil)
			logStreamInitFailure(ctx, callLog, c.cfg, call, Failed(err))
			scope.Release()
			return nil, err
		}

		return newLoggingClientStream(ctx, cs, call, callLog, c.cfg, scope), nil
	}
}

// logStreamStart writes the starting line of a server-streaming call. The request only reaches
// the interceptor through the first SendMsg, so the line is deferred until then.
func logStreamStart(log *logger.Logger, cfg *LoggingInterceptorConfig, req any) {
	if !cfg.LogEnabled {
		return
	}
	var fields []logger.Field
	if cfg.LogRequests {
		fields = payloadFields(requestKey, req, cfg)
	}
	log.Log(cfg.LogLevel, msgStreamStart, fields...)
}

func isServerStreaming(desc *grpc.StreamDesc) bool {
	return desc != nil && desc.ServerStreams && !desc.ClientStreams
}

func logStreamInitFailure(
	ctx context.Context,
	log *logger.Logger,
	cfg *LoggingInterceptorConfig,
	call *CallContext,
	outcome Outcome,
) {
	outcome.tagSpan(ctx)
	msg := msgStreamInitFailed
	if !outcome.Classified {
		msg = msgStreamInitUnexpect
	}
	fields := append(outcome.fields(), call.elapsedFields()...)
	log.Log(cfg.failureLevel(outcome), msg, fields...)
}
