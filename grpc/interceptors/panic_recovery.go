package interceptors

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// UnaryPanicRecoveryServerInterceptor creates a gRPC unary server interceptor that recovers
// from panics in gRPC handlers, logs them with their stack and returns codes.Internal to the client.
func UnaryPanicRecoveryServerInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return grpcrecovery.UnaryServerInterceptor(grpcrecovery.WithRecoveryHandlerContext(recoverPanic(log)))
}

// StreamPanicRecoveryServerInterceptor is the streaming counterpart of UnaryPanicRecoveryServerInterceptor.
func StreamPanicRecoveryServerInterceptor(log *logger.Logger) grpc.StreamServerInterceptor {
	return grpcrecovery.StreamServerInterceptor(grpcrecovery.WithRecoveryHandlerContext(recoverPanic(log)))
}

func recoverPanic(log *logger.Logger) grpcrecovery.RecoveryHandlerFuncContext {
	return func(ctx context.Context, panicValue any) error {
		panicLog := log
		if panicLog == nil {
			panicLog = logger.FromContext(ctx)
		}
		panicLog.Error("Recovered from panic in gRPC handler", logger.WithPanic(panicValue)...)
		if env.Current().IsLocal() {
			// pretty print the stack trace to the local console to make it human-readable
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		}

		if span, ok := tracer.SpanFromContext(ctx); ok {
			span.SetTag(ext.Error, true)
			span.SetTag(ext.ErrorType, "panic")
			span.SetTag(ext.ErrorMsg, codes.Internal.String())
		}

		// don't expose internal panic details
		return status.Error(codes.Internal, "Internal server error occurred")
	}
}
