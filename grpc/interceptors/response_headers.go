package interceptors

import (
	"context"
	"strconv"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/headers"
)

// ResponseHeadersInterceptor sends the correlation, trace and span ids of the call back
// to the client as response headers.
func ResponseHeadersInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if md := responseHeaders(ctx); md.Len() > 0 {
			// headers are best effort and must not fail the call
			_ = grpc.SetHeader(ctx, md)
		}
		return handler(ctx, req)
	}
}

func responseHeaders(ctx context.Context) metadata.MD {
	md := metadata.MD{}
	if id := correlation.ID(ctx); id != "" {
		md.Set(headers.HeaderXCorrelationID, id)
	}
	if span, ok := tracer.SpanFromContext(ctx); ok {
		md.Set(headers.HeaderXTraceID, span.Context().TraceID())
		md.Set(headers.HeaderXSpanID, strconv.FormatUint(span.Context().SpanID(), 10))
	}
	return md
}
