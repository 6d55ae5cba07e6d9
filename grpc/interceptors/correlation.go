package interceptors

import (
	"context"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
)

// incomingCorrelation establishes the correlation id of an incoming call from the
// x-correlation-id header, generating one if the caller did not send it.
func incomingCorrelation(ctx context.Context) context.Context {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(correlation.IDHeader); len(values) > 0 {
			id = values[0]
		}
	}
	return correlation.ContextWithCorrelation(ctx, id)
}

// UnaryCorrelationServerInterceptor makes the caller's correlation id available to the
// handler through the correlation data and the context logger.
func UnaryCorrelationServerInterceptor(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	return handler(incomingCorrelation(ctx), req)
}

// StreamCorrelationServerInterceptor is the streaming counterpart of UnaryCorrelationServerInterceptor.
func StreamCorrelationServerInterceptor(
	srv any,
	ss grpc.ServerStream,
	_ *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	wrapped := grpcmiddleware.WrapServerStream(ss)
	wrapped.WrappedContext = incomingCorrelation(ss.Context())
	return handler(srv, wrapped)
}
