package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryErrorServerInterceptor tags the tracing span of a failed call with its status.
func UnaryErrorServerInterceptor(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		Failed(err).tagSpan(ctx)
	}
	return resp, err
}

// StreamErrorServerInterceptor is the streaming counterpart of UnaryErrorServerInterceptor.
func StreamErrorServerInterceptor(
	srv any,
	ss grpc.ServerStream,
	_ *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	err := handler(srv, ss)
	if err != nil {
		Failed(err).tagSpan(ss.Context())
	}
	return err
}
