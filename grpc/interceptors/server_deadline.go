package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// ServerDeadlineInterceptor caps the time a unary handler may run. A shorter deadline
// sent by the client still wins, since the earliest deadline of a context applies.
//
//	server := grpc.NewServer(grpc.UnaryInterceptor(ServerDeadlineInterceptor(30 * time.Second)))
func ServerDeadlineInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}
