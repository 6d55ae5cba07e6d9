package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/grpc-client-logging/common/headers"
)

const UpstreamServiceHeaderKey = headers.HeaderClientTaggingHeader

// upstreamName is the name a client announces to the servers it calls.
// Without a configured name it falls back to the called service, e.g. "Greeter" for "/greet.Greeter/SayHello".
func upstreamName(serverName, method string) string {
	if serverName != "" {
		return serverName
	}
	parts := strings.Split(method, "/")
	if len(parts) < 2 {
		return ""
	}
	service := strings.Split(parts[1], ".")
	return service[len(service)-1]
}

func withUpstreamInfo(ctx context.Context, serverName, method string) context.Context {
	name := upstreamName(serverName, method)
	if name == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(UpstreamServiceHeaderKey, name)
	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryUpstreamInfoClientInterceptor tags outgoing unary calls with the client's name.
func UnaryUpstreamInfoClientInterceptor(serverName string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(withUpstreamInfo(ctx, serverName, method), method, req, reply, cc, opts...)
	}
}

// StreamUpstreamInfoClientInterceptor tags outgoing streams with the client's name.
func StreamUpstreamInfoClientInterceptor(serverName string) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		return streamer(withUpstreamInfo(ctx, serverName, method), desc, cc, method, opts...)
	}
}
