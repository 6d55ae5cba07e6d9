package server

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
)

// DefaultGRPCMaxMsgSize is the default max message size in bytes the server can receive or send.
const DefaultGRPCMaxMsgSize = 1024 * 1024 * 10

// NewGRPCServer creates a gRPC server running the given interceptor chains, either of which may be nil.
// Unknown methods answer codes.Unimplemented, reflection is registered, and serverOptions are applied
// last so they can override the defaults.
//
//	server := NewGRPCServer(
//	    interceptors.NewDefaultServerUnaryChain("greeter", "local", log),
//	    interceptors.NewDefaultServerStreamChain("greeter", "local", log),
//	)
//	greeter.RegisterGreeterServer(server, greeter.NewServer())
func NewGRPCServer(
	unaryChain *interceptors.UnaryServerInterceptorChain,
	streamChain *interceptors.StreamServerInterceptorChain,
	serverOptions ...grpc.ServerOption,
) *grpc.Server {
	unknownHandler := func(_ any, _ grpc.ServerStream) error {
		return status.Error(codes.Unimplemented, "Unknown route")
	}

	baseServerOptions := []grpc.ServerOption{
		grpc.UnknownServiceHandler(unknownHandler),
		grpc.MaxRecvMsgSize(DefaultGRPCMaxMsgSize),
		grpc.MaxSendMsgSize(DefaultGRPCMaxMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if unaryChain != nil {
		baseServerOptions = append(baseServerOptions, grpc.UnaryInterceptor(unaryChain.Commit()))
	}
	if streamChain != nil {
		baseServerOptions = append(baseServerOptions, grpc.StreamInterceptor(streamChain.Commit()))
	}

	grpcServer := grpc.NewServer(append(baseServerOptions, serverOptions...)...)
	reflection.Register(grpcServer)

	return grpcServer
}
