// Package greeter is the greet.Greeter demo service called by the example programs.
// Its messages are structpb.Struct values: a request {"name": ...} and a reply {"message": ...}.
package greeter

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName                = "greet.Greeter"
	SayHelloMethod             = "/greet.Greeter/SayHello"
	SayHelloServerStreamMethod = "/greet.Greeter/SayHelloServerStream"
)

// GreeterServer is the server API for the greet.Greeter service.
type GreeterServer interface {
	SayHello(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SayHelloServerStream(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc is the grpc.ServiceDesc for the greet.Greeter service.
var ServiceDesc = grpc.ServiceDesc{ //nolint:gochecknoglobals
	ServiceName: ServiceName,
	HandlerType: (*GreeterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SayHello",
			Handler:    sayHelloHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SayHelloServerStream",
			Handler:       sayHelloServerStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "greet.proto",
}

// RegisterGreeterServer registers srv on s.
func RegisterGreeterServer(s grpc.ServiceRegistrar, srv GreeterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sayHelloHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GreeterServer).SayHello(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SayHelloMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GreeterServer).SayHello(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func sayHelloServerStreamHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(GreeterServer).SayHelloServerStream(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// Client is the client API for the greet.Greeter service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a greeter client on cc. Interceptors installed on cc apply to every call.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) SayHello(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SayHelloMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SayHelloServerStream(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], SayHelloServerStreamMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
