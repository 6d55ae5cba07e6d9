package greeter

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

const (
	DefaultStreamCount    = 5
	DefaultStreamInterval = 300 * time.Millisecond
)

// Server implements GreeterServer.
type Server struct {
	streamCount    int
	streamInterval time.Duration
}

type ServerOption func(*Server)

// WithStreamCount sets how many greetings a stream sends.
func WithStreamCount(count int) ServerOption {
	return func(s *Server) {
		s.streamCount = count
	}
}

// WithStreamInterval sets the pause before each streamed greeting.
func WithStreamInterval(interval time.Duration) ServerOption {
	return func(s *Server) {
		s.streamInterval = interval
	}
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		streamCount:    DefaultStreamCount,
		streamInterval: DefaultStreamInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streamInterval <= 0 {
		s.streamInterval = time.Microsecond
	}
	return s
}

func (s *Server) SayHello(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := Name(req)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	logger.FromContext(ctx).Debug("greeting", logger.String("name", name))
	return NewHelloReply("Hello " + name), nil
}

// SayHelloServerStream sends the configured number of greetings, one per interval.
// A stream whose context ends first returns the context error.
func (s *Server) SayHelloServerStream(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	name := Name(req)
	if name == "" {
		return status.Error(codes.InvalidArgument, "name is required")
	}

	ctx := stream.Context()
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for i := 1; i <= s.streamCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := stream.Send(NewHelloReply(fmt.Sprintf("Hello %s %d", name, i))); err != nil {
			return err
		}
	}
	return nil
}
