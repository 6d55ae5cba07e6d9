package server_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rainbow-me/grpc-client-logging/common/test"
	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
	"github.com/rainbow-me/grpc-client-logging/grpc/server"
)

func TestNewServer(t *testing.T) {
	noop := func(*grpc.Server) {}

	tests := []struct {
		name    string
		opts    []server.Option
		wantErr bool
	}{
		{name: "no servers", opts: nil},
		{name: "http server", opts: []server.Option{server.WithHTTPServer("http", ":0", http.NewServeMux())}},
		{name: "http server without handler", opts: []server.Option{server.WithHTTPServer("http", ":0", nil)}, wantErr: true},
		{name: "grpc server", opts: []server.Option{server.WithGRPCServer("grpc", ":0", nil, noop)}},
		{name: "grpc server without setup", opts: []server.Option{server.WithGRPCServer("grpc", ":0", nil, nil)}, wantErr: true},
		{
			name: "duplicate names",
			opts: []server.Option{
				server.WithHTTPServer("dup", ":0", http.NewServeMux()),
				server.WithGRPCServer("dup", ":0", nil, noop),
			},
			wantErr: true,
		},
		{name: "hook without function", opts: []server.Option{server.WithShutdownHook(server.ShutdownHook{Name: "x"})}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.NewServer(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServeWithoutServers(t *testing.T) {
	srv, err := server.NewServer(server.WithSignalHandling(false))
	require.NoError(t, err)
	require.Error(t, srv.Serve(context.Background()))
}

func TestServeInvalidAddress(t *testing.T) {
	srv, err := server.NewServer(
		server.WithSignalHandling(false),
		server.WithHTTPServer("http", "invalid-address", http.NewServeMux()),
	)
	require.NoError(t, err)
	require.Error(t, srv.Serve(context.Background()))
}

func TestServeGreeterAndShutdownHooks(t *testing.T) {
	log := test.NewLogger(t)
	var order []string
	hook := func(name string, err error) server.ShutdownHook {
		return server.ShutdownHook{
			Name: name,
			Hook: func(context.Context) error {
				order = append(order, name)
				return err
			},
		}
	}
	lowPriority := hook("second", errors.New("hook failed"))
	lowPriority.Priority = 2
	highPriority := hook("first", nil)
	highPriority.Priority = 1

	grpcServer := server.NewGRPCServer(
		interceptors.NewDefaultServerUnaryChain("greeter", "local", log),
		interceptors.NewDefaultServerStreamChain("greeter", "local", log),
	)
	srv, err := server.NewServer(
		server.WithLogger(log),
		server.WithSignalHandling(false),
		server.WithGRPCServer("greeter", "127.0.0.1:0", grpcServer, func(s *grpc.Server) {
			greeter.RegisterGreeterServer(s, greeter.NewServer())
		}),
		server.WithShutdownHook(lowPriority),
		server.WithShutdownHook(highPriority),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr("greeter") != nil }, time.Second, time.Millisecond)

	conn, err := grpc.NewClient(srv.Addr("greeter").String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	reply, err := greeter.NewClient(conn).SayHello(context.Background(), greeter.NewHelloRequest("Client"))
	require.NoError(t, err)
	assert.Equal(t, "Hello Client", greeter.Message(reply))

	// unknown methods are answered by the unknown service handler
	err = conn.Invoke(context.Background(), "/greet.Greeter/Missing", &structpb.Struct{}, &structpb.Struct{})
	require.Error(t, err)

	cancel()
	select {
	case err := <-served:
		require.ErrorContains(t, err, "hook failed")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, []string{"first", "second"}, order)
}
