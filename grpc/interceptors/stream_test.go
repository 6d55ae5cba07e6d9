package interceptors_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
)

func replies(n int) []*structpb.Struct {
	out := make([]*structpb.Struct, 0, n)
	for i := range n {
		out = append(out, greeter.NewHelloReply("Hello "+string(rune('A'+i))))
	}
	return out
}

func drain(t *testing.T, cs grpc.ClientStream) ([]string, error) {
	t.Helper()
	var got []string
	for {
		m := &structpb.Struct{}
		if err := cs.RecvMsg(m); err != nil {
			return got, err
		}
		got = append(got, greeter.Message(m))
	}
}

func TestStreamLoggerCompletes(t *testing.T) {
	log, logs := observed()
	propagator := correlation.NewPropagator()
	interceptor := interceptors.StreamLoggerClientInterceptor(log, interceptors.WithPropagator(propagator))

	fake := &fakeClientStream{replies: replies(3)}
	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(fake))
	require.NoError(t, err)
	assert.Equal(t, int64(1), propagator.Active())

	got, err := drain(t, cs)
	require.True(t, err == io.EOF) //nolint:errorlint
	assert.Equal(t, []string{"Hello A", "Hello B", "Hello C"}, got)

	assert.Equal(t, []string{
		"Starting gRPC server-streaming call",
		"Received streamed message",
		"Received streamed message",
		"Received streamed message",
		"gRPC server-streaming call completed",
	}, messages(logs))

	entries := logs.All()
	for i := 1; i <= 3; i++ {
		assert.Equal(t, int64(i), entries[i].ContextMap()["message_count"])
	}
	done := entries[4].ContextMap()
	assert.Equal(t, int64(3), done["message_count"])
	assert.Contains(t, done, "elapsed_ms")
	assert.Equal(t, "server_stream", done["rpc_kind"])
	assert.Equal(t, entries[0].ContextMap()["correlation_id"], done["correlation_id"])
	assert.Equal(t, int64(0), propagator.Active())

	// no logging once the stream is over
	assert.Equal(t, io.EOF, cs.RecvMsg(&structpb.Struct{}))
	assert.Equal(t, 5, logs.Len())
}

func TestStreamLoggerEmptyStream(t *testing.T) {
	log, logs := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{}))
	require.NoError(t, err)

	_, err = drain(t, cs)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, []string{"Starting gRPC server-streaming call", "gRPC server-streaming call completed"}, messages(logs))
	assert.Equal(t, int64(0), logs.All()[1].ContextMap()["message_count"])
}

func TestStreamLoggerFailsMidStream(t *testing.T) {
	log, logs := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	wantErr := status.Error(codes.DeadlineExceeded, "deadline exceeded")
	fake := &fakeClientStream{replies: replies(2), err: wantErr}
	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(fake))
	require.NoError(t, err)

	got, err := drain(t, cs)
	require.True(t, err == wantErr) //nolint:errorlint
	assert.Len(t, got, 2)
	assert.Equal(t, 3, fake.recvs, "no pulls beyond the failure")

	assert.Equal(t, []string{
		"Starting gRPC server-streaming call",
		"Received streamed message",
		"Received streamed message",
		"gRPC server-streaming call failed",
	}, messages(logs))
	failure := logs.All()[3].ContextMap()
	assert.Equal(t, "DeadlineExceeded", failure["status"])
	assert.Equal(t, int64(2), failure["message_count"])
}

func TestStreamLoggerGenericFailure(t *testing.T) {
	log, logs := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	wantErr := errors.New("broken pipe")
	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{err: wantErr}))
	require.NoError(t, err)

	_, err = drain(t, cs)
	require.True(t, err == wantErr) //nolint:errorlint
	assert.Equal(t, "Unexpected error in gRPC server-streaming call", logs.All()[1].Message)
}

func TestStreamLoggerInitFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "classified",
			err:  status.Error(codes.Unavailable, "no connection"),
			want: "gRPC server-streaming call failed during initialization",
		},
		{
			name: "generic",
			err:  errors.New("boom"),
			want: "Unexpected error during gRPC server-streaming call initialization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			propagator := correlation.NewPropagator()
			interceptor := interceptors.StreamLoggerClientInterceptor(log, interceptors.WithPropagator(propagator))

			cs, err := interceptor(context.Background(), serverStreamDesc, nil, greeter.SayHelloServerStreamMethod,
				func(context.Context, *grpc.StreamDesc, *grpc.ClientConn, string, ...grpc.CallOption) (grpc.ClientStream, error) {
					return nil, tt.err
				})

			assert.Nil(t, cs)
			require.True(t, err == tt.err) //nolint:errorlint
			assert.Equal(t, []string{"Starting gRPC server-streaming call", tt.want}, messages(logs))
			assert.Contains(t, logs.All()[1].ContextMap(), "elapsed_ms")
			assert.Equal(t, int64(0), propagator.Active())
		})
	}
}

func TestStreamLoggerSendFailure(t *testing.T) {
	log, logs := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	wantErr := status.Error(codes.Internal, "send failed")
	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{sendErr: wantErr}))
	require.NoError(t, err)

	require.True(t, cs.SendMsg(greeter.NewHelloRequest("x")) == wantErr) //nolint:errorlint
	require.True(t, cs.SendMsg(greeter.NewHelloRequest("x")) == wantErr) //nolint:errorlint

	assert.Equal(t, []string{
		"Starting gRPC server-streaming call",
		"gRPC server-streaming call failed during initialization",
	}, messages(logs))
}

func TestStreamLoggerLogsRequest(t *testing.T) {
	t.Run("first message", func(t *testing.T) {
		log, buf := jsonLogger()
		interceptor := interceptors.StreamLoggerClientInterceptor(log)

		cs, err := interceptor(context.Background(), serverStreamDesc, nil,
			greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{replies: replies(1)}))
		require.NoError(t, err)
		assert.Empty(t, buf.String(), "start is logged with the request")

		require.NoError(t, cs.SendMsg(greeter.NewHelloRequest("Client")))
		require.NoError(t, cs.CloseSend())
		_, err = drain(t, cs)
		require.True(t, err == io.EOF) //nolint:errorlint

		lines := jsonLines(t, buf)
		require.Len(t, lines, 3)
		assert.Equal(t, "Starting gRPC server-streaming call", lines[0]["msg"])
		request := lines[0]["request"].(map[string]any)["payload"]
		assert.Equal(t, map[string]any{"name": "Client"}, request)
		assert.NotContains(t, lines[1], "request")
	})

	t.Run("disabled", func(t *testing.T) {
		log, logs := observed()
		interceptor := interceptors.StreamLoggerClientInterceptor(log, interceptors.LogRequests(false))

		cs, err := interceptor(context.Background(), serverStreamDesc, nil,
			greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{}))
		require.NoError(t, err)
		require.NoError(t, cs.SendMsg(greeter.NewHelloRequest("Client")))

		require.Equal(t, 1, logs.Len())
		assert.NotContains(t, logs.All()[0].ContextMap(), "request")
	})

	t.Run("failed send", func(t *testing.T) {
		log, logs := observed()
		interceptor := interceptors.StreamLoggerClientInterceptor(log)

		wantErr := status.Error(codes.Internal, "send failed")
		cs, err := interceptor(context.Background(), serverStreamDesc, nil,
			greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{sendErr: wantErr}))
		require.NoError(t, err)
		require.True(t, cs.SendMsg(greeter.NewHelloRequest("Client")) == wantErr) //nolint:errorlint

		require.Equal(t, 2, logs.Len())
		assert.Contains(t, logs.All()[0].ContextMap(), "request")
	})
}

func TestStreamLoggerReleasesWhenDrained(t *testing.T) {
	log, _ := observed()
	propagator := correlation.NewPropagator()
	interceptor := interceptors.StreamLoggerClientInterceptor(log, interceptors.WithPropagator(propagator))

	// the context is never cancelled, so only draining ends the scope
	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{replies: replies(2)}))
	require.NoError(t, err)
	require.NoError(t, cs.SendMsg(greeter.NewHelloRequest("Client")))
	assert.Equal(t, int64(1), propagator.Active())

	_, err = drain(t, cs)
	require.True(t, err == io.EOF) //nolint:errorlint
	assert.Equal(t, int64(0), propagator.Active())
}

func TestStreamLoggerKeepsStreamContract(t *testing.T) {
	log, _ := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	cs, err := interceptor(context.Background(), serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{}))
	require.NoError(t, err)

	header, err := cs.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, header.Get("h"))
	assert.Equal(t, []string{"v"}, cs.Trailer().Get("t"))
	assert.NoError(t, cs.CloseSend())
	assert.NotNil(t, cs.Context())
}

func TestStreamLoggerPassesThroughOtherShapes(t *testing.T) {
	log, logs := observed()
	interceptor := interceptors.StreamLoggerClientInterceptor(log)

	for _, desc := range []*grpc.StreamDesc{
		{ClientStreams: true},
		{ClientStreams: true, ServerStreams: true},
	} {
		fake := &fakeClientStream{}
		cs, err := interceptor(context.Background(), desc, nil, "/svc.S/M", streamerOf(fake))
		require.NoError(t, err)
		assert.Same(t, fake, cs)
	}
	assert.Zero(t, logs.Len())
}

func TestStreamLoggerReleasesOnCancel(t *testing.T) {
	log, _ := observed()
	propagator := correlation.NewPropagator()
	interceptor := interceptors.StreamLoggerClientInterceptor(log, interceptors.WithPropagator(propagator))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := interceptor(ctx, serverStreamDesc, nil,
		greeter.SayHelloServerStreamMethod, streamerOf(&fakeClientStream{replies: replies(1)}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), propagator.Active())

	cancel()
	assert.Eventually(t, func() bool { return propagator.Active() == 0 }, time.Second, time.Millisecond)
}
