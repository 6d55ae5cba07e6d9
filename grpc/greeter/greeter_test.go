package greeter_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
)

func newClient(t *testing.T, srv *greeter.Server) *greeter.Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	greeter.RegisterGreeterServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return greeter.NewClient(conn)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Client", greeter.Name(greeter.NewHelloRequest("Client")))
	assert.Equal(t, "Hello Client", greeter.Message(greeter.NewHelloReply("Hello Client")))
	assert.Empty(t, greeter.Name(nil))
}

func TestSayHello(t *testing.T) {
	client := newClient(t, greeter.NewServer())

	reply, err := client.SayHello(context.Background(), greeter.NewHelloRequest("Client"))
	require.NoError(t, err)
	assert.Equal(t, "Hello Client", greeter.Message(reply))

	_, err = client.SayHello(context.Background(), greeter.NewHelloRequest(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSayHelloServerStream(t *testing.T) {
	client := newClient(t, greeter.NewServer(greeter.WithStreamCount(3), greeter.WithStreamInterval(time.Millisecond)))

	stream, err := client.SayHelloServerStream(context.Background(), greeter.NewHelloRequest("Stream"))
	require.NoError(t, err)

	var messages []string
	for {
		reply, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		messages = append(messages, greeter.Message(reply))
	}
	assert.Equal(t, []string{"Hello Stream 1", "Hello Stream 2", "Hello Stream 3"}, messages)
}

func TestSayHelloServerStreamDeadline(t *testing.T) {
	client := newClient(t, greeter.NewServer(greeter.WithStreamCount(10), greeter.WithStreamInterval(time.Second)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stream, err := client.SayHelloServerStream(ctx, greeter.NewHelloRequest("Stream"))
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}
