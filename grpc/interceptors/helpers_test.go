package interceptors_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/common/test"
)

func observed() (*logger.Logger, *observer.ObservedLogs) {
	return test.NewObservedLogger(zapcore.DebugLevel)
}

func messages(logs *observer.ObservedLogs) []string {
	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// jsonLogger writes JSON lines to a buffer, for assertions on rendered payloads.
func jsonLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return logger.NewLogger(zap.New(core)), buf
}

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func okInvoker(reply *structpb.Struct) grpc.UnaryInvoker {
	return func(_ context.Context, _ string, _, out any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		proto.Merge(out.(*structpb.Struct), reply)
		return nil
	}
}

func errInvoker(err error) grpc.UnaryInvoker {
	return func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		return err
	}
}

// fakeClientStream replays replies then ends with err, or io.EOF when err is nil.
type fakeClientStream struct {
	ctx     context.Context
	replies []*structpb.Struct
	err     error
	sendErr error
	recvs   int
}

func (f *fakeClientStream) Header() (metadata.MD, error) { return metadata.Pairs("h", "v"), nil }
func (f *fakeClientStream) Trailer() metadata.MD         { return metadata.Pairs("t", "v") }
func (f *fakeClientStream) CloseSend() error             { return nil }
func (f *fakeClientStream) Context() context.Context     { return f.ctx }
func (f *fakeClientStream) SendMsg(any) error            { return f.sendErr }

func (f *fakeClientStream) RecvMsg(m any) error {
	f.recvs++
	if len(f.replies) > 0 {
		proto.Merge(m.(*structpb.Struct), f.replies[0])
		f.replies = f.replies[1:]
		return nil
	}
	if f.err != nil {
		return f.err
	}
	return io.EOF
}

func streamerOf(fake *fakeClientStream) grpc.Streamer {
	return func(ctx context.Context, _ *grpc.StreamDesc, _ *grpc.ClientConn, _ string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
		fake.ctx = ctx
		return fake, nil
	}
}

var serverStreamDesc = &grpc.StreamDesc{StreamName: "SayHelloServerStream", ServerStreams: true}
