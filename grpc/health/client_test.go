package health_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rainbow-me/grpc-client-logging/common/test"
	"github.com/rainbow-me/grpc-client-logging/grpc/health"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
)

func TestHealthChecker(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	hs := grpchealth.NewServer()
	hs.SetServingStatus("greet.Greeter", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	s := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	log, logs := test.NewObservedLogger(zapcore.InfoLevel)
	checker, err := health.NewHealthChecker(
		health.WithTarget("passthrough:///bufnet"),
		health.WithDialOptions(
			grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUnaryInterceptor(interceptors.UnaryLoggerClientInterceptor(log)),
		),
	)
	require.NoError(t, err)
	defer checker.Close()

	require.NoError(t, checker.Serving(context.Background(), ""))
	require.ErrorIs(t, checker.Serving(context.Background(), "greet.Greeter"), health.ErrNotServing)
	assert.Equal(t, 4, logs.Len(), "health checks go through the dial options")
}

func TestHealthCheckerRequiresTarget(t *testing.T) {
	_, err := health.NewHealthChecker(health.WithTarget(""))
	require.Error(t, err)
}
