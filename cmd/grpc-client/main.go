// Command grpc-client calls the greeter once with a unary call and once with a server stream,
// logging both through the client interceptors.
package main

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/grpc-client-logging/common/config"
	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
	"github.com/rainbow-me/grpc-client-logging/observability"
)

const appName = "grpc-client"

type Config struct {
	ServiceName    string               `mapstructure:"service_name"`
	Target         string               `mapstructure:"target"`
	UnaryName      string               `mapstructure:"unary_name"`
	StreamName     string               `mapstructure:"stream_name"`
	StreamDeadline time.Duration        `mapstructure:"stream_deadline"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Observability  observability.Config `mapstructure:"observability"`
}

type LoggingConfig struct {
	Payloads       bool     `mapstructure:"payloads"`
	MaxPayloadSize int      `mapstructure:"max_payload_size"`
	Blocklist      []string `mapstructure:"blocklist"`
}

func (c LoggingConfig) Options() []interceptors.LoggingInterceptorOption {
	opts := []interceptors.LoggingInterceptorOption{
		interceptors.LogParams(c.Payloads),
		interceptors.WithMaxPayloadSize(c.MaxPayloadSize),
	}
	if len(c.Blocklist) > 0 {
		opts = append(opts, interceptors.WithPayloadBlocklist(c.Blocklist...))
	}
	return opts
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run() error {
	l, err := logger.InitLogger()
	if err != nil {
		return err
	}
	logger.SetInstance(l)
	defer func() { _ = l.Sync() }()

	var cfg Config
	err = config.LoadConfig(&cfg, l,
		config.WithDynamicDir(appName),
		config.WithDefaults(map[string]any{
			"service_name":             appName,
			"target":                   "localhost:50051",
			"unary_name":               "Client",
			"stream_name":              "Stream to Client",
			"stream_deadline":          "1s",
			"logging.payloads":         true,
			"logging.max_payload_size": 0,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.Observability.Enabled {
		stop := observability.InitObservability(cfg.ServiceName, env.Current().String(), l,
			cfg.Observability.Options()...)
		defer stop()
	}

	dialOpts := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		interceptors.ClientDialOptions(cfg.ServiceName, l, cfg.Logging.Options()...)...,
	)
	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return errors.Wrapf(err, "dial %s", cfg.Target)
	}
	defer conn.Close()
	client := greeter.NewClient(conn)

	// the unary call runs under an id chosen by the application, which the interceptor reuses
	ctx := logger.ContextWithLogger(context.Background(), l)
	ctx = correlation.ContextWithCorrelation(ctx, correlation.NewID())
	reply, err := client.SayHello(ctx, greeter.NewHelloRequest(cfg.UnaryName))
	if err != nil {
		return errors.Wrap(err, "unary call")
	}
	logger.FromContext(ctx).Info("Unary reply", logger.String("reply", greeter.Message(reply)))

	return serverStream(logger.ContextWithLogger(context.Background(), l), client, cfg)
}

func serverStream(ctx context.Context, client *greeter.Client, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.StreamDeadline)
	defer cancel()

	stream, err := client.SayHelloServerStream(ctx, greeter.NewHelloRequest(cfg.StreamName))
	if err != nil {
		return handleStreamError(ctx, err)
	}
	for {
		reply, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return handleStreamError(ctx, err)
		}
		logger.FromContext(ctx).Info("Stream reply", logger.String("reply", greeter.Message(reply)))
	}
}

// handleStreamError treats a stream cut by its deadline as an expected outcome.
func handleStreamError(ctx context.Context, err error) error {
	if status.Code(err) == codes.DeadlineExceeded {
		logger.FromContext(ctx).Warn("Server streaming call timed out.")
		return nil
	}
	return errors.Wrap(err, "server stream")
}
