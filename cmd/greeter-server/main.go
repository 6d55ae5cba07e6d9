// Command greeter-server serves the greeter and gRPC health services behind the default server chains,
// so its logs carry the correlation id sent by the clients.
package main

import (
	"context"
	"log"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rainbow-me/grpc-client-logging/common/config"
	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
	"github.com/rainbow-me/grpc-client-logging/grpc/server"
	"github.com/rainbow-me/grpc-client-logging/observability"
)

const appName = "greeter-server"

type Config struct {
	ServiceName     string               `mapstructure:"service_name"`
	Address         string               `mapstructure:"address"`
	StreamCount     int                  `mapstructure:"stream_count"`
	StreamInterval  time.Duration        `mapstructure:"stream_interval"`
	ShutdownTimeout time.Duration        `mapstructure:"shutdown_timeout"`
	Observability   observability.Config `mapstructure:"observability"`
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
	if err = config.LoadConfig(&cfg, l,
		config.WithDynamicDir(appName),
		config.WithDefaults(map[string]any{
			"service_name":     appName,
			"address":          ":50051",
			"stream_count":     5,
			"stream_interval":  "300ms",
			"shutdown_timeout": "30s",
		}),
	); err != nil {
		return errors.Wrap(err, "load config")
	}
	environment := env.Current().String()
	l = l.With(logger.String("service", cfg.ServiceName))

	if cfg.Observability.Enabled {
		stop := observability.InitObservability(cfg.ServiceName, environment, l, cfg.Observability.Options()...)
		defer stop()
	}

	unaryChain := interceptors.NewProductionServerChain(cfg.ServiceName, environment, l)
	if env.Current().IsLocal() {
		unaryChain = interceptors.NewDevelopmentServerChain(cfg.ServiceName, environment, l)
	}
	grpcServer := server.NewGRPCServer(unaryChain, interceptors.NewDefaultServerStreamChain(cfg.ServiceName, environment, l))

	healthServer := grpchealth.NewServer()
	srv, err := server.NewServer(
		server.WithLogger(l),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithGRPCServer("greeter", cfg.Address, grpcServer, func(s *grpc.Server) {
			greeter.RegisterGreeterServer(s, greeter.NewServer(
				greeter.WithStreamCount(cfg.StreamCount),
				greeter.WithStreamInterval(cfg.StreamInterval),
			))
			grpc_health_v1.RegisterHealthServer(s, healthServer)
			healthServer.SetServingStatus(greeter.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		}),
		server.WithShutdownHook(server.ShutdownHook{
			Name:     "health",
			Priority: 0,
			Hook: func(context.Context) error {
				healthServer.Shutdown()
				return nil
			},
		}),
	)
	if err != nil {
		return errors.Wrap(err, "create server")
	}

	return srv.Serve(context.Background())
}
