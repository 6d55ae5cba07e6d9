// Command grpc-client-service serves the trigger API: every HTTP request starts greeter calls whose
// client and server logs share the request's correlation id.
package main

import (
	"context"
	"log"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rainbow-me/grpc-client-logging/common/config"
	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/interceptors"
	"github.com/rainbow-me/grpc-client-logging/grpc/server"
	gininterceptors "github.com/rainbow-me/grpc-client-logging/http/interceptors/gin"
	"github.com/rainbow-me/grpc-client-logging/http/trigger"
	"github.com/rainbow-me/grpc-client-logging/observability"
)

const appName = "grpc-client-service"

type Config struct {
	ServiceName     string               `mapstructure:"service_name"`
	Address         string               `mapstructure:"address"`
	Target          string               `mapstructure:"target"`
	StreamDeadline  time.Duration        `mapstructure:"stream_deadline"`
	HandlerTimeout  time.Duration        `mapstructure:"handler_timeout"`
	ReadTimeout     time.Duration        `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration        `mapstructure:"write_timeout"`
	HTTPDebug       bool                 `mapstructure:"http_debug"`
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
	err = config.LoadConfig(&cfg, l,
		config.WithDynamicDir(appName),
		config.WithDefaults(map[string]any{
			"service_name":     appName,
			"address":          ":8080",
			"target":           "localhost:50051",
			"stream_deadline":  "1s",
			"handler_timeout":  "10s",
			"read_timeout":     "5s",
			"write_timeout":    "15s",
			"shutdown_timeout": "30s",
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
		interceptors.ClientDialOptions(cfg.ServiceName, l)...,
	)
	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return errors.Wrapf(err, "dial %s", cfg.Target)
	}

	handler, err := trigger.NewHandler(conn, trigger.WithStreamDeadline(cfg.StreamDeadline))
	if err != nil {
		return err
	}

	if !env.Current().IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middlewareOpts := []gininterceptors.InterceptorOpt{
		gininterceptors.WithLogger(l),
		gininterceptors.WithTimeout(cfg.HandlerTimeout),
	}
	if cfg.HTTPDebug {
		middlewareOpts = append(middlewareOpts, gininterceptors.WithHTTPDebug())
	}
	engine.Use(gininterceptors.DefaultInterceptors(middlewareOpts...)...)
	handler.Register(engine)

	srv, err := server.NewServer(
		server.WithLogger(l),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithHTTPServer("trigger-api", cfg.Address, engine,
			server.WithHTTPReadTimeout(cfg.ReadTimeout),
			server.WithHTTPWriteTimeout(cfg.WriteTimeout),
		),
		server.WithShutdownHook(server.ShutdownHook{
			Name: "grpc-client-conn",
			Hook: func(context.Context) error {
				return conn.Close()
			},
		}),
	)
	if err != nil {
		return errors.Wrap(err, "create server")
	}

	return srv.Serve(context.Background())
}
