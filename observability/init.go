// Package observability starts the Datadog tracer and links spans to the context logger.
package observability

import (
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// Config is the observability section of the program configuration.
type Config struct {
	Enabled    bool `mapstructure:"enabled"`
	Metrics    bool `mapstructure:"metrics"`
	Analytics  bool `mapstructure:"analytics"`
	DebugStack bool `mapstructure:"debug_stack"`
}

type config struct {
	MetricsEnabled   bool
	AnalyticsEnabled bool
	DebugStack       bool
}

type Option func(o *config)

// WithMetrics enables/disables collection of Go Runtime Metrics. Default enabled.
func WithMetrics(enabled bool) Option {
	return func(c *config) {
		c.MetricsEnabled = enabled
	}
}

// WithAnalytics enables/disables trace analytics. Default enabled.
func WithAnalytics(enabled bool) Option {
	return func(c *config) {
		c.AnalyticsEnabled = enabled
	}
}

// WithDebugStack enables/disables capture of stack traces when an error is set on a span. Default disabled.
func WithDebugStack(enabled bool) Option {
	return func(c *config) {
		c.DebugStack = enabled
	}
}

// Options translates the configuration section into options.
func (c Config) Options() []Option {
	return []Option{WithMetrics(c.Metrics), WithAnalytics(c.Analytics), WithDebugStack(c.DebugStack)}
}

// InitObservability starts the tracer and returns the function stopping it.
// A tracer that fails to start is logged and the program carries on untraced.
func InitObservability(serviceName, env string, log *logger.Logger, opts ...Option) (stop func()) {
	log.Info("Starting tracer")
	cfg := &config{
		MetricsEnabled:   true,
		AnalyticsEnabled: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	tracerOpts := []tracer.StartOption{
		tracer.WithEnv(env),
		tracer.WithService(serviceName),
		tracer.WithLogger((*logger.Adapter)(log)),
		tracer.WithDebugStack(cfg.DebugStack),
		tracer.WithAnalytics(cfg.AnalyticsEnabled),
	}
	if cfg.MetricsEnabled {
		tracerOpts = append(tracerOpts, tracer.WithRuntimeMetrics())
	}

	if err := tracer.Start(tracerOpts...); err != nil {
		log.Error("Failed to start tracer", logger.Error(err))
		return func() {}
	}
	return tracer.Stop
}
