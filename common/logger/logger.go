package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rainbow-me/grpc-client-logging/common/env"
)

const (
	StringJSONEncoderName = "string_json"
	MessageKey            = "message"
)

// Logger is the zap logger shared by every package in this module.
type Logger struct {
	*zap.Logger
}

// NewLogger wraps an existing zap logger. A nil logger yields a no-op Logger.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{Logger: l}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Log writes a message at the given level.
func (l *Logger) Log(level Level, msg string, fields ...Field) {
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

var (
	instanceMu sync.RWMutex
	instance   *Logger

	registerEncoderOnce sync.Once
	registerEncoderErr  error
)

// Instance returns the process-wide logger set with SetInstance, or a no-op logger.
func Instance() *Logger {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	if instance == nil {
		return NewLogger(nil)
	}
	return instance
}

// SetInstance replaces the process-wide logger and zap's globals.
func SetInstance(l *Logger) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = l
	if l != nil {
		zap.ReplaceGlobals(l.Logger)
	}
}

type stringJSONEncoder struct {
	zapcore.Encoder
}

func newStringJSONEncoder(cfg zapcore.EncoderConfig) *stringJSONEncoder {
	return &stringJSONEncoder{zapcore.NewJSONEncoder(cfg)}
}

// NewStringJSONEncoder returns an encoder that encodes the JSON log dict as a string
// so the log processing pipeline can correctly process logs with nested JSON.
func NewStringJSONEncoder(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
	return newStringJSONEncoder(cfg), nil
}

// InitLogger initializes and returns a configured Logger with environment-specific settings.
func InitLogger(zapOpts ...zap.Option) (*Logger, error) {
	var (
		config  zap.Config
		options []zap.Option
	)

	currentEnv, err := env.Lookup()
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	// zap panics on duplicate encoder names, so register only once per process
	registerEncoderOnce.Do(func() {
		registerEncoderErr = zap.RegisterEncoder(StringJSONEncoderName, NewStringJSONEncoder)
	})
	if registerEncoderErr != nil {
		return nil, fmt.Errorf("failed to register string JSON encoder: %w", registerEncoderErr)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    MessageKey,
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	switch currentEnv {
	case env.EnvironmentLocal:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.MessageKey = MessageKey
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))

	case env.EnvironmentLocalDocker, env.EnvironmentDevelopment, env.EnvironmentStaging:
		// JSON logs for Datadog ingestion
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig = encoderConfig
		config.Encoding = StringJSONEncoderName
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))

	case env.EnvironmentProduction:
		config = zap.NewProductionConfig()
		config.EncoderConfig = encoderConfig
		config.Encoding = StringJSONEncoderName
		config.Level.SetLevel(zap.InfoLevel)
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))
	}

	options = append(options, zapOpts...)

	l, err := config.Build(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewLogger(l), nil
}
