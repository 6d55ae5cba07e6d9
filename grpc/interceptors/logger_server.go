package interceptors

import (
	"context"
	"reflect"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

const serverRequestMsg = "server.request"

// UnaryLoggerServerInterceptor creates a gRPC unary server interceptor that logs every handled
// call with its status, duration and the calling client. Handlers find a logger carrying the
// call's correlation data in their context.
func UnaryLoggerServerInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.UnaryServerInterceptor {
	config := interceptorConfig(opts...)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		return logServerCall(ctx, info.FullMethod, config, log, req, func(ctx context.Context) (any, error) {
			return handler(ctx, req)
		})
	}
}

// StreamLoggerServerInterceptor creates a gRPC stream server interceptor that logs every handled stream.
func StreamLoggerServerInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.StreamServerInterceptor {
	config := interceptorConfig(append(opts, LogParams(false))...)

	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		_, err := logServerCall(ss.Context(), info.FullMethod, config, log, nil, func(ctx context.Context) (any, error) {
			wrapped := grpcmiddleware.WrapServerStream(ss)
			wrapped.WrappedContext = ctx
			return nil, handler(srv, wrapped)
		})
		return err
	}
}

func logServerCall(
	ctx context.Context,
	fullMethod string,
	config *LoggingInterceptorConfig,
	log *logger.Logger,
	req any,
	handler func(ctx context.Context) (any, error),
) (any, error) {
	if config.skipped(fullMethod) {
		return handler(ctx)
	}
	if log == nil {
		log = logger.Instance()
	}

	service, method := GetServiceAndMethod(fullMethod)
	baseFields := append(traceFields(ctx), correlation.ToLogFields(ctx)...)
	baseFields = append(baseFields, logger.String(methodKey, method), logger.String(serviceKey, service))
	callLog := logger.NewLogger(log.WithOptions(zap.AddStacktrace(zap.FatalLevel))).With(baseFields...)
	ctx = logger.ContextWithLogger(ctx, callLog)

	start := time.Now()
	resp, err := handler(ctx)

	if !config.LogEnabled && err == nil {
		return resp, nil
	}

	var fields []logger.Field
	if config.LogRequests && req != nil {
		fields = append(fields, payloadFields(requestKey, req, config)...)
	}
	fields = append(fields, logger.Duration(durationKey, time.Since(start)))
	if config.LogResponses && resp != nil && !reflect.ValueOf(resp).IsZero() {
		fields = append(fields, payloadFields(responseKey, resp, config)...)
	}

	level := config.LogLevel
	if err != nil {
		outcome := Failed(err)
		level = config.failureLevel(outcome)
		fields = append(fields, logger.String(grpcStatusKey, outcome.Code.String()), logger.Error(err))
	} else {
		fields = append(fields, logger.String(grpcStatusKey, "OK"))
	}
	fields = append(fields, incomingMetadataFields(ctx)...)

	callLog.Log(level, serverRequestMsg, fields...)
	return resp, err
}

// incomingMetadataFields extracts client and trace information from gRPC metadata
func incomingMetadataFields(ctx context.Context) []logger.Field {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	clientID := "unknown"
	if clientIDs := md.Get(UpstreamServiceHeaderKey); len(clientIDs) > 0 {
		clientID = clientIDs[0]
	}

	return []logger.Field{
		logger.String(clientIDKey, clientID),
		logger.Bool(isNewTraceKey, len(md.Get(tracer.DefaultTraceIDHeader)) == 0),
	}
}
