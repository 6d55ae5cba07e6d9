package interceptors

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/mennanov/fmutils"
	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// Structured logging field keys
const (
	hostKey          = "host"
	serviceKey       = "service"
	methodKey        = "method"
	rpcKindKey       = "rpc_kind"
	correlationIDKey = "correlation_id"
	clientIDKey      = "client_id"
	isNewTraceKey    = "is_new_trace"

	elapsedMsKey    = "elapsed_ms"
	durationKey     = "duration"
	grpcStatusKey   = "status"
	detailKey       = "detail"
	messageCountKey = "message_count"

	requestKey  = "request"
	responseKey = "response"
)

var methodRegex = regexp.MustCompile(`\/(.+)\/(.+)$`)

// traceFields links a log line to the active Datadog span, if any.
func traceFields(ctx context.Context) []logger.Field {
	span, ok := tracer.SpanFromContext(ctx)
	if !ok {
		return nil
	}
	return logger.WithTrace(span.Context())
}

// payloadFields renders a message under key, pruned by the configured masks and
// truncated to MaxPayloadSize. Truncated payloads are logged as a string preview.
func payloadFields(key string, message any, cfg *LoggingInterceptorConfig) []logger.Field {
	if message == nil {
		return nil
	}
	field := GrpcMessageField(key, message, cfg.LogParamsBlocklist)
	if cfg.MaxPayloadSize <= 0 {
		return []logger.Field{field}
	}

	pb, ok := field.Interface.(*pbZapField)
	if !ok {
		return []logger.Field{field}
	}
	b, err := pb.MarshalJSON()
	if err != nil || len(b) <= cfg.MaxPayloadSize {
		return []logger.Field{field}
	}
	n := cfg.MaxPayloadSize
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return []logger.Field{
		logger.String(key, string(b[:n])),
		logger.Bool(key+"_truncated", true),
		logger.Int(key+"_size", len(b)),
	}
}

// GrpcMessageField creates a zap field for gRPC messages with optional field masking.
// It clones the message to avoid modifying the original and applies any configured masks.
func GrpcMessageField(key string, message any, masks []*fieldmaskpb.FieldMask) logger.Field {
	msg, ok := message.(proto.Message)
	if !ok {
		return PbField(key, message)
	}
	if len(masks) == 0 {
		return PbField(key, msg)
	}

	clonedMsg := proto.Clone(msg)
	for _, mask := range masks {
		clonedMsg = pruneFields(clonedMsg, mask)
	}

	return PbField(key, clonedMsg)
}

// pruneFields removes specified fields from a protobuf message based on field mask.
func pruneFields(message proto.Message, mask *fieldmaskpb.FieldMask) proto.Message {
	if mask != nil {
		fmutils.Prune(message, mask.GetPaths())
	}
	return message
}

// GetServiceAndMethod extracts the service and method names from a full gRPC method path.
// Input format: "/greet.Greeter/SayHello"
// Output: service="greet.Greeter", method="SayHello"
func GetServiceAndMethod(fullMethod string) (string, string) {
	methodParts := methodRegex.FindStringSubmatch(fullMethod)
	if len(methodParts) >= 3 {
		return methodParts[1], methodParts[2]
	}
	return "unknown", fullMethod
}

// PbField wraps a protobuf message in a zap Field for structured logging.
func PbField(key string, pb any) logger.Field {
	if pbMsg, ok := pb.(proto.Message); ok {
		return logger.Object(key, &pbZapField{pbMsg})
	}

	return logger.Any(key, pb)
}

// pbZapField renders a protobuf message as protojson.
type pbZapField struct {
	pb proto.Message
}

func (p *pbZapField) MarshalLogObject(e zapcore.ObjectEncoder) error {
	return e.AddReflected("payload", p)
}

func (p *pbZapField) MarshalJSON() ([]byte, error) {
	b, err := protojson.Marshal(p.pb)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal protobuf message to JSON: %w", err)
	}
	return b, nil
}
