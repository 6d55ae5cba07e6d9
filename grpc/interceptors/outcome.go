package interceptors

import (
	"context"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

const (
	spanStatusCodeTag    = "rpc.grpc.status_code"
	spanStatusMessageTag = "rpc.grpc.status_message"
)

// Outcome is the result of a unary call or of a stream termination.
type Outcome struct {
	Value any
	Err   error

	// Code and Detail are only meaningful when Classified is true.
	Code       codes.Code
	Detail     string
	Classified bool
}

// Succeeded returns the outcome of a call that produced value.
func Succeeded(value any) Outcome {
	return Outcome{Value: value, Code: codes.OK}
}

// Failed classifies err. Errors carrying a gRPC status are classified with its code and
// message; anything else is a generic failure. The error value is kept as is.
func Failed(err error) Outcome {
	s, ok := status.FromError(err)
	if !ok {
		return Outcome{Err: err, Code: codes.Unknown}
	}
	return Outcome{Err: err, Code: s.Code(), Detail: s.Message(), Classified: true}
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

func (o Outcome) fields() []logger.Field {
	if o.Err == nil {
		return nil
	}
	if !o.Classified {
		return []logger.Field{logger.Error(o.Err)}
	}
	return []logger.Field{
		logger.String(grpcStatusKey, o.Code.String()),
		logger.String(detailKey, o.Detail),
		logger.Error(o.Err),
	}
}

// tagSpan marks the active span, if any, as failed.
func (o Outcome) tagSpan(ctx context.Context) {
	if o.Err == nil {
		return
	}
	span, ok := tracer.SpanFromContext(ctx)
	if !ok {
		return
	}

	span.SetTag(ext.Error, true)
	if o.Classified {
		span.SetTag(spanStatusCodeTag, o.Code)
		span.SetTag(spanStatusMessageTag, o.Detail)
		return
	}
	span.SetTag(ext.ErrorType, "system")
	span.SetTag(ext.ErrorMsg, o.Err.Error())
}
