package logger

import (
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
)

const (
	TraceIDKey    = "trace_id"
	SpanIDKey     = "span_id"
	PanicValueKey = "panic_value"
	PanicStackKey = "panic_stack"
)

// WithTrace returns the fields linking a log line to a Datadog span.
func WithTrace(sc *tracer.SpanContext) []Field {
	if sc == nil {
		return nil
	}
	return []Field{
		String(TraceIDKey, sc.TraceID()),
		String(SpanIDKey, strconv.FormatUint(sc.SpanID(), 10)),
	}
}

// WithPanic returns the fields describing a recovered panic, stack included.
func WithPanic(panicValue any) []Field {
	return []Field{
		String(PanicValueKey, fmt.Sprintf("%+v", panicValue)),
		ByteString(PanicStackKey, debug.Stack()),
	}
}
