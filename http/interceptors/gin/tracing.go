package gin

import (
	"fmt"
	"net/http"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

// TracingMiddleware continues the trace found in the http headers, or starts a new one, with a span tagged
// with the route, method, url and response code. The span and its ids are put on the request context, so the
// gRPC calls of the handler become its children and their log lines carry the trace id.
func TracingMiddleware(c *gin.Context) {
	spanOpts := []tracer.StartSpanOption{
		tracer.Tag(ext.Component, componentName),
		tracer.Tag(ext.SpanType, ext.SpanTypeWeb),
		tracer.Tag(ext.SpanKind, ext.SpanKindServer),
		tracer.Tag(ext.HTTPMethod, c.Request.Method),
		tracer.Tag(ext.HTTPURL, c.Request.URL.String()),
		tracer.Tag(ext.ResourceName, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())),
		tracer.Tag(ext.HTTPRoute, c.FullPath()),
	}
	if parent, err := tracer.Extract(tracer.HTTPHeadersCarrier(c.Request.Header)); err == nil && parent != nil {
		spanOpts = append(spanOpts, tracer.ChildOf(parent))
	}

	span := tracer.StartSpan(httpHandlerOp, spanOpts...)
	defer span.Finish()

	ctx := tracer.ContextWithSpan(c.Request.Context(), span)
	ctx = logger.ContextWithFields(ctx, logger.WithTrace(span.Context())...)
	c.Request = c.Request.WithContext(ctx)
	c.Next()

	// the correlation middleware runs after this one, its id is only known once the handler returns
	if id := correlation.ID(c.Request.Context()); id != "" {
		span.SetTag(correlation.IDKey, id)
	}
	span.SetTag(ext.HTTPCode, c.Writer.Status())
	if c.Writer.Status() >= http.StatusInternalServerError {
		span.SetTag(ext.Error, true)
	}
}
