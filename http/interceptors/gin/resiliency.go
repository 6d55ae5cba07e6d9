package gin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

const internalErrorMessage = "internal server error"

// ErrorBody is the JSON body written for failed requests.
type ErrorBody struct {
	Message string `json:"message"`
}

// ErrorHandlingMiddleware logs the last error a handler attached with c.Error, tags the span with it and
// answers 500 unless the handler already wrote a response. The body carries the message of a gRPC status
// error, any other error stays hidden behind a generic message.
func ErrorHandlingMiddleware(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 {
		return
	}
	ctx := c.Request.Context()
	err := c.Errors.Last().Err
	logger.FromContext(ctx).Error("Error in gin http handler",
		logger.String("path", c.FullPath()),
		logger.Error(err),
	)
	if env.Current().IsLocal() {
		// pretty print the error to the local console to make it human-readable in case it has a stack trace
		_, _ = fmt.Fprintf(os.Stderr, "Error in gin http handler: %+v\n", err)
	}

	message := internalErrorMessage
	errType := "internal"
	if st, ok := status.FromError(err); ok {
		message = st.Message()
		errType = st.Code().String()
	}
	tagSpanAsError(ctx, errType, err.Error())
	if c.Writer.Written() {
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorBody{Message: message})
}

// PanicRecoveryMiddleware turns a handler panic into a logged 500 and tags the span with it.
func PanicRecoveryMiddleware(c *gin.Context) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.FromContext(c.Request.Context()).Error("Recovered from panic in gin http handler", logger.WithPanic(r)...)
		if env.Current().IsLocal() {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		}
		tagSpanAsError(c.Request.Context(), "panic", fmt.Sprintf("%v", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Message: internalErrorMessage})
	}()
	c.Next()
}

func tagSpanAsError(ctx context.Context, errorType string, errorMsg string) {
	if span, ok := tracer.SpanFromContext(ctx); ok {
		span.SetTag(ext.Error, true)
		span.SetTag(ext.ErrorType, errorType)
		span.SetTag(ext.ErrorMsg, errorMsg)
	}
}

// TimeoutMiddleware bounds the request context, and so every gRPC call made on its behalf.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
