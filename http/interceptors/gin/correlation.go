package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/headers"
)

// CorrelationMiddleware takes the correlation id from the x-correlation-id header, or creates a new one
// if none is found, and sets it on the request context and its logger. The id is echoed back in the response.
func CorrelationMiddleware(c *gin.Context) {
	ctx := correlation.ContextWithCorrelation(c.Request.Context(), c.GetHeader(headers.HeaderXCorrelationID))
	c.Request = c.Request.WithContext(ctx)
	c.Header(headers.HeaderXCorrelationID, correlation.ID(ctx))
	c.Next()
}
