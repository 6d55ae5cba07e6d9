package interceptors

import (
	"time"

	"google.golang.org/grpc"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/correlation"
)

// CallContext is the immutable description of one outgoing call.
type CallContext struct {
	FullMethod    string
	Service       string
	Method        string
	Host          string
	Kind          correlation.CallKind
	CorrelationID string

	start time.Time
}

func newCallContext(fullMethod string, cc *grpc.ClientConn, scope *correlation.Scope) *CallContext {
	service, method := GetServiceAndMethod(fullMethod)
	host := ""
	if cc != nil {
		host = cc.Target()
	}
	return &CallContext{
		FullMethod:    fullMethod,
		Service:       service,
		Method:        method,
		Host:          host,
		Kind:          scope.Kind(),
		CorrelationID: scope.ID(),
		start:         time.Now(),
	}
}

// Elapsed returns the time since the call started, on the monotonic clock.
func (c *CallContext) Elapsed() time.Duration {
	return time.Since(c.start)
}

func (c *CallContext) fields() []logger.Field {
	return []logger.Field{
		logger.String(hostKey, c.Host),
		logger.String(serviceKey, c.Service),
		logger.String(methodKey, c.Method),
		logger.String(rpcKindKey, c.Kind.String()),
		logger.String(correlationIDKey, c.CorrelationID),
	}
}

func (c *CallContext) elapsedFields() []logger.Field {
	elapsed := c.Elapsed()
	return []logger.Field{
		logger.Float64(elapsedMsKey, float64(elapsed)/float64(time.Millisecond)),
		logger.Duration(durationKey, elapsed),
	}
}
