// Package trigger exposes greeter calls over HTTP so that a unit of work started by a web request
// can be followed through the gRPC client and server logs by its correlation id.
package trigger

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	"github.com/rainbow-me/grpc-client-logging/grpc/greeter"
	"github.com/rainbow-me/grpc-client-logging/grpc/health"
	gininterceptors "github.com/rainbow-me/grpc-client-logging/http/interceptors/gin"
	"github.com/rainbow-me/grpc-client-logging/observability"
)

const (
	UnaryPath        = "/api/grpctrigger/unary"
	ServerStreamPath = "/api/grpctrigger/server-stream"
	HealthPath       = "/healthz"

	DefaultUnaryName        = "Client"
	DefaultServerStreamName = "Stream to Client"
	DefaultStreamDeadline   = time.Second

	timeoutMessage = "Timeout"
)

// HelloRequest is the body of both trigger routes. A missing body falls back to the route's default name.
type HelloRequest struct {
	Name *string `json:"name"`
}

// HelloReply is one greeter reply.
type HelloReply struct {
	Message string `json:"message"`
}

// ErrorBody is the body of every non-2xx response.
type ErrorBody = gininterceptors.ErrorBody

// HealthBody is the body of the health route.
type HealthBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type HandlerOption func(*Handler)

// WithStreamDeadline sets the deadline of the server-streaming call. Default is 1s.
func WithStreamDeadline(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.streamDeadline = d
	}
}

// Handler serves the trigger routes through a greeter connection.
type Handler struct {
	greeter        *greeter.Client
	health         *health.HealthChecker
	streamDeadline time.Duration
}

// NewHandler builds the trigger handler on cc. The interceptors installed on cc log every call.
func NewHandler(cc grpc.ClientConnInterface, opts ...HandlerOption) (*Handler, error) {
	checker, err := health.NewHealthChecker(health.WithConn(cc))
	if err != nil {
		return nil, errors.Wrap(err, "health checker")
	}
	h := &Handler{
		greeter:        greeter.NewClient(cc),
		health:         checker,
		streamDeadline: DefaultStreamDeadline,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register adds the trigger routes to r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST(UnaryPath, h.Unary)
	r.POST(ServerStreamPath, h.ServerStream)
	r.GET(HealthPath, h.Health)
}

// Unary calls SayHello and answers with the reply. A failed call is left to the error middleware, which
// answers 500 with the status message.
func (h *Handler) Unary(c *gin.Context) {
	name, ok := bindName(c, DefaultUnaryName)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reply, err := h.greeter.SayHello(ctx, greeter.NewHelloRequest(name))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, HelloReply{Message: greeter.Message(reply)})
}

// ServerStream calls SayHelloServerStream under the stream deadline and answers with every reply.
// A call cut by the deadline answers 504.
func (h *Handler) ServerStream(c *gin.Context) {
	name, ok := bindName(c, DefaultServerStreamName)
	if !ok {
		return
	}
	span, ctx := observability.StartSpan(c.Request.Context(), "grpctrigger.server_stream")
	defer span.Finish()

	replies, err := h.collect(ctx, greeter.NewHelloRequest(name))
	observability.SetTag(ctx, "grpctrigger.replies", len(replies))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, replies)
	case status.Code(err) == codes.DeadlineExceeded:
		logger.FromContext(ctx).Warn("Server streaming call timed out.", logger.Int("replies", len(replies)))
		c.JSON(http.StatusGatewayTimeout, ErrorBody{Message: timeoutMessage})
	default:
		_ = c.Error(err)
	}
}

func (h *Handler) collect(ctx context.Context, req *structpb.Struct) ([]HelloReply, error) {
	ctx, cancel := context.WithTimeout(ctx, h.streamDeadline)
	defer cancel()

	stream, err := h.greeter.SayHelloServerStream(ctx, req)
	if err != nil {
		return nil, err
	}
	replies := make([]HelloReply, 0)
	for {
		reply, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return replies, nil
		}
		if err != nil {
			return replies, err
		}
		replies = append(replies, HelloReply{Message: greeter.Message(reply)})
	}
}

// Health probes the gRPC health service of the greeter target.
func (h *Handler) Health(c *gin.Context) {
	if err := h.health.Serving(c.Request.Context(), ""); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthBody{Status: "NOT_SERVING", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthBody{Status: "SERVING"})
}

func bindName(c *gin.Context, fallback string) (string, bool) {
	var req HelloRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorBody{Message: err.Error()})
		return "", false
	}
	if req.Name == nil {
		return fallback, true
	}
	return *req.Name, true
}
