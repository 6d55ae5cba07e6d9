package trigger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	apphttp "github.com/rainbow-me/grpc-client-logging/http"
)

// StatusError is returned by Client when the trigger API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trigger api: %d %s", e.StatusCode, e.Message)
}

// IsTimeout reports whether err is the trigger API's answer to a stream cut by its deadline.
func IsTimeout(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusGatewayTimeout
}

// Client calls the trigger API. The correlation id of the request context is forwarded.
type Client struct {
	resty *resty.Client
}

// NewClient creates a client of the trigger API served at baseURL.
func NewClient(baseURL string, log *logger.Logger, timeout time.Duration) *Client {
	r := apphttp.NewRestyWithClient(&http.Client{Timeout: timeout}, log)
	r.SetBaseURL(baseURL)
	return &Client{resty: r}
}

// Unary triggers a unary greeter call and returns the reply message.
func (c *Client) Unary(ctx context.Context, name string) (string, error) {
	var reply HelloReply
	if err := c.post(ctx, UnaryPath, name, &reply); err != nil {
		return "", err
	}
	return reply.Message, nil
}

// ServerStream triggers a server-streaming greeter call and returns every reply message.
func (c *Client) ServerStream(ctx context.Context, name string) ([]string, error) {
	var replies []HelloReply
	if err := c.post(ctx, ServerStreamPath, name, &replies); err != nil {
		return nil, err
	}
	messages := make([]string, len(replies))
	for i, r := range replies {
		messages[i] = r.Message
	}
	return messages, nil
}

func (c *Client) post(ctx context.Context, path, name string, result any) error {
	var errBody ErrorBody
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(HelloRequest{Name: &name}).
		SetResult(result).
		SetError(&errBody).
		Post(path)
	if err != nil {
		return errors.Wrapf(err, "post %s", path)
	}
	if resp.IsError() {
		return &StatusError{StatusCode: resp.StatusCode(), Message: errBody.Message}
	}
	return nil
}
