package gin

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

type loggingCfg struct {
	debug bool
	trace bool
}

type responseWriterCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriterCapture) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// RequestLogging logs one line per request once it is handled: at debug level for successes, warn for
// 4xx and error for 5xx. In trace mode the request and response bodies are added.
func RequestLogging(cfg loggingCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.debug {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		start := time.Now()

		var reqBody []byte
		var capture *responseWriterCapture
		if cfg.trace {
			if c.Request.Body != nil {
				if body, err := io.ReadAll(c.Request.Body); err == nil {
					reqBody = body
					c.Request.Body = io.NopCloser(bytes.NewReader(body))
				}
			}
			capture = &responseWriterCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = capture
		}

		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("route", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("component", componentName),
		}
		if capture != nil {
			fields = append(fields,
				logger.ByteString("request_body", reqBody),
				logger.ByteString("response_body", capture.body.Bytes()),
			)
		}
		logger.FromContext(ctx).Log(statusLevel(c.Writer.Status()), "HTTP request handled", fields...)
	}
}

func statusLevel(code int) logger.Level {
	switch {
	case code >= http.StatusInternalServerError:
		return logger.ErrorLevel
	case code >= http.StatusBadRequest:
		return logger.WarnLevel
	default:
		return logger.DebugLevel
	}
}
