package http

import (
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/rainbow-me/grpc-client-logging/common/logger"
	interceptors "github.com/rainbow-me/grpc-client-logging/http/interceptors/resty"
)

// NewRestyWithClient returns a resty client propagating traces and correlation ids, logging through log.
func NewRestyWithClient(client *http.Client, log *logger.Logger, opt ...interceptors.InterceptorOpt) *resty.Client {
	restyClient := resty.NewWithClient(client)
	interceptors.InjectInterceptors(restyClient, opt...)

	if log != nil {
		restyClient.SetLogger((*logger.Adapter)(log))
	}
	return restyClient
}
