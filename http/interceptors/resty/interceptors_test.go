package resty_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/mocktracer"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/grpc-client-logging/common/correlation"
	"github.com/rainbow-me/grpc-client-logging/common/headers"
	interceptors "github.com/rainbow-me/grpc-client-logging/http/interceptors/resty"
)

func TestInjectInterceptors(t *testing.T) {
	mt := mocktracer.Start()
	defer mt.Stop()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := resty.New()
	interceptors.InjectInterceptors(client)

	ctx := correlation.ContextWithCorrelation(context.Background(), "resty-id")
	resp, err := client.R().SetContext(ctx).Get(srv.URL + "/brew")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode())

	assert.Equal(t, "resty-id", got.Get(headers.HeaderXCorrelationID))
	assert.NotEmpty(t, got.Get(headers.HeaderXTraceID))

	spans := mt.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "http.request", spans[0].OperationName())
	assert.Equal(t, "resty", spans[0].Tag("component"))
	assert.Equal(t, http.MethodGet, spans[0].Tag("http.method"))
}

func TestCorrelationMiddlewareKeepsExplicitHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(headers.HeaderXCorrelationID)
	}))
	defer srv.Close()

	client := resty.New()
	interceptors.InjectInterceptors(client, interceptors.WithTracingEnabled(false))

	ctx := correlation.ContextWithCorrelation(context.Background(), "ctx-id")
	_, err := client.R().SetContext(ctx).SetHeader(headers.HeaderXCorrelationID, "explicit").Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)
}
