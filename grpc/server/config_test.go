package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerTimeouts(t *testing.T) {
	s, err := NewServer(
		WithSignalHandling(false),
		WithHTTPServer("defaults", ":0", http.NewServeMux()),
		WithHTTPServer("tuned", ":0", http.NewServeMux(),
			WithHTTPReadTimeout(time.Second),
			WithHTTPWriteTimeout(3*time.Second),
		),
		WithHTTPServer("unset", ":0", http.NewServeMux(),
			WithHTTPReadTimeout(0),
			WithHTTPWriteTimeout(-time.Second),
		),
	)
	require.NoError(t, err)
	require.Len(t, s.httpEndpoints, 3)

	defaults := s.httpEndpoints[0].server()
	assert.Equal(t, DefaultHTTPReadTimeout, defaults.ReadTimeout)
	assert.Equal(t, DefaultHTTPWriteTimeout, defaults.WriteTimeout)
	assert.Equal(t, DefaultHTTPIdleTimeout, defaults.IdleTimeout)
	assert.Equal(t, DefaultHTTPHeaderTimeout, defaults.ReadHeaderTimeout)

	tuned := s.httpEndpoints[1].server()
	assert.Equal(t, time.Second, tuned.ReadTimeout)
	assert.Equal(t, 3*time.Second, tuned.WriteTimeout)

	unset := s.httpEndpoints[2].server()
	assert.Equal(t, DefaultHTTPReadTimeout, unset.ReadTimeout)
	assert.Equal(t, DefaultHTTPWriteTimeout, unset.WriteTimeout)

	assert.Equal(t, []string{"defaults", "tuned", "unset"}, s.names())
}
