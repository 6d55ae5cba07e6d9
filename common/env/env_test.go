package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/grpc-client-logging/common/env"
)

func TestParse(t *testing.T) {
	for _, valid := range []string{"local", "local-docker", "development", "staging", "production"} {
		e, err := env.Parse(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, e.String())
	}

	_, err := env.Parse("qa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), env.Key)
}

func TestCurrent(t *testing.T) {
	t.Setenv(env.Key, "")
	_, err := env.Lookup()
	require.Error(t, err)
	assert.Equal(t, env.EnvironmentLocal, env.Current())
	assert.True(t, env.Current().IsLocal())

	t.Setenv(env.Key, "local-docker")
	assert.True(t, env.Current().IsLocal())

	t.Setenv(env.Key, "production")
	assert.Equal(t, env.EnvironmentProduction, env.Current())
	assert.False(t, env.Current().IsLocal())
}
