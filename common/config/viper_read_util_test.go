package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/test"
)

type TestConfig struct {
	GRPC struct {
		Target  string        `mapstructure:"target"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"grpc"`
}

// createTempConfig creates a temporary config directory and file, registering cleanup.
func createTempConfig(t *testing.T, basePath, dynamicDir, appEnv, content string) string {
	t.Helper()
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, basePath)
	if dynamicDir != "" {
		configPath = filepath.Join(configPath, dynamicDir)
	}
	require.NoError(t, os.MkdirAll(configPath, 0o755))

	if content != "" {
		filePath := filepath.Join(configPath, appEnv+".yaml")
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o600))
	}

	return tempDir
}

// chdir switches into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	require.NoError(t, os.Chdir(dir))
}

const yamlContent = `
grpc:
  target: "localhost:50051"
  timeout: 5s
`

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		appEnv      string
		dynamicDir  string
		content     string
		envVars     map[string]string
		options     func(tempDir string) []ReadConfigOption
		wantErr     bool
		wantTarget  string
		wantTimeout time.Duration
	}{
		{
			name:        "basic configuration loading",
			appEnv:      "development",
			content:     yamlContent,
			wantTarget:  "localhost:50051",
			wantTimeout: 5 * time.Second,
		},
		{
			name:        "environment variable overrides yaml",
			appEnv:      "development",
			content:     yamlContent,
			envVars:     map[string]string{"GRPC_TARGET": "override:1234"},
			wantTarget:  "override:1234",
			wantTimeout: 5 * time.Second,
		},
		{
			name:       "env placeholder is resolved",
			appEnv:     "staging",
			content:    "grpc:\n  target: \"env://MY_GRPC_TARGET\"\n",
			envVars:    map[string]string{"MY_GRPC_TARGET": "greeter:8080"},
			wantTarget: "greeter:8080",
		},
		{
			name:       "missing env placeholder becomes empty",
			appEnv:     "staging",
			content:    "grpc:\n  target: \"env://NON_EXISTENT_GRPC_TARGET\"\n",
			wantTarget: "",
		},
		{
			name:        "dynamic directory",
			appEnv:      "local",
			dynamicDir:  "grpc-client",
			content:     yamlContent,
			options:     func(string) []ReadConfigOption { return []ReadConfigOption{WithDynamicDir("grpc-client")} },
			wantTarget:  "localhost:50051",
			wantTimeout: 5 * time.Second,
		},
		{
			name:    "absolute path",
			appEnv:  "production",
			content: yamlContent,
			options: func(tempDir string) []ReadConfigOption {
				return []ReadConfigOption{WithAbsolutePath(filepath.Join(tempDir, "cmd/config"))}
			},
			wantTarget:  "localhost:50051",
			wantTimeout: 5 * time.Second,
		},
		{
			name:    "defaults fill missing keys",
			appEnv:  "development",
			content: "grpc:\n  target: \"localhost:50051\"\n",
			options: func(string) []ReadConfigOption {
				return []ReadConfigOption{WithDefaults(map[string]any{"grpc.timeout": "1s"})}
			},
			wantTarget:  "localhost:50051",
			wantTimeout: time.Second,
		},
		{
			name:    "invalid environment",
			appEnv:  "nope",
			content: yamlContent,
			wantErr: true,
		},
		{
			name:    "missing config file",
			appEnv:  "development",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := createTempConfig(t, "cmd/config", tt.dynamicDir, tt.appEnv, tt.content)

			t.Setenv(env.Key, tt.appEnv)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			chdir(t, tempDir)

			var options []ReadConfigOption
			if tt.options != nil {
				options = tt.options(tempDir)
			}

			var conf TestConfig
			err := LoadConfig(&conf, test.NewLogger(t), options...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTarget, conf.GRPC.Target)
			require.Equal(t, tt.wantTimeout, conf.GRPC.Timeout)
		})
	}
}
