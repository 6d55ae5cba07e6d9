package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/rainbow-me/grpc-client-logging/common/env"
	"github.com/rainbow-me/grpc-client-logging/common/logger"
)

const (
	fileFormat     = ".yaml"        // File format of the config files
	relativePath   = "./cmd/config" // Default relative path for config files (base path)
	binaryPath     = "./config"     // Path for binary build config (base path)
	binaryDir      = "target"       // Directory name for the binary target
	binaryInDocker = "app"          // Directory name for Docker deployment
	envVarPrefix   = "env://"       // Prefix for environment variables
)

// YamlReadConfig holds the configuration paths (relative and absolute).
type YamlReadConfig struct {
	RelativePath string         // Path relative to the current directory
	AbsolutePath string         // Absolute path if provided
	DynamicDir   string         // Optional dynamic directory, usually the program name
	Defaults     map[string]any // Values used when neither the file nor the environment set a key
}

// ReadConfigOption is a function signature used to set configuration options.
type ReadConfigOption func(*YamlReadConfig)

// WithRelativePath sets a relative path for the config file.
func WithRelativePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.RelativePath = path
	}
}

// WithAbsolutePath sets an absolute path for the config file.
func WithAbsolutePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.AbsolutePath = path
	}
}

// WithDynamicDir allows setting a dynamic subdirectory for the configuration path.
func WithDynamicDir(dynamicDir string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.DynamicDir = dynamicDir
	}
}

// WithDefaults registers default values, keyed like the YAML file ("grpc.target").
func WithDefaults(defaults map[string]any) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.Defaults = defaults
	}
}

// LoadConfig loads <dir>/<ENVIRONMENT>.yaml into conf. Environment variables override file
// values ("grpc.target" is read from GRPC_TARGET) and "env://NAME" values are resolved from NAME.
func LoadConfig(conf any, log *logger.Logger, options ...ReadConfigOption) error {
	config := &YamlReadConfig{RelativePath: relativePath}
	for _, option := range options {
		option(config)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to get current working directory")
	}
	log.Debug("Current working directory", logger.String("directory", currentDir))

	// Adjust config path if running from binary target or Docker container
	if strings.Contains(currentDir, binaryDir) || strings.Contains(currentDir, binaryInDocker) {
		config.RelativePath = binaryPath
	}

	if config.DynamicDir != "" {
		config.RelativePath = filepath.Join(config.RelativePath, config.DynamicDir)
		if config.AbsolutePath != "" {
			config.AbsolutePath = filepath.Join(config.AbsolutePath, config.DynamicDir)
		}
	}

	pathToConfigDir := config.RelativePath
	if config.AbsolutePath != "" {
		pathToConfigDir = config.AbsolutePath
	}

	currentEnv, err := env.Lookup()
	if err != nil {
		return errors.Wrap(err, "invalid environment")
	}

	filePath := filepath.Join(pathToConfigDir, fmt.Sprintf("%s%s", currentEnv, fileFormat))
	log.Info("Reading config file", logger.String("path", filePath))

	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range config.Defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read configuration file %s", filePath)
	}

	for _, key := range v.AllKeys() {
		resolveEnvPlaceholder(v, key, log)
	}

	if err = v.Unmarshal(conf); err != nil {
		return errors.Wrap(err, "failed to unmarshal configuration")
	}

	return nil
}

// resolveEnvPlaceholder replaces an "env://NAME" value with the content of $NAME.
func resolveEnvPlaceholder(v *viper.Viper, key string, log *logger.Logger) {
	str, ok := v.Get(key).(string)
	if !ok || !strings.HasPrefix(str, envVarPrefix) {
		return
	}

	envVar := str[len(envVarPrefix):]
	if envValue, exists := os.LookupEnv(envVar); exists {
		v.Set(key, envValue)
		log.Debug("set environment variable", logger.String("variableName", envVar))
		return
	}

	v.Set(key, "")
	log.Warn("environment variable not found", logger.String("variableName", envVar))
}
