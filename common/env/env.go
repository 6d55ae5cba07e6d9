package env

import (
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Key names the variable every program reads its deployment environment from.
// It also picks the config file and the log encoding.
const Key = "ENVIRONMENT"

// Environment is where a program runs.
type Environment string

const (
	EnvironmentLocal       Environment = "local"
	EnvironmentLocalDocker Environment = "local-docker"
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

var known = []Environment{
	EnvironmentLocal,
	EnvironmentLocalDocker,
	EnvironmentDevelopment,
	EnvironmentStaging,
	EnvironmentProduction,
}

func (e Environment) String() string { return string(e) }

// IsLocal reports whether e runs on a developer machine, where panic stacks and
// raw error messages are surfaced to the caller.
func (e Environment) IsLocal() bool {
	return e == EnvironmentLocal || e == EnvironmentLocalDocker
}

// Parse validates a raw environment name.
func Parse(raw string) (Environment, error) {
	e := Environment(raw)
	if slices.Contains(known, e) {
		return e, nil
	}
	names := make([]string, 0, len(known))
	for _, k := range known {
		names = append(names, k.String())
	}
	return "", errors.Newf("invalid environment %q: %s must be set to one of %s",
		raw, Key, strings.Join(names, ", "))
}

// Lookup reads and validates the environment variable.
func Lookup() (Environment, error) {
	return Parse(os.Getenv(Key))
}

// Current is Lookup falling back to EnvironmentLocal, so the demo programs run without setup.
func Current() Environment {
	e, err := Lookup()
	if err != nil {
		return EnvironmentLocal
	}
	return e
}
