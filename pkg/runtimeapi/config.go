package runtimeapi

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables set by the execution environment.
const (
	EnvRuntimeAPI    = "AWS_LAMBDA_RUNTIME_API"
	EnvFunctionName  = "AWS_LAMBDA_FUNCTION_NAME"
	EnvMemorySize    = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	EnvVersion       = "AWS_LAMBDA_FUNCTION_VERSION"
	EnvLogStreamName = "AWS_LAMBDA_LOG_STREAM_NAME"
	EnvLogGroupName  = "AWS_LAMBDA_LOG_GROUP_NAME"
)

// Config is a snapshot of the function's environment-derived settings.
// The executor re-reads it on every iteration so each invocation carries a
// fresh snapshot rather than a cached one.
type Config struct {
	// Endpoint is the host and port of the runtime API.
	Endpoint string
	// FunctionName is the name of the function.
	FunctionName string
	// Memory is the amount of memory available to the function in MB.
	Memory int
	// Version is the version of the function being executed.
	Version string
	// LogStream is the name of the CloudWatch Logs stream for the function.
	LogStream string
	// LogGroup is the name of the CloudWatch Logs group for the function.
	LogGroup string
}

// ConfigFromEnv reads configuration from environment variables.
// A missing or unparseable variable is an error; at startup that error is
// fatal before the executor loop begins.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	var err error

	if cfg.Endpoint, err = requireEnv(EnvRuntimeAPI); err != nil {
		return Config{}, err
	}
	if cfg.FunctionName, err = requireEnv(EnvFunctionName); err != nil {
		return Config{}, err
	}

	memory, err := requireEnv(EnvMemorySize)
	if err != nil {
		return Config{}, err
	}
	if cfg.Memory, err = strconv.Atoi(memory); err != nil {
		return Config{}, fmt.Errorf("lambda: parse %s: %w", EnvMemorySize, err)
	}

	if cfg.Version, err = requireEnv(EnvVersion); err != nil {
		return Config{}, err
	}
	if cfg.LogStream, err = requireEnv(EnvLogStreamName); err != nil {
		return Config{}, err
	}
	if cfg.LogGroup, err = requireEnv(EnvLogGroupName); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func requireEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("lambda: environment variable %s is not set", name)
	}
	return v, nil
}
