package emulator

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes an emulator instance, normally loaded from a YAML file.
type Config struct {
	// Listen is the address the runtime API is served on.
	Listen string `yaml:"listen"`
	// FunctionName and FunctionVersion are advertised to the runtime.
	FunctionName    string `yaml:"function_name"`
	FunctionVersion string `yaml:"function_version"`
	// MemoryMB is the advertised memory size.
	MemoryMB int `yaml:"memory_mb"`
	// TimeoutSec sets the deadline offset stamped on each invocation.
	TimeoutSec int `yaml:"timeout_sec"`
	// JournalPath is the sqlite file recording invocations; empty disables
	// the journal.
	JournalPath string `yaml:"journal_path"`
	// Sources are cron-driven event sources started with the emulator.
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig is one scheduled event source in the config file.
type SourceConfig struct {
	Name string `yaml:"name"`
	Cron string `yaml:"cron"`
	// Payload is the JSON event enqueued on each fire.
	Payload string `yaml:"payload"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:          "127.0.0.1:9001",
		FunctionName:    "function",
		FunctionVersion: "$LATEST",
		MemoryMB:        128,
		TimeoutSec:      30,
	}
}

// LoadConfig reads and validates an emulator config file, filling defaults
// for omitted fields.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("emulator: read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("emulator: parse config: %w", err)
	}

	if cfg.TimeoutSec <= 0 {
		return Config{}, fmt.Errorf("emulator: timeout_sec must be positive")
	}
	if cfg.MemoryMB <= 0 {
		return Config{}, fmt.Errorf("emulator: memory_mb must be positive")
	}
	for _, src := range cfg.Sources {
		if src.Name == "" || src.Cron == "" {
			return Config{}, fmt.Errorf("emulator: event source needs name and cron")
		}
		if src.Payload != "" && !json.Valid([]byte(src.Payload)) {
			return Config{}, fmt.Errorf("emulator: event source %q payload is not valid JSON", src.Name)
		}
	}

	return cfg, nil
}

// Timeout returns the configured invocation timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// EventSources converts the configured sources for NewScheduler.
func (c Config) EventSources() []EventSource {
	sources := make([]EventSource, 0, len(c.Sources))
	for _, src := range c.Sources {
		payload := src.Payload
		if payload == "" {
			payload = "{}"
		}
		sources = append(sources, EventSource{
			Name:    src.Name,
			Spec:    src.Cron,
			Payload: []byte(payload),
		})
	}
	return sources
}
