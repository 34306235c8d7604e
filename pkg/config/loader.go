package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved, ready-to-use configuration object
// returned by Initialize — every subsystem constructor takes the slice
// of it that concerns that subsystem.
type Config struct {
	configPath string
	YAMLConfig
}

// ConfigPath returns the file the configuration was loaded from.
func (c *Config) ConfigPath() string { return c.configPath }

// Initialize loads, merges, validates, and returns ready-to-use
// configuration.
//
// Steps performed:
//  1. Read the YAML file at configPath
//  2. Expand ${VAR}/$VAR environment references
//  3. Parse into YAMLConfig
//  4. Merge onto the built-in defaults (YAML wins)
//  5. Validate
func Initialize(_ context.Context, configPath string) (*Config, error) {
	log := slog.With("config_path", configPath)
	log.Info("initializing configuration")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}
	data = ExpandEnv(data)

	var loaded YAMLConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	merged := defaultConfig()
	if err := mergo.Merge(&merged, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging configuration: %w", err)
	}

	cfg := &Config{configPath: configPath, YAMLConfig: merged}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"worker_count", cfg.Queue.WorkerCount,
		"discovery_poll_interval", cfg.Discovery.PollInterval,
		"relay_enabled", cfg.Relay.Enabled)

	return cfg, nil
}

// Secret reads an environment variable and reports whether it was set.
// Every *_env field in YAMLConfig is resolved this way at the call site
// that needs the secret, never cached on Config itself.
func Secret(envVar string) (string, bool) {
	if envVar == "" {
		return "", false
	}
	v, ok := os.LookupEnv(envVar)
	return v, ok
}
