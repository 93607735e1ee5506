package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates. An empty
// path yields the defaults, with provider keys taken from the environment.
func LoadAndValidate(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = FromEnv()
	} else {
		var err error
		if cfg, err = LoadWithDefaults(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns a fully defaulted config with no providers enabled.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// FromEnv returns the defaults with provider keys read from
// ALPHA_VANTAGE_API_KEY and FINNHUB_API_KEY.
func FromEnv() *Config {
	cfg := Default()
	cfg.Providers.AlphaVantage.APIKey = os.Getenv(EnvAlphaVantageKey)
	cfg.Providers.Finnhub.APIKey = os.Getenv(EnvFinnhubKey)
	return cfg
}
