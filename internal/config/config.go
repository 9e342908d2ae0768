package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Load reads and parses the configuration file.
// Files ending in .yaml or .yml are accepted as well as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(path, data)
}

// Parse decodes configuration bytes; path is only used to pick the format
func Parse(path string, data []byte) (*Config, error) {
	data, err := coerceToJSON(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and the given token
func Default(token string) *Config {
	cfg := &Config{Token: token}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	// A custom base URL points at a self-hosted API server, which serves
	// files from local paths; only the public API gets a default file URL.
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
		if cfg.FileURL == "" {
			cfg.FileURL = DefaultFileURL
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	t := &cfg.Transport
	if t.RequestTimeout == 0 {
		t.RequestTimeout = DefaultRequestTimeout
	}
	if t.KeepAliveIdle == 0 {
		t.KeepAliveIdle = DefaultKeepAliveIdle
	}
	if t.KeepAliveInterval == 0 {
		t.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if t.IdleConnTimeout == 0 {
		t.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if t.MaxConnsPerHost == 0 {
		t.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	if t.MaxIdleConns == 0 {
		t.MaxIdleConns = DefaultMaxIdleConns
	}
	if t.DNSCacheTTL == 0 {
		t.DNSCacheTTL = DefaultDNSCacheTTL
	}
	if t.DNSCacheSize == 0 {
		t.DNSCacheSize = DefaultDNSCacheSize
	}
	if t.PollInterval == 0 {
		t.PollInterval = DefaultPollInterval
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.Token == "" {
		return errors.New("token is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	t := cfg.Transport
	durations := []struct {
		name  string
		value int
	}{
		{"requestTimeout", t.RequestTimeout},
		{"keepAliveIdle", t.KeepAliveIdle},
		{"keepAliveInterval", t.KeepAliveInterval},
		{"idleConnTimeout", t.IdleConnTimeout},
		{"dnsCacheTtl", t.DNSCacheTTL},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("transport.%s must be non-negative", d.name)
		}
	}

	if t.PollInterval <= 0 {
		return fmt.Errorf("transport.pollInterval must be positive")
	}
	if t.MaxConnsPerHost <= 0 {
		return fmt.Errorf("transport.maxConnsPerHost must be positive")
	}
	if t.MaxIdleConns <= 0 {
		return fmt.Errorf("transport.maxIdleConns must be positive")
	}
	if t.DNSCacheSize <= 0 {
		return fmt.Errorf("transport.dnsCacheSize must be positive")
	}

	return nil
}
