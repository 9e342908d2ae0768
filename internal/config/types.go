package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Token     string          `json:"token"`
	BaseURL   string          `json:"baseUrl"`
	FileURL   string          `json:"fileUrl"`
	LogLevel  string          `json:"logLevel"`
	Transport TransportConfig `json:"transport"`
}

// TransportConfig holds connection reuse and timeout settings.
// All durations are in milliseconds.
type TransportConfig struct {
	RequestTimeout    int `json:"requestTimeout"`
	KeepAliveIdle     int `json:"keepAliveIdle"`
	KeepAliveInterval int `json:"keepAliveInterval"`
	IdleConnTimeout   int `json:"idleConnTimeout"`
	MaxConnsPerHost   int `json:"maxConnsPerHost"`
	MaxIdleConns      int `json:"maxIdleConns"`
	DNSCacheTTL       int `json:"dnsCacheTtl"`
	DNSCacheSize      int `json:"dnsCacheSize"`
	PollInterval      int `json:"pollInterval"` // batch multiplexer wake-up interval
}

// Default values
const (
	DefaultBaseURL           = "https://api.telegram.org/bot"
	DefaultFileURL           = "https://api.telegram.org/file/bot"
	DefaultLogLevel          = "info"
	DefaultRequestTimeout    = 30000  // ms
	DefaultKeepAliveIdle     = 120000 // ms
	DefaultKeepAliveInterval = 60000  // ms
	DefaultIdleConnTimeout   = 90000  // ms
	DefaultMaxConnsPerHost   = 10
	DefaultMaxIdleConns      = 100
	DefaultDNSCacheTTL       = 300000 // ms
	DefaultDNSCacheSize      = 256
	DefaultPollInterval      = 100 // ms
)

// Endpoint returns the method endpoint for the configured token
func (c *Config) Endpoint() string {
	return c.BaseURL + c.Token
}

// FileEndpoint returns the file download endpoint for the configured token,
// or "" when no file URL is configured
func (c *Config) FileEndpoint() string {
	if c.FileURL == "" {
		return ""
	}
	return c.FileURL + c.Token
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *TransportConfig) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetKeepAliveIdleDuration returns the TCP keep-alive idle time as time.Duration
func (c *TransportConfig) GetKeepAliveIdleDuration() time.Duration {
	return time.Duration(c.KeepAliveIdle) * time.Millisecond
}

// GetKeepAliveIntervalDuration returns the TCP keep-alive probe interval as time.Duration
func (c *TransportConfig) GetKeepAliveIntervalDuration() time.Duration {
	return time.Duration(c.KeepAliveInterval) * time.Millisecond
}

// GetIdleConnTimeoutDuration returns idle connection expiry as time.Duration
func (c *TransportConfig) GetIdleConnTimeoutDuration() time.Duration {
	return time.Duration(c.IdleConnTimeout) * time.Millisecond
}

// GetDNSCacheTTLDuration returns DNS cache lifetime as time.Duration
func (c *TransportConfig) GetDNSCacheTTLDuration() time.Duration {
	return time.Duration(c.DNSCacheTTL) * time.Millisecond
}

// GetPollIntervalDuration returns the multiplexer poll interval as time.Duration
func (c *TransportConfig) GetPollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}
