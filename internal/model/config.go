package model

import "time"

// Config holds runtime settings for the malcamp CLI
type Config struct {
	Service      ServiceConfig      `yaml:"service" mapstructure:"service"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Polling      PollingConfig      `yaml:"polling" mapstructure:"polling"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Registry     RegistryConfig     `yaml:"registry" mapstructure:"registry"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ServiceConfig configures the remote execution service
type ServiceConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	Token      string        `yaml:"token,omitempty" mapstructure:"token"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig bounds parallel submissions, polls and downloads
type ConcurrencyConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	Downloads int `yaml:"downloads" mapstructure:"downloads"`
}

// RateLimitingConfig limits requests per service host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// PollingConfig controls how experiments are monitored
type PollingConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// CacheConfig configures the simulation output cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RegistryConfig locates the local experiment registry
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig selects log level and encoding
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:        "http://localhost:8080",
			Timeout:    30 * time.Second,
			UserAgent:  "malcamp/0.1",
			MaxRetries: 3,
		},
		Concurrency: ConcurrencyConfig{
			Workers:   8,
			Downloads: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Polling: PollingConfig{
			Interval: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".malcamp/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Registry: RegistryConfig{
			Path: ".malcamp/registry.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
