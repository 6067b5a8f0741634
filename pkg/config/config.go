package config

import (
	"time"
)

// DefaultDirectoryPort is the port appended to a directory address without one.
const DefaultDirectoryPort = 27012

// Config represents the configuration shared by the hdsview binaries
type Config struct {
	Directory DirectoryConfig `yaml:"directory"`
	Transport TransportConfig `yaml:"transport"`
	Topology  TopologyConfig  `yaml:"topology"`
	Inspector InspectorConfig `yaml:"inspector"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DirectoryConfig contains settings for talking to a directory host
type DirectoryConfig struct {
	DefaultHost    string        `yaml:"default_host"`                              // Host used when none is given
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`           // Per-request timeout
	Paranoid       bool          `yaml:"paranoid"`                                  // Drop expired and unsigned attributes, verify signatures
	UserAgent      string        `yaml:"user_agent" validate:"omitempty,printascii"` // Sent with every request
}

// TransportConfig contains TLS and proxy settings for directory requests
type TransportConfig struct {
	TrustedDomains []string `yaml:"trusted_domains" validate:"dive,required"` // Domains allowed to present self-signed certs
	CACertPath     string   `yaml:"ca_cert_path" validate:"omitempty,filepath"`
	ProxyEnabled   bool     `yaml:"proxy_enabled"`
	ProxyAddr      string   `yaml:"proxy_addr" validate:"omitempty,hostname_port"` // SOCKS5 host:port
}

// TopologyConfig contains graph construction settings
type TopologyConfig struct {
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches" validate:"gte=0"` // 0 = unlimited
}

// InspectorConfig contains the HTTP inspector settings
type InspectorConfig struct {
	ListenAddr     string        `yaml:"listen_addr" validate:"required,hostname_port"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	LaunchURL      string        `yaml:"launch_url"` // ext+hds: URL or fragment to connect to at startup

	// Optional ACME/Let's Encrypt serving
	EnableHTTPS bool   `yaml:"enable_https"`
	DomainName  string `yaml:"domain_name" validate:"required_if=EnableHTTPS true"`
	TLSCacheDir string `yaml:"tls_cache_dir"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Directory: DirectoryConfig{
			RequestTimeout: 15 * time.Second,
			Paranoid:       true,
			UserAgent:      "hdsview",
		},
		Transport: TransportConfig{
			TrustedDomains: []string{},
			ProxyAddr:      "127.0.0.1:9050",
		},
		Topology: TopologyConfig{
			MaxConcurrentFetches: 0,
		},
		Inspector: InspectorConfig{
			ListenAddr:     ":8090",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
