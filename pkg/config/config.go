package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	UserAgent    string        `yaml:"user_agent,omitempty"`
	RequestDelay time.Duration `yaml:"request_delay,omitempty"` // Politeness pause between successive fetches
	FetchTimeout time.Duration `yaml:"fetch_timeout,omitempty"` // Per-fetch network timeout
	MaxPages     int           `yaml:"max_pages,omitempty"`     // Default page cap (0 = unlimited)
	OutputDir    string        `yaml:"output_dir,omitempty"`    // Offline mirror output
	SitemapDir   string        `yaml:"sitemap_dir,omitempty"`   // Raw sitemap XML output (sitemap mode)
	StateDir     string        `yaml:"state_dir,omitempty"`     // Crawl history archive location
	ListenAddr   string        `yaml:"listen_addr,omitempty"`   // Web control surface address

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Default returns a Config populated with defaults, equivalent to
// validating an empty config file.
func Default() *Config {
	cfg := &Config{}
	cfg.Validate() // Empty config never fails validation
	return cfg
}

// Load reads and parses the config file at path. The result is not yet
// validated; callers run Validate to apply defaults and surface warnings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
