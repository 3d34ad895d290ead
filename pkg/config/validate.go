package config

import (
	"fmt"
	"time"

	"site-scraper/pkg/utils"
)

// Validate checks Config fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *Config) Validate() (warnings []string, err error) {
	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = "site-scraper/1.0 (offline mirroring tool)"
	}

	// RequestDelay
	if c.RequestDelay < 0 {
		warnings = append(warnings, "request_delay cannot be negative, using the default")
		c.RequestDelay = 0
	}
	if c.RequestDelay == 0 {
		c.RequestDelay = 500 * time.Millisecond
	}

	// FetchTimeout
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}

	// MaxPages: a negative cap is a caller mistake, not something to paper over
	if c.MaxPages < 0 {
		return warnings, fmt.Errorf("%w: max_pages cannot be negative (got %d)", utils.ErrConfigValidation, c.MaxPages)
	}

	// Directories
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './offline_output'")
		c.OutputDir = "./offline_output"
	}
	if c.SitemapDir == "" {
		c.SitemapDir = "./sitemaps"
	}
	if c.StateDir == "" {
		c.StateDir = "./state"
	}

	// ListenAddr
	if c.ListenAddr == "" {
		c.ListenAddr = "localhost:5000"
	}

	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *Config) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
