package fetch

import (
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"site-scraper/pkg/config"
)

// NewClient creates a new HTTP client based on the provided configuration.
// The overall per-request timeout is applied via context in the Fetcher,
// not on the client itself.
func NewClient(cfg config.HTTPClientConfig, log *logrus.Logger) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout,
		KeepAlive: cfg.DialerKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment, // Use system proxy settings
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		MaxResponseHeaderBytes: 1 << 20, // 1MB max header size
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			log.Debugf("Redirecting: %s -> %s (hop %d)", via[len(via)-1].URL, req.URL, len(via))
			return nil
		},
	}
	return client
}
