package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"site-scraper/pkg/utils"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 10 << 20 // 10MB

// Result holds a completed HTTP GET: status, body, and the URL the
// request ended up at after redirects.
type Result struct {
	StatusCode  int
	Status      string
	Body        []byte
	ContentType string
	FinalURL    *url.URL
}

// Fetcher performs a single HTTP GET with a timeout. No retries: a
// failed URL is recorded once by the caller and never re-attempted
// within a session.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// HTTPFetcher implements Fetcher over a shared http.Client
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	log       *logrus.Logger
}

// NewHTTPFetcher creates an HTTPFetcher
func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration, log *logrus.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		log:       log,
	}
}

// Fetch performs one GET. Non-2xx responses return the Result together
// with a wrapped utils.ErrHTTPStatus so callers can inspect the status;
// transport failures return a nil Result.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for '%s': %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	reqLog := f.log.WithField("url", rawURL)
	reqLog.Debug("Fetching...")

	resp, err := f.client.Do(req)
	if err != nil {
		reqLog.Debugf("Fetch failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBodyBytes+1)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, fmt.Errorf("reading body from '%s': %w", rawURL, readErr)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from '%s' exceeds max size (%d bytes)", rawURL, maxBodyBytes)
	}

	result := &Result{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqLog.WithField("status_code", resp.StatusCode).Debug("Non-2xx response")
		return result, fmt.Errorf("%w: status %d %s", utils.ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "bytes": len(body)}).Debug("Fetched")
	return result, nil
}
