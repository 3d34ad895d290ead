package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-scraper/pkg/config"
	"site-scraper/pkg/utils"
)

func testFetcher(t *testing.T, timeout time.Duration) *HTTPFetcher {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(config.HTTPClientConfig{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Second,
		TLSHandshakeTimeout: time.Second,
		DialerTimeout:       time.Second,
		DialerKeepAlive:     time.Second,
	}, logger)
	return NewHTTPFetcher(client, "test-agent/1.0", timeout, logger)
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	f := testFetcher(t, 5*time.Second)
	res, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(res.Body), "<title>ok</title>")
	assert.Contains(t, res.ContentType, "text/html")
	assert.Equal(t, "/page", res.FinalURL.Path)
}

func TestFetch_NotFoundReturnsResultAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := testFetcher(t, 5*time.Second)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrHTTPStatus)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := testFetcher(t, 50*time.Millisecond)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestFetch_TransportError(t *testing.T) {
	f := testFetcher(t, time.Second)
	// Nothing listens on this port
	res, err := f.Fetch(context.Background(), "http://127.0.0.1:1/")
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := testFetcher(t, 5*time.Second)
	res, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "/new", res.FinalURL.Path)
	assert.Equal(t, "landed", string(res.Body))
}
