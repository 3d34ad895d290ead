package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-scraper/pkg/config"
	"site-scraper/pkg/fetch"
	"site-scraper/pkg/logging"
	"site-scraper/pkg/scrape"
	"site-scraper/pkg/sitemap"
	"site-scraper/pkg/storage"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

// newTestServer builds a full stack against a one-page target site.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html><head><title>Target</title></head><body></body></html>")
	}))
	t.Cleanup(target.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := fetch.NewClient(config.HTTPClientConfig{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Second,
		TLSHandshakeTimeout: time.Second,
		DialerTimeout:       time.Second,
		DialerKeepAlive:     time.Second,
	}, logger)
	fetcher := fetch.NewHTTPFetcher(client, "test-agent/1.0", 5*time.Second, logger)

	outputDir := t.TempDir()
	store, err := storage.NewFSStore(outputDir, testLog())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.RequestDelay = 0

	broadcaster := logging.NewBroadcaster()
	crawler := scrape.NewCrawler(
		fetcher,
		sitemap.NewDiscoverer(fetcher, testLog()),
		sitemap.NewExpander(fetcher, nil, testLog()),
		store,
		nil,
		cfg,
		testLog(),
		broadcaster,
	)
	manager := scrape.NewManager(crawler, testLog())
	return NewServer(manager, broadcaster, nil, outputDir, testLog()), target
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStart_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, "/api/start", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStart_InvalidSeed(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, "/api/start", `{"url": "not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStart_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/start", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStatusLifecycle(t *testing.T) {
	srv, target := newTestServer(t)

	rec := postJSON(t, srv, "/api/start", fmt.Sprintf(`{"url": %q, "max_pages": 5}`, target.URL))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started startResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.NotEmpty(t, started.SessionID)

	// Second start while running (or just finished) answers 409 or,
	// if the tiny crawl already finished, 202 with a fresh session.
	deadline := time.After(5 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		statusRec := httptest.NewRecorder()
		srv.ServeHTTP(statusRec, req)
		require.Equal(t, http.StatusOK, statusRec.Code)

		var st scrape.Status
		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &st))
		if !st.Running {
			assert.Equal(t, started.SessionID, st.SessionID)
			assert.Equal(t, "completed", st.State)
			assert.Equal(t, 1, st.PagesDownloaded)
			break
		}
		select {
		case <-deadline:
			t.Fatal("session never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStart_ConflictWhileRunning(t *testing.T) {
	// A target that stalls keeps the first session running
	stall := make(chan struct{})
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			<-stall
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(func() {
		close(stall)
		target.Close()
	})

	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, "/api/start", fmt.Sprintf(`{"url": %q}`, target.URL))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = postJSON(t, srv, "/api/start", fmt.Sprintf(`{"url": %q}`, target.URL))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(t, srv, "/api/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStop_Idle(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv, "/api/stop", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// syncRecorder wraps ResponseRecorder so the test can read the body
// while the stream handler is still writing.
type syncRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (s *syncRecorder) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Header()
}

func (s *syncRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Write(b)
}

func (s *syncRecorder) WriteHeader(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.WriteHeader(code)
}

func (s *syncRecorder) Flush() {}

func (s *syncRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Body.String()
}

func TestStream_DeliversPublishedLines(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := &syncRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription before publishing
	require.Eventually(t, func() bool {
		srv.broadcaster.Publish("crawl progress line")
		return strings.Contains(rec.body(), "crawl progress line")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not exit on disconnect")
	}

	body := rec.body()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "data: crawl progress line")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestStream_SignalsSessionEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := &syncRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		srv.broadcaster.Publish(logging.FinishedMarker + "completed")
		return strings.Contains(rec.body(), "event: finished")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not exit on disconnect")
	}

	body := rec.body()
	assert.Contains(t, body, "event: finished\ndata: completed")
	// The raw marker never leaks to clients as a plain data line
	assert.NotContains(t, body, "data: "+logging.FinishedMarker)
}

func TestHistory_Disabled(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_ListAndGet(t *testing.T) {
	archive, err := storage.OpenArchive(t.TempDir(), testLog())
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })

	require.NoError(t, archive.SaveReport(storage.ArchiveEntry{
		SessionID:  "past-session",
		SeedURL:    "https://example.com",
		State:      "completed",
		FinishedAt: time.Now(),
	}))

	srv, _ := newTestServer(t)
	srv.archive = archive

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []storage.ArchiveEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "past-session", entries[0].SessionID)

	req = httptest.NewRequest(http.MethodGet, "/api/history/past-session", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/history/unknown", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
