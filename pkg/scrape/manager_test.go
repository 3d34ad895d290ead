package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-scraper/pkg/models"
	"site-scraper/pkg/utils"
)

// slowSite answers every page after a delay so a session stays running
// long enough for the manager assertions.
func slowSite(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", srv.URL)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><urlset>`+
			`<url><loc>%s/p1</loc></url>`+
			`<url><loc>%s/p2</loc></url>`+
			`<url><loc>%s/p3</loc></url>`+
			`</urlset>`, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		fmt.Fprint(w, "<html><title>page</title></html>")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	crawler, _ := newTestCrawler(t)
	return NewManager(crawler, testLog())
}

func TestManager_StartRejectsBadInput(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Start(context.Background(), "not a url", 0)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)

	_, err = m.Start(context.Background(), "ftp://example.com", 0)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)

	_, err = m.Start(context.Background(), "/relative/path", 0)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)

	_, err = m.Start(context.Background(), "https://example.com", -1)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
}

func TestManager_SingleActiveSession(t *testing.T) {
	srv := slowSite(t, 50*time.Millisecond)
	m := newTestManager(t)

	s, err := m.Start(context.Background(), srv.URL, 0)
	require.NoError(t, err)

	_, err = m.Start(context.Background(), srv.URL, 0)
	assert.ErrorIs(t, err, utils.ErrAlreadyRunning)

	require.NoError(t, m.Stop())
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish after stop")
	}
	assert.Equal(t, models.SessionStateCancelled, s.State())

	// A terminal session no longer blocks a new one
	s2, err := m.Start(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	<-s2.Done()
}

func TestManager_StopIdle(t *testing.T) {
	m := newTestManager(t)
	assert.ErrorIs(t, m.Stop(), utils.ErrNoActiveSession)
}

func TestManager_Status(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.Status().Running)

	srv := slowSite(t, 10*time.Millisecond)
	s, err := m.Start(context.Background(), srv.URL, 0)
	require.NoError(t, err)

	st := m.Status()
	assert.Equal(t, s.ID, st.SessionID)
	assert.Equal(t, srv.URL, st.SeedURL)

	<-s.Done()
	st = m.Status()
	assert.False(t, st.Running)
	assert.Equal(t, models.SessionStateCompleted.String(), st.State)
	assert.Equal(t, 3, st.PagesDownloaded)
}

func TestManager_StopAfterFinishIsError(t *testing.T) {
	srv := slowSite(t, 0)
	m := newTestManager(t)

	s, err := m.Start(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	<-s.Done()

	assert.ErrorIs(t, m.Stop(), utils.ErrNoActiveSession)
}
