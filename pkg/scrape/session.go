package scrape

import (
	"sync"
	"sync/atomic"
	"time"

	"site-scraper/pkg/models"
)

// Session is the handle for one crawl. Cancellation and state live on
// the session itself rather than in package globals, so a finished
// session can be inspected while a new one runs.
type Session struct {
	ID        string
	SeedURL   string
	MaxPages  int // 0 means unlimited
	StartedAt time.Time

	cancelled  atomic.Bool
	state      atomic.Value // models.SessionState
	downloaded atomic.Int64
	failed     atomic.Int64

	mu         sync.Mutex
	records    []models.PageRecord
	discovered int

	done chan struct{}
}

func NewSession(id, seedURL string, maxPages int) *Session {
	s := &Session{
		ID:        id,
		SeedURL:   seedURL,
		MaxPages:  maxPages,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.state.Store(models.SessionStatePending)
	return s
}

// Cancel requests a cooperative stop. The crawl loop notices at the
// top of its next iteration; in-flight requests are not aborted.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

func (s *Session) State() models.SessionState {
	return s.state.Load().(models.SessionState)
}

func (s *Session) setState(state models.SessionState) {
	s.state.Store(state)
}

// Counts returns pages downloaded and failed so far. Safe to call
// while the crawl is running.
func (s *Session) Counts() (downloaded, failed int) {
	return int(s.downloaded.Load()), int(s.failed.Load())
}

// Done is closed when the crawl goroutine has fully finished,
// including output generation.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) finish() {
	close(s.done)
}

func (s *Session) appendRecord(rec models.PageRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	if rec.Status == models.PageStatusSuccess {
		s.downloaded.Add(1)
	} else {
		s.failed.Add(1)
	}
}

func (s *Session) setDiscovered(n int) {
	s.mu.Lock()
	s.discovered = n
	s.mu.Unlock()
}

// snapshot copies the records so callers can build outputs without
// holding the session lock.
func (s *Session) snapshot() (discovered int, records []models.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records = make([]models.PageRecord, len(s.records))
	copy(records, s.records)
	return s.discovered, records
}
