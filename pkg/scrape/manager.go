package scrape

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"site-scraper/pkg/utils"
)

// Status is a point-in-time view of the manager for the control API.
type Status struct {
	Running         bool   `json:"running"`
	SessionID       string `json:"sessionId,omitempty"`
	SeedURL         string `json:"seedUrl,omitempty"`
	State           string `json:"state,omitempty"`
	PagesDownloaded int    `json:"pagesDownloaded"`
	PagesFailed     int    `json:"pagesFailed"`
}

// Manager enforces the single-active-session rule and owns session
// lifecycle. A finished session stays readable until the next Start.
type Manager struct {
	mu      sync.RWMutex
	active  *Session
	crawler *Crawler
	log     *logrus.Entry
}

func NewManager(crawler *Crawler, log *logrus.Entry) *Manager {
	return &Manager{crawler: crawler, log: log}
}

// Start validates the request, registers a new session, and launches
// its crawl goroutine. utils.ErrAlreadyRunning is returned while a
// previous session is still non-terminal.
func (m *Manager) Start(ctx context.Context, seedURL string, maxPages int) (*Session, error) {
	if err := validateSeed(seedURL); err != nil {
		return nil, err
	}
	if maxPages < 0 {
		return nil, fmt.Errorf("%w: max pages cannot be negative", utils.ErrConfigValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && !m.active.State().Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", utils.ErrAlreadyRunning, m.active.ID, m.active.State())
	}

	s := NewSession(uuid.NewString(), seedURL, maxPages)
	m.active = s
	m.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"seed_url":   seedURL,
		"max_pages":  maxPages,
	}).Info("Session starting")

	go m.crawler.Run(ctx, s)
	return s, nil
}

// Stop requests cancellation of the active session. Stopping an idle
// manager is an error so callers can distinguish the no-op.
func (m *Manager) Stop() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil || m.active.State().Terminal() {
		return utils.ErrNoActiveSession
	}
	m.log.WithField("session_id", m.active.ID).Info("Stop requested")
	m.active.Cancel()
	return nil
}

// Active returns the current session handle, which may be terminal.
func (m *Manager) Active() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return Status{}
	}
	downloaded, failed := m.active.Counts()
	state := m.active.State()
	return Status{
		Running:         !state.Terminal(),
		SessionID:       m.active.ID,
		SeedURL:         m.active.SeedURL,
		State:           state.String(),
		PagesDownloaded: downloaded,
		PagesFailed:     failed,
	}
}

func validateSeed(seedURL string) error {
	parsed, err := url.ParseRequestURI(seedURL)
	if err != nil {
		return fmt.Errorf("%w: seed URL %q is not absolute: %v", utils.ErrConfigValidation, seedURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: seed URL %q must use http or https", utils.ErrConfigValidation, seedURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: seed URL %q has no host", utils.ErrConfigValidation, seedURL)
	}
	return nil
}
