// Package web exposes the crawl control surface over HTTP: start,
// stop, status, live progress streaming, and the session history.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"site-scraper/pkg/logging"
	"site-scraper/pkg/scrape"
	"site-scraper/pkg/storage"
	"site-scraper/pkg/utils"
)

// Server wires the session manager and log broadcaster into HTTP
// handlers. The crawl output directory is served at the root so a
// finished mirror is browsable immediately.
type Server struct {
	mux         *http.ServeMux
	manager     *scrape.Manager
	broadcaster *logging.Broadcaster
	archive     *storage.Archive // nil when history is disabled
	log         *logrus.Entry
}

func NewServer(manager *scrape.Manager, broadcaster *logging.Broadcaster, archive *storage.Archive, outputDir string, log *logrus.Entry) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		manager:     manager,
		broadcaster: broadcaster,
		archive:     archive,
		log:         log,
	}
	s.mux.HandleFunc("/api/start", s.handleStart)
	s.mux.HandleFunc("/api/stop", s.handleStop)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/stream", s.handleStream)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/history/", s.handleHistoryEntry)
	s.mux.Handle("/", http.FileServer(http.Dir(outputDir)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type startRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST required"})
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	// The session outlives the request, so it must not inherit the
	// request context.
	session, err := s.manager.Start(context.Background(), req.URL, req.MaxPages)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrAlreadyRunning):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, utils.ErrConfigValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			s.log.WithError(err).Error("Start failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{
		SessionID: session.ID,
		State:     session.State().String(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST required"})
		return
	}
	if err := s.manager.Stop(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "GET required"})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Status())
}

// handleStream sends crawl progress lines as server-sent events until
// the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lines := s.broadcaster.Subscribe(64)
	defer s.broadcaster.Unsubscribe(lines)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	fmt.Fprint(w, "event: connected\ndata: ok\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case line, ok := <-lines:
			if !ok {
				return
			}
			if state, found := strings.CutPrefix(line, logging.FinishedMarker); found {
				fmt.Fprintf(w, "event: finished\ndata: %s\n\n", state)
			} else {
				fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(line, "\n", " "))
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history disabled"})
		return
	}
	entries, err := s.archive.List()
	if err != nil {
		s.log.WithError(err).Error("History listing failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if entries == nil {
		entries = []storage.ArchiveEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history disabled"})
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" {
		s.handleHistory(w, r)
		return
	}
	entry, err := s.archive.Get(id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
			return
		}
		s.log.WithError(err).Error("History lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
