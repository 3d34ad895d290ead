package models

// PageStatus is the outcome of a single page fetch
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusFailed  PageStatus = "failed"
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string { return string(s) }

// SessionState tracks a scrape session through its lifecycle
type SessionState string

const (
	SessionStatePending   SessionState = "pending"   // Created, crawl goroutine not yet scheduled
	SessionStateRunning   SessionState = "running"   // Crawl loop active
	SessionStateCompleted SessionState = "completed" // Queue drained
	SessionStateCancelled SessionState = "cancelled" // Stop requested and honored
	SessionStateCapped    SessionState = "capped"    // Page cap reached with work remaining
	SessionStateFailed    SessionState = "failed"    // Startup or output error after the handle was issued
)

// String implements fmt.Stringer for logging
func (s SessionState) String() string { return string(s) }

// Terminal reports whether the session has stopped doing work
func (s SessionState) Terminal() bool {
	switch s {
	case SessionStateCompleted, SessionStateCancelled, SessionStateCapped, SessionStateFailed:
		return true
	}
	return false
}
