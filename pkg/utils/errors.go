package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrHTTPStatus       = errors.New("unexpected HTTP status") // Wraps non-2xx responses
	ErrParsing          = errors.New("parsing error")          // Wraps XML/HTML/URL parse failures
	ErrConfigValidation = errors.New("configuration validation error")
	ErrAlreadyRunning   = errors.New("a scrape session is already running")
	ErrNoActiveSession  = errors.New("no active scrape session")
	ErrStoreIO          = errors.New("store I/O error")    // Wraps filesystem errors
	ErrDatabase         = errors.New("database error")     // Wraps badger errors
	ErrNotFound         = errors.New("record not found")
)

// CategorizeError maps an error to a predefined category string for logging
// and failure records.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrHTTPStatus):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") || strings.HasSuffix(errMsg, " 404") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") || strings.HasSuffix(errMsg, " 403") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429 ") || strings.HasSuffix(errMsg, " 429") {
			return "HTTP_429"
		}
		if strings.Contains(errMsg, "status 5") {
			return "HTTP_5xx"
		}
		return "HTTP_Other"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "XML") {
			return "Parse_XML"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Parse_HTML"
		}
		if strings.Contains(errMsg, "URL") {
			return "Parse_URL"
		}
		return "Parse_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrAlreadyRunning):
		return "Session_AlreadyRunning"
	case errors.Is(err, ErrNoActiveSession):
		return "Session_NotRunning"
	case errors.Is(err, ErrStoreIO):
		return "Store_IO"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrNotFound):
		return "Store_NotFound"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Network_Timeout"
	}

	// Network errors
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "Network_Timeout"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}

	return "Unknown"
}
