package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
const maxFilenameLength = 200                                          // Max length for sanitized filename components

// SanitizeFilename cleans a string to be safe for use as a filename component
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")       // Replace invalid chars with underscore
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_") // Collapse multiple underscores
	sanitized = strings.Trim(sanitized, "_ ")                           // Remove leading/trailing underscores or spaces

	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// PageSlug derives a deterministic filename for a page URL from its path.
// "https://example.com/docs/intro/" becomes "docs_intro.html"; the root
// path becomes "index.html". Percent-encoding is decoded before
// sanitization so slugs stay human-readable.
func PageSlug(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "index.html"
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	slug := SanitizeFilename(strings.ReplaceAll(path, "/", "_"))

	if !strings.HasSuffix(slug, ".html") {
		slug += ".html"
	}
	return slug
}

// SitemapSlug derives a filename for persisting a sitemap document,
// using the last path segment like the page equivalent above.
func SitemapSlug(u *url.URL) string {
	base := u.Path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		base = "sitemap.xml"
	}
	slug := SanitizeFilename(base)
	if !strings.HasSuffix(slug, ".xml") {
		slug += ".xml"
	}
	return slug
}
