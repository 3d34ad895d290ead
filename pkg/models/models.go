package models

import "time"

// PageRef is a crawl candidate discovered in a sitemap, pre-download
type PageRef struct {
	URL     string
	LastMod time.Time // Zero when the sitemap omits or mangles <lastmod>
}

// PageRecord is the immutable outcome of one fetch attempt
type PageRecord struct {
	URL       string     `json:"url"`
	LocalPath string     `json:"localPath,omitempty"` // Relative to the output dir, e.g. "pages/about.html"
	Title     string     `json:"title,omitempty"`
	Status    PageStatus `json:"status"`
	Error     string     `json:"error,omitempty"` // Non-empty iff Status is failed
}

// FailedURL pairs a URL with the reason its fetch failed
type FailedURL struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Report is the read-only snapshot of a finished (or cancelled) session
type Report struct {
	TotalDiscovered int          `json:"totalDiscovered"`
	TotalDownloaded int          `json:"totalDownloaded"`
	TotalFailed     int          `json:"totalFailed"`
	Pages           []PageRecord `json:"pages"`
	FailedURLs      []FailedURL  `json:"failedUrls"`
}

// SitemapKind classifies a sitemap document by its root element
type SitemapKind string

const (
	SitemapKindIndex  SitemapKind = "index"  // <sitemapindex>: children are further sitemaps
	SitemapKindURLSet SitemapKind = "urlset" // <urlset>: children are terminal page URLs
)

// SitemapInfo summarizes one successfully parsed sitemap document
type SitemapInfo struct {
	URL        string      `json:"url"`
	Kind       SitemapKind `json:"kind"`
	EntryCount int         `json:"entryCount"`
}

// SitemapReport is the outcome of a sitemap-only run
type SitemapReport struct {
	SitemapCount int           `json:"sitemapCount"`
	Sitemaps     []SitemapInfo `json:"sitemaps"`
	URLs         []string      `json:"urls"`
}
