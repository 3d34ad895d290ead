package sitemap

import (
	"encoding/json"
	"fmt"

	"site-scraper/pkg/models"
	"site-scraper/pkg/storage"
)

// BuildSitemapReport projects an expansion result into the sitemap-only
// report shape. The input is not modified.
func BuildSitemapReport(res *ExpandResult) models.SitemapReport {
	urls := make([]string, 0, len(res.Pages))
	for _, page := range res.Pages {
		urls = append(urls, page.URL)
	}
	return models.SitemapReport{
		SitemapCount: len(res.Sitemaps),
		Sitemaps:     res.Sitemaps,
		URLs:         urls,
	}
}

// WriteSitemapReport serializes the report as indented JSON into the store.
func WriteSitemapReport(store storage.Store, rep models.SitemapReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sitemap report: %w", err)
	}
	return store.Put("sitemap_report.json", data)
}
