// Package report builds the JSON summary written next to a mirror.
package report

import (
	"encoding/json"
	"fmt"

	"site-scraper/pkg/models"
	"site-scraper/pkg/storage"
)

// Build partitions the crawl records into the report shape. It is a
// pure projection: the records themselves are the source of truth and
// the counters are derived from them, never tracked separately.
func Build(discovered int, records []models.PageRecord) models.Report {
	rep := models.Report{
		TotalDiscovered: discovered,
		Pages:           make([]models.PageRecord, 0, len(records)),
		FailedURLs:      []models.FailedURL{},
	}
	for _, rec := range records {
		rep.Pages = append(rep.Pages, rec)
		switch rec.Status {
		case models.PageStatusSuccess:
			rep.TotalDownloaded++
		case models.PageStatusFailed:
			rep.TotalFailed++
			rep.FailedURLs = append(rep.FailedURLs, models.FailedURL{
				URL:   rec.URL,
				Error: rec.Error,
			})
		}
	}
	return rep
}

// Write serializes the report as indented JSON into the store as
// "report.json".
func Write(store storage.Store, rep models.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return store.Put("report.json", data)
}
