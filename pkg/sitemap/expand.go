package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"site-scraper/pkg/fetch"
	"site-scraper/pkg/models"
	"site-scraper/pkg/parse"
	"site-scraper/pkg/storage"
	"site-scraper/pkg/utils"
)

// Failure records one sitemap that could not be fetched or parsed.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// ExpandResult is the outcome of recursively expanding a set of
// sitemap roots down to concrete page URLs.
type ExpandResult struct {
	Pages    []models.PageRef
	Sitemaps []models.SitemapInfo
	Failures []Failure
}

// Expander walks sitemap indexes down to page URLs. A visited set keyed
// by normalized URL makes circular index references terminate.
type Expander struct {
	fetcher  fetch.Fetcher
	rawStore storage.Store // optional: keeps fetched sitemap XML on disk
	log      *logrus.Entry
}

func NewExpander(fetcher fetch.Fetcher, rawStore storage.Store, log *logrus.Entry) *Expander {
	return &Expander{fetcher: fetcher, rawStore: rawStore, log: log}
}

// Expand processes every root and anything those roots reference,
// breadth-first. One bad sitemap never aborts the expansion: it is
// recorded as a failure and the rest of the worklist continues.
func (e *Expander) Expand(ctx context.Context, roots ...string) *ExpandResult {
	result := &ExpandResult{}
	visited := make(map[string]struct{})
	pageSeen := make(map[string]struct{})
	usedSlugs := make(map[string]struct{})

	queue := make([]string, 0, len(roots))
	for _, root := range roots {
		norm, _, err := parse.ParseAndNormalize(root)
		if err != nil {
			result.Failures = append(result.Failures, Failure{URL: root, Reason: err.Error()})
			continue
		}
		if _, ok := visited[norm]; ok {
			continue
		}
		visited[norm] = struct{}{}
		queue = append(queue, norm)
	}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			e.log.Info("Sitemap expansion interrupted")
			break
		}
		current := queue[0]
		queue = queue[1:]

		children, err := e.processOne(ctx, current, result, pageSeen, usedSlugs)
		if err != nil {
			e.log.WithField("url", current).WithError(err).Warn("Sitemap skipped")
			result.Failures = append(result.Failures, Failure{URL: current, Reason: err.Error()})
			continue
		}
		for _, child := range children {
			norm, _, err := parse.ParseAndNormalize(child)
			if err != nil {
				result.Failures = append(result.Failures, Failure{URL: child, Reason: err.Error()})
				continue
			}
			if _, ok := visited[norm]; ok {
				continue
			}
			visited[norm] = struct{}{}
			queue = append(queue, norm)
		}
	}

	e.log.WithFields(logrus.Fields{
		"sitemaps": len(result.Sitemaps),
		"pages":    len(result.Pages),
		"failures": len(result.Failures),
	}).Info("Sitemap expansion finished")
	return result
}

// processOne fetches and classifies a single sitemap document. For an
// index it returns the child sitemap URLs; for a urlset it appends the
// page entries to the result.
func (e *Expander) processOne(ctx context.Context, sitemapURL string, result *ExpandResult, pageSeen, usedSlugs map[string]struct{}) ([]string, error) {
	res, err := e.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	e.persistRaw(sitemapURL, res.Body, usedSlugs)

	var index parse.XMLSitemapIndex
	if err := xml.Unmarshal(res.Body, &index); err == nil {
		children := make([]string, 0, len(index.Sitemaps))
		for _, sm := range index.Sitemaps {
			if sm.Loc != "" {
				children = append(children, sm.Loc)
			}
		}
		result.Sitemaps = append(result.Sitemaps, models.SitemapInfo{
			URL:        sitemapURL,
			Kind:       models.SitemapKindIndex,
			EntryCount: len(children),
		})
		e.log.WithFields(logrus.Fields{"url": sitemapURL, "children": len(children)}).Debug("Sitemap index expanded")
		return children, nil
	}

	var urlset parse.XMLURLSet
	if err := xml.Unmarshal(res.Body, &urlset); err != nil {
		return nil, fmt.Errorf("%w: not a sitemap index or urlset: %v", utils.ErrParsing, err)
	}

	added := 0
	for _, entry := range urlset.URLs {
		if entry.Loc == "" {
			continue
		}
		norm, _, err := parse.ParseAndNormalize(entry.Loc)
		if err != nil {
			continue
		}
		if _, ok := pageSeen[norm]; ok {
			continue
		}
		pageSeen[norm] = struct{}{}
		result.Pages = append(result.Pages, models.PageRef{
			URL:     norm,
			LastMod: parseLastMod(entry.LastMod),
		})
		added++
	}
	result.Sitemaps = append(result.Sitemaps, models.SitemapInfo{
		URL:        sitemapURL,
		Kind:       models.SitemapKindURLSet,
		EntryCount: len(urlset.URLs),
	})
	e.log.WithFields(logrus.Fields{"url": sitemapURL, "urls": len(urlset.URLs), "new": added}).Debug("URL set expanded")
	return nil, nil
}

func (e *Expander) persistRaw(sitemapURL string, body []byte, usedSlugs map[string]struct{}) {
	if e.rawStore == nil {
		return
	}
	u, err := url.Parse(sitemapURL)
	if err != nil {
		return
	}
	slug := utils.SitemapSlug(u)
	if _, taken := usedSlugs[slug]; taken {
		slug = utils.ShortHash(sitemapURL) + "_" + slug
	}
	usedSlugs[slug] = struct{}{}
	if err := e.rawStore.Put(slug, body); err != nil {
		e.log.WithField("url", sitemapURL).WithError(err).Warn("Could not persist sitemap XML")
	}
}

// lastmodFormats covers the date shapes seen in real sitemaps.
var lastmodFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseLastMod(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range lastmodFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
