package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"site-scraper/pkg/config"
	"site-scraper/pkg/fetch"
	"site-scraper/pkg/index"
	"site-scraper/pkg/logging"
	"site-scraper/pkg/models"
	"site-scraper/pkg/parse"
	"site-scraper/pkg/report"
	"site-scraper/pkg/rewrite"
	"site-scraper/pkg/sitemap"
	"site-scraper/pkg/storage"
	"site-scraper/pkg/utils"
)

// Crawler turns a seed URL into an offline mirror: sitemap discovery,
// a capped sequential download loop, link rewriting, and the index and
// report artifacts.
type Crawler struct {
	fetcher    fetch.Fetcher
	discoverer *sitemap.Discoverer
	expander   *sitemap.Expander
	store      storage.Store
	archive    *storage.Archive // nil when history is disabled
	cfg        *config.Config
	log        *logrus.Entry
	sink       logging.Sink
}

func NewCrawler(fetcher fetch.Fetcher, discoverer *sitemap.Discoverer, expander *sitemap.Expander, store storage.Store, archive *storage.Archive, cfg *config.Config, log *logrus.Entry, sink logging.Sink) *Crawler {
	if sink == nil {
		sink = logging.NopSink{}
	}
	return &Crawler{
		fetcher:    fetcher,
		discoverer: discoverer,
		expander:   expander,
		store:      store,
		archive:    archive,
		cfg:        cfg,
		log:        log,
		sink:       sink,
	}
}

func (c *Crawler) publish(format string, args ...any) {
	c.sink.Publish(fmt.Sprintf(format, args...))
}

// Run executes the whole session. It always drives the session to a
// terminal state and closes its Done channel before returning.
func (c *Crawler) Run(ctx context.Context, s *Session) {
	defer s.finish()

	runLog := c.log.WithField("session_id", s.ID)
	s.setState(models.SessionStateRunning)
	c.publish("Session %s started for %s", s.ID, s.SeedURL)

	seedNorm, seedURL, err := parse.ParseAndNormalize(s.SeedURL)
	if err != nil {
		runLog.WithError(err).Error("Seed URL rejected")
		s.setState(models.SessionStateFailed)
		c.publish("Session %s failed: invalid seed URL", s.ID)
		c.publishFinished(s)
		return
	}
	domainRoot := seedURL.Scheme + "://" + seedURL.Host

	frontier := c.buildFrontier(ctx, s, runLog, domainRoot, seedNorm)

	seen := make(map[string]struct{}, len(frontier))
	visited := make(map[string]struct{}, len(frontier))
	urlMap := make(map[string]string, len(frontier))
	usedSlugs := make(map[string]struct{}, len(frontier))
	queue := make([]string, 0, len(frontier))
	for _, pageURL := range frontier {
		if _, ok := seen[pageURL]; ok {
			continue
		}
		seen[pageURL] = struct{}{}
		queue = append(queue, pageURL)
	}

	capped := false
	processed := 0
	for len(queue) > 0 {
		if s.Cancelled() || ctx.Err() != nil {
			runLog.WithField("remaining", len(queue)).Info("Crawl cancelled")
			c.publish("Session %s cancelled with %d URLs remaining", s.ID, len(queue))
			break
		}
		if s.MaxPages > 0 && processed >= s.MaxPages {
			capped = true
			runLog.WithFields(logrus.Fields{"max_pages": s.MaxPages, "remaining": len(queue)}).Info("Page cap reached")
			c.publish("Session %s hit the page cap of %d", s.ID, s.MaxPages)
			break
		}

		current := queue[0]
		queue = queue[1:]
		if _, ok := visited[current]; ok {
			continue
		}
		visited[current] = struct{}{}
		processed++

		links := c.crawlOne(ctx, s, runLog, current, seedURL, urlMap, usedSlugs)
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			queue = append(queue, link)
		}

		moreWork := len(queue) > 0 &&
			!s.Cancelled() &&
			(s.MaxPages == 0 || processed < s.MaxPages)
		if moreWork && c.cfg.RequestDelay > 0 {
			select {
			case <-time.After(c.cfg.RequestDelay):
			case <-ctx.Done():
			}
		}
	}

	s.setDiscovered(len(seen))

	if err := c.writeOutputs(s, runLog, urlMap); err != nil {
		runLog.WithError(err).Error("Output generation failed")
		s.setState(models.SessionStateFailed)
		c.publish("Session %s failed while writing outputs", s.ID)
		c.publishFinished(s)
		c.archiveSession(s, runLog)
		return
	}

	switch {
	case s.Cancelled() || ctx.Err() != nil:
		s.setState(models.SessionStateCancelled)
	case capped:
		s.setState(models.SessionStateCapped)
	default:
		s.setState(models.SessionStateCompleted)
	}

	downloaded, failed := s.Counts()
	runLog.WithFields(logrus.Fields{
		"state":      s.State(),
		"discovered": len(seen),
		"downloaded": downloaded,
		"failed":     failed,
	}).Info("Session finished")
	c.publish("Session %s finished: %s (%d downloaded, %d failed)", s.ID, s.State(), downloaded, failed)
	c.publishFinished(s)
	c.archiveSession(s, runLog)
}

// publishFinished emits the terminal marker once the session state is
// final, letting stream consumers stop listening without parsing
// progress text.
func (c *Crawler) publishFinished(s *Session) {
	c.sink.Publish(logging.FinishedMarker + s.State().String())
}

// buildFrontier discovers and expands sitemaps for the seed's domain.
// When no sitemap yields any page, the seed itself becomes the frontier
// so a site without sitemaps still produces a one-page mirror.
func (c *Crawler) buildFrontier(ctx context.Context, s *Session, runLog *logrus.Entry, domainRoot, seedNorm string) []string {
	roots := c.discoverer.Discover(ctx, domainRoot)
	c.publish("Discovered %d sitemap(s) for %s", len(roots), domainRoot)

	var frontier []string
	if len(roots) > 0 {
		expansion := c.expander.Expand(ctx, roots...)
		for _, page := range expansion.Pages {
			frontier = append(frontier, page.URL)
		}
		c.publish("Sitemaps expanded to %d page URLs (%d sitemap failures)", len(expansion.Pages), len(expansion.Failures))
	}
	if len(frontier) == 0 {
		runLog.Info("No sitemap pages, falling back to the seed URL")
		c.publish("No sitemap pages found, crawling from the homepage")
		frontier = []string{seedNorm}
	}
	return frontier
}

// crawlOne fetches a single page, records the outcome, and returns the
// normalized same-domain links found in it.
func (c *Crawler) crawlOne(ctx context.Context, s *Session, runLog *logrus.Entry, current string, seedURL *url.URL, urlMap map[string]string, usedSlugs map[string]struct{}) []string {
	pageLog := runLog.WithField("url", current)

	res, err := c.fetcher.Fetch(ctx, current)
	if err != nil {
		pageLog.WithField("category", utils.CategorizeError(err)).WithError(err).Warn("Page fetch failed")
		s.appendRecord(models.PageRecord{
			URL:    current,
			Status: models.PageStatusFailed,
			Error:  err.Error(),
		})
		c.publish("Failed %s: %v", current, err)
		return nil
	}

	parsed, parseErr := url.ParseRequestURI(current)
	if parseErr != nil {
		parsed = res.FinalURL
	}
	slug := utils.PageSlug(parsed)
	if _, taken := usedSlugs[slug]; taken {
		slug = strings.TrimSuffix(slug, ".html") + "_" + utils.ShortHash(current) + ".html"
	}
	usedSlugs[slug] = struct{}{}
	localPath := "pages/" + slug

	if err := c.store.Put(localPath, res.Body); err != nil {
		pageLog.WithError(err).Error("Could not persist page")
		s.appendRecord(models.PageRecord{
			URL:    current,
			Status: models.PageStatusFailed,
			Error:  err.Error(),
		})
		return nil
	}

	urlMap[current] = localPath
	finalNorm := parse.NormalizeURL(res.FinalURL)
	urlMap[finalNorm] = localPath

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	title := ""
	var links []string
	if docErr == nil {
		title = extractTitle(doc, res.FinalURL)
		links = sameDomainLinks(doc, res.FinalURL, seedURL)
	} else {
		pageLog.WithError(docErr).Debug("Stored page but could not parse its HTML")
		title = fallbackTitle(res.FinalURL)
	}

	s.appendRecord(models.PageRecord{
		URL:       current,
		LocalPath: localPath,
		Title:     title,
		Status:    models.PageStatusSuccess,
	})
	pageLog.WithFields(logrus.Fields{"local_path": localPath, "links": len(links)}).Info("Page downloaded")
	c.publish("Downloaded %s -> %s", current, localPath)
	return links
}

// writeOutputs runs the offline rewrite over every stored page with the
// final URL map, then renders the index page and the JSON report.
func (c *Crawler) writeOutputs(s *Session, runLog *logrus.Entry, urlMap map[string]string) error {
	discovered, records := s.snapshot()

	for _, rec := range records {
		if rec.Status != models.PageStatusSuccess {
			continue
		}
		raw, err := c.store.Get(rec.LocalPath)
		if err != nil {
			return fmt.Errorf("reloading %s for rewrite: %w", rec.LocalPath, err)
		}
		pageURL, err := url.ParseRequestURI(rec.URL)
		if err != nil {
			continue
		}
		rewritten, err := rewrite.Rewrite(raw, urlMap, pageURL)
		if err != nil {
			runLog.WithField("local_path", rec.LocalPath).WithError(err).Warn("Rewrite skipped for page")
			continue
		}
		if err := c.store.Put(rec.LocalPath, rewritten); err != nil {
			return fmt.Errorf("writing rewritten %s: %w", rec.LocalPath, err)
		}
	}

	indexHTML, err := index.Build(s.SeedURL, records)
	if err != nil {
		return err
	}
	if err := c.store.Put("index.html", indexHTML); err != nil {
		return err
	}

	rep := report.Build(discovered, records)
	if err := report.Write(c.store, rep); err != nil {
		return err
	}
	runLog.WithFields(logrus.Fields{
		"pages":  len(records),
		"output": "index.html, report.json",
	}).Info("Outputs written")
	return nil
}

func (c *Crawler) archiveSession(s *Session, runLog *logrus.Entry) {
	if c.archive == nil {
		return
	}
	discovered, records := s.snapshot()
	entry := storage.ArchiveEntry{
		SessionID:  s.ID,
		SeedURL:    s.SeedURL,
		State:      s.State().String(),
		FinishedAt: time.Now(),
		Report:     report.Build(discovered, records),
	}
	if err := c.archive.SaveReport(entry); err != nil {
		runLog.WithError(err).Warn("Could not archive session")
	}
}

// extractTitle prefers <title>, then the first <h1>, then the URL.
func extractTitle(doc *goquery.Document, pageURL *url.URL) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return fallbackTitle(pageURL)
}

func fallbackTitle(pageURL *url.URL) string {
	if pageURL == nil {
		return ""
	}
	trimmed := strings.Trim(pageURL.Path, "/")
	if trimmed == "" {
		return pageURL.Host
	}
	segments := strings.Split(trimmed, "/")
	return segments[len(segments)-1]
}

// sameDomainLinks collects normalized anchor targets on the seed's
// host. Fragments and non-navigational schemes are ignored.
func sameDomainLinks(doc *goquery.Document, base *url.URL, seedURL *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Host, seedURL.Host) {
			return
		}
		links = append(links, parse.NormalizeURL(abs))
	})
	return links
}
