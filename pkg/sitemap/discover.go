package sitemap

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"site-scraper/pkg/fetch"
)

// commonSitemapPaths are probed in order when robots.txt yields nothing.
var commonSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/sitemap_1.xml",
}

// Discoverer locates sitemap URLs for a domain. It tries robots.txt
// first, then well-known paths, then sitemap links in the root HTML.
// Each source short-circuits the ones after it.
type Discoverer struct {
	fetcher fetch.Fetcher
	log     *logrus.Entry
}

func NewDiscoverer(fetcher fetch.Fetcher, log *logrus.Entry) *Discoverer {
	return &Discoverer{fetcher: fetcher, log: log}
}

// Discover returns candidate sitemap URLs for the domain root, deduped
// in first-seen order. Discovery never fails: if every source comes up
// empty the result is an empty slice.
func (d *Discoverer) Discover(ctx context.Context, domainRoot string) []string {
	root, err := url.Parse(domainRoot)
	if err != nil {
		d.log.WithField("url", domainRoot).WithError(err).Warn("Unparseable domain root, skipping discovery")
		return nil
	}

	if found := d.fromRobots(ctx, root); len(found) > 0 {
		d.log.WithFields(logrus.Fields{"source": "robots.txt", "count": len(found)}).Info("Sitemaps discovered")
		return dedupe(found)
	}
	if found := d.fromCommonPaths(ctx, root); len(found) > 0 {
		d.log.WithFields(logrus.Fields{"source": "common_paths", "count": len(found)}).Info("Sitemaps discovered")
		return dedupe(found)
	}
	if found := d.fromHomepage(ctx, root); len(found) > 0 {
		d.log.WithFields(logrus.Fields{"source": "homepage", "count": len(found)}).Info("Sitemaps discovered")
		return dedupe(found)
	}

	d.log.WithField("domain", root.Host).Warn("No sitemaps found by any discovery source")
	return nil
}

func (d *Discoverer) fromRobots(ctx context.Context, root *url.URL) []string {
	robotsURL := root.Scheme + "://" + root.Host + "/robots.txt"
	res, err := d.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		d.log.WithField("url", robotsURL).WithError(err).Debug("robots.txt unavailable")
		return nil
	}

	robots, err := robotstxt.FromBytes(res.Body)
	if err != nil {
		d.log.WithField("url", robotsURL).WithError(err).Debug("robots.txt unparseable")
		return nil
	}
	return robots.Sitemaps
}

func (d *Discoverer) fromCommonPaths(ctx context.Context, root *url.URL) []string {
	var found []string
	for _, path := range commonSitemapPaths {
		candidate := root.Scheme + "://" + root.Host + path
		res, err := d.fetcher.Fetch(ctx, candidate)
		if err != nil {
			continue
		}
		if looksLikeXML(res) {
			found = append(found, candidate)
		}
	}
	return found
}

func (d *Discoverer) fromHomepage(ctx context.Context, root *url.URL) []string {
	res, err := d.fetcher.Fetch(ctx, root.String())
	if err != nil {
		d.log.WithField("url", root.String()).WithError(err).Debug("Homepage fetch failed during discovery")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil
	}

	var found []string
	doc.Find("link[rel='sitemap']").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			if abs := absolutize(root, href); abs != "" {
				found = append(found, abs)
			}
		}
	})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		if strings.Contains(lower, "sitemap") && strings.HasSuffix(lower, ".xml") {
			if abs := absolutize(root, href); abs != "" {
				found = append(found, abs)
			}
		}
	})
	return found
}

func looksLikeXML(res *fetch.Result) bool {
	if strings.Contains(strings.ToLower(res.ContentType), "xml") {
		return true
	}
	head := bytes.TrimSpace(res.Body)
	for _, prefix := range [][]byte{[]byte("<?xml"), []byte("<urlset"), []byte("<sitemapindex")} {
		if bytes.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

func absolutize(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
