// Package rewrite adjusts anchors in downloaded HTML so that pages
// saved to disk link to each other instead of back to the live site.
package rewrite

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"site-scraper/pkg/parse"
	"site-scraper/pkg/utils"
)

// Rewrite returns a copy of the document with every <a href> pointed at
// its offline destination. urlMap keys are normalized page URLs and the
// values are store-relative paths such as "pages/about.html".
//
// The pass is idempotent: hrefs that already carry a mapped local path
// are left alone, so running it twice over the same map changes nothing.
func Rewrite(html []byte, urlMap map[string]string, pageURL *url.URL) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing document for rewrite: %v", utils.ErrParsing, err)
	}

	localPaths := make(map[string]struct{}, len(urlMap))
	for _, path := range urlMap {
		localPaths[path] = struct{}{}
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if skippable(href) {
			return
		}
		if _, done := localPaths[href]; done {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		norm := parse.NormalizeURL(abs)

		if local, ok := urlMap[norm]; ok {
			sel.SetAttr("href", local)
			return
		}

		// Not downloaded: keep it reachable as an absolute URL.
		sel.SetAttr("href", abs.String())
		if !strings.EqualFold(abs.Host, pageURL.Host) {
			sel.SetAttr("target", "_blank")
			sel.SetAttr("rel", "noopener noreferrer")
		}
	})

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("%w: serializing rewritten document: %v", utils.ErrParsing, err)
	}
	return []byte(out), nil
}

// skippable reports hrefs that should never be rewritten: in-page
// fragments and non-navigational schemes.
func skippable(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
