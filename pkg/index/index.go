// Package index renders the searchable landing page that ties an
// offline mirror together.
package index

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"site-scraper/pkg/models"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Offline Mirror - {{.SeedURL}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 900px; margin: 0 auto; padding: 2rem; color: #1a1a2e; }
h1 { font-size: 1.5rem; }
.meta { color: #666; margin-bottom: 1.5rem; }
.search { width: 100%; padding: 0.6rem; font-size: 1rem; border: 1px solid #ccc; border-radius: 6px; box-sizing: border-box; margin-bottom: 1rem; }
ul.pages { list-style: none; padding: 0; }
ul.pages li { padding: 0.4rem 0; border-bottom: 1px solid #eee; }
ul.pages li a { text-decoration: none; color: #0f4c81; }
ul.pages li a:hover { text-decoration: underline; }
.url { display: block; font-size: 0.8rem; color: #999; }
.empty { color: #999; font-style: italic; }
</style>
</head>
<body>
<h1>Offline Mirror</h1>
<p class="meta">Source: <a href="{{.SeedURL}}">{{.SeedURL}}</a> &middot; {{.Count}} page{{if ne .Count 1}}s{{end}}</p>
<input type="text" id="search" class="search" placeholder="Filter pages by title or URL..." autocomplete="off">
<ul class="pages" id="pages">
{{range .Pages}}<li data-title="{{.TitleLower}}" data-url="{{.URLLower}}"><a href="{{.LocalPath}}">{{.Title}}</a><span class="url">{{.URL}}</span></li>
{{else}}<li class="empty">No pages were downloaded.</li>
{{end}}</ul>
<script>
document.getElementById('search').addEventListener('input', function () {
  var q = this.value.toLowerCase();
  document.querySelectorAll('#pages li').forEach(function (li) {
    var title = li.getAttribute('data-title') || '';
    var url = li.getAttribute('data-url') || '';
    li.style.display = (title.indexOf(q) !== -1 || url.indexOf(q) !== -1) ? '' : 'none';
  });
});
</script>
</body>
</html>
`

var tmpl = template.Must(template.New("index").Parse(pageTemplate))

type pageEntry struct {
	Title      string
	TitleLower string
	URL        string
	URLLower   string
	LocalPath  string
}

type pageData struct {
	SeedURL string
	Count   int
	Pages   []pageEntry
}

// Build renders the index for the successfully downloaded pages,
// sorted by title then URL. Failed records are omitted.
func Build(seedURL string, records []models.PageRecord) ([]byte, error) {
	var entries []pageEntry
	for _, rec := range records {
		if rec.Status != models.PageStatusSuccess {
			continue
		}
		title := rec.Title
		if title == "" {
			title = rec.URL
		}
		entries = append(entries, pageEntry{
			Title:      title,
			TitleLower: strings.ToLower(title),
			URL:        rec.URL,
			URLLower:   strings.ToLower(rec.URL),
			LocalPath:  rec.LocalPath,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TitleLower != entries[j].TitleLower {
			return entries[i].TitleLower < entries[j].TitleLower
		}
		return entries[i].URL < entries[j].URL
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{
		SeedURL: seedURL,
		Count:   len(entries),
		Pages:   entries,
	}); err != nil {
		return nil, fmt.Errorf("rendering index page: %w", err)
	}
	return buf.Bytes(), nil
}
