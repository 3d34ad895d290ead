package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-scraper/pkg/models"
)

func TestBuild_ListsDownloadedPages(t *testing.T) {
	records := []models.PageRecord{
		{URL: "https://example.com/b", LocalPath: "pages/b.html", Title: "Bravo", Status: models.PageStatusSuccess},
		{URL: "https://example.com/a", LocalPath: "pages/a.html", Title: "Alpha", Status: models.PageStatusSuccess},
		{URL: "https://example.com/broken", Status: models.PageStatusFailed, Error: "status 404"},
	}

	out, err := Build("https://example.com", records)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `href="pages/a.html"`)
	assert.Contains(t, html, `href="pages/b.html"`)
	assert.NotContains(t, html, "broken")
	assert.Contains(t, html, "2 pages")

	// Sorted by title
	assert.Less(t, strings.Index(html, "Alpha"), strings.Index(html, "Bravo"))
}

func TestBuild_UntitledPageFallsBackToURL(t *testing.T) {
	records := []models.PageRecord{
		{URL: "https://example.com/raw", LocalPath: "pages/raw.html", Status: models.PageStatusSuccess},
	}

	out, err := Build("https://example.com", records)
	require.NoError(t, err)
	assert.Contains(t, string(out), ">https://example.com/raw</a>")
}

func TestBuild_Empty(t *testing.T) {
	out, err := Build("https://example.com", nil)
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "No pages were downloaded")
	assert.Contains(t, html, "0 pages")
}

func TestBuild_EscapesTitles(t *testing.T) {
	records := []models.PageRecord{
		{URL: "https://example.com/x", LocalPath: "pages/x.html", Title: `<script>alert("x")</script>`, Status: models.PageStatusSuccess},
	}

	out, err := Build("https://example.com", records)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `<script>alert`)
}
