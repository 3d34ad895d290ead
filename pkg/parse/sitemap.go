package parse

import "encoding/xml"

// Sitemap documents come in two shapes sharing one schema: an index
// whose entries are further sitemaps, and a urlset whose entries are
// pages. The XMLName fields pin the expected root element, so
// unmarshalling a urlset body into XMLSitemapIndex fails; callers use
// that mismatch to classify a fetched document.

// XMLURL is one <url> entry in a urlset
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"` // Raw string, date layouts vary in the wild
}

// XMLURLSet is a <urlset> document: terminal page entries
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap is one <sitemap> entry in an index
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex is a <sitemapindex> document: child sitemap entries
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}
