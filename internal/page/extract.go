package page

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract parses HTML and builds the page snapshot for pageURL.
// Meta lookups match either the Open Graph property or the plain name
// attribute and take whichever tag appears first in the document, the same
// selection a querySelector against both attributes would make.
func Extract(pageURL string, r io.Reader) (Info, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Info{}, fmt.Errorf("parse page html: %w", err)
	}

	info := Info{
		URL:         pageURL,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		OGTitle:     metaContent(doc, "title"),
		Description: metaContent(doc, "description"),
	}

	if u, err := url.Parse(pageURL); err == nil {
		info.Pathname = u.Path
	}

	return info, nil
}

func metaContent(doc *goquery.Document, property string) string {
	selector := fmt.Sprintf("meta[property='og:%s'], meta[name='%s']", property, property)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
