package extractor

import (
	"bytes"

	"github.com/go-pkgz/lgr"
	"github.com/mmcdole/gofeed"

	"github.com/heshaofu2/superviseInfo/pkg/crawler"
	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

func init() {
	Register("rss", func() crawler.Extractor { return &RSS{parser: gofeed.NewParser()} })
}

// RSS handles sources that publish their listings as an RSS or Atom feed
// instead of an HTML page. Feeds carry the full result set in one response,
// so there is no pagination.
type RSS struct {
	parser *gofeed.Parser
}

// Name returns the registered type name
func (e *RSS) Name() string { return "rss" }

// BaseURL is empty: relative links are resolved against the feed URL itself
func (e *RSS) BaseURL() string { return "" }

// Extract parses the page body as a feed and returns one record per entry,
// deduplicated by (title, url)
func (e *RSS) Extract(page *crawler.Page) []domain.Record {
	feed, err := e.parser.Parse(bytes.NewReader(page.Body))
	if err != nil {
		lgr.Printf("[WARN] parse feed %s: %v", page.URL, err)
		return nil
	}

	results := make([]domain.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanTitle(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		results = append(results, domain.Record{Title: title, URL: normalizeURL(page.URL, item.Link)})
	}
	return dedupe(results)
}

// NextPageURL always signals the end of pagination
func (e *RSS) NextPageURL(string, int) string { return "" }
