// Package crawler implements the pagination-driven crawl loop: it fetches a
// listing page, hands it to a source-specific extractor and follows next-page
// addresses until the page budget or the result set runs out.
package crawler

import (
	"context"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

// Extractor turns a fetched page into records and knows the pagination
// scheme of its source. Implementations live in the extractor package and
// are selected through its registry.
type Extractor interface {
	// Name returns the registered type name of the extractor
	Name() string
	// BaseURL returns the site root relative hrefs are resolved against
	BaseURL() string
	// Extract returns records in document order, deduplicated within the
	// page by (title, url)
	Extract(page *Page) []domain.Record
	// NextPageURL builds the address of page pageNum (1-based past the
	// start page) from the original start address. Empty string means the
	// source has no further pages.
	NextPageURL(baseURL string, pageNum int) string
}

// Fetcher retrieves and parses a single listing page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Crawler drives Fetcher and Extractor across the pages of one source
type Crawler struct {
	fetcher   Fetcher
	extractor Extractor
	pageDelay time.Duration
}

// New creates a crawler. pageDelay is the politeness pause inserted between
// successful page fetches.
func New(fetcher Fetcher, extractor Extractor, pageDelay time.Duration) *Crawler {
	return &Crawler{fetcher: fetcher, extractor: extractor, pageDelay: pageDelay}
}

// Crawl collects records from startURL and up to maxPages-1 follow-up pages.
// Pagination stops at the first of: no next-page address, a failed fetch, or
// a page yielding zero records. A failed fetch of the start page yields an
// empty result. Record order preserves page order and within-page order; no
// cross-page deduplication happens here.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxPages int) []domain.Record {
	lgr.Printf("[INFO] start crawling: %s", startURL)

	page, err := c.fetcher.Fetch(ctx, startURL)
	if err != nil {
		return nil
	}
	results := c.extractor.Extract(page)

	for pageNum := 1; pageNum < maxPages; pageNum++ {
		nextURL := c.extractor.NextPageURL(startURL, pageNum)
		if nextURL == "" {
			break
		}

		lgr.Printf("[INFO] fetching page %d", pageNum+1)
		page, err = c.fetcher.Fetch(ctx, nextURL)
		if err != nil {
			break
		}

		pageResults := c.extractor.Extract(page)
		if len(pageResults) == 0 {
			break
		}
		results = append(results, pageResults...)

		// politeness pause between page fetches
		time.Sleep(c.pageDelay)
	}

	lgr.Printf("[INFO] crawled %d records from %s", len(results), startURL)
	return results
}
