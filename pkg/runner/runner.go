// Package runner drives a full crawl run: for each enabled source it builds
// the extractor, crawls the listing pages and saves the results, isolating
// per-source failures and aggregating run totals.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/config"
	"github.com/heshaofu2/superviseInfo/pkg/crawler"
	"github.com/heshaofu2/superviseInfo/pkg/domain"
	"github.com/heshaofu2/superviseInfo/pkg/extractor"
)

// Storage persists crawl results and computes the new-item diff
type Storage interface {
	Save(sourceURL string, records []domain.Record, sourceKey, sourceName string) (all, newItems []domain.Record, err error)
	GetSummary(sourceURL, sourceName string) domain.Summary
	GetAllSummaries() []domain.Summary
}

// PreviewExtractor fetches a body-text preview for a discovered notice
type PreviewExtractor interface {
	Preview(ctx context.Context, pageURL string) (string, error)
}

// Runner iterates the configured sources strictly in configured order. The
// HTTP session is built once at construction and shared by all crawls.
type Runner struct {
	cfg      *config.Config
	store    Storage
	fetcher  crawler.Fetcher
	previews PreviewExtractor
}

// New creates a runner. previews may be nil to disable body-text previews
// for new items.
func New(cfg *config.Config, store Storage, previews PreviewExtractor) *Runner {
	session := crawler.SessionConfig{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.Timeout,
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		fetcher:  crawler.NewHTTPFetcher(session, cfg.Crawler.Retries, cfg.Crawler.RetryDelay),
		previews: previews,
	}
}

// Run processes all enabled sources and aggregates the results. An empty
// enabled-source list is an error; it performs no network or store activity.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	sources := r.cfg.EnabledSources()
	if len(sources) == 0 {
		lgr.Printf("[ERROR] no enabled sources configured")
		return nil, fmt.Errorf("no enabled sources configured")
	}

	result := &domain.RunResult{StartTime: time.Now(), TotalSources: len(sources)}
	lgr.Printf("[INFO] starting run with %d sources", len(sources))

	for i, src := range sources {
		lgr.Printf("[INFO] processing source %d/%d: [%s] %s", i+1, len(sources), src.Key, src.Name)
		srcResult := r.processSource(ctx, src)
		result.TotalAllItems += srcResult.TotalCount
		result.TotalNewItems += srcResult.NewCount
		result.Results = append(result.Results, srcResult)
	}

	result.EndTime = time.Now()
	lgr.Printf("[INFO] run complete: %d sources, %d total items, %d new",
		result.TotalSources, result.TotalAllItems, result.TotalNewItems)
	return result, nil
}

// processSource crawls and saves a single source. Failures, including panics
// from a buggy extractor, are captured in the result and never abort the
// processing of subsequent sources.
func (r *Runner) processSource(ctx context.Context, src domain.Source) (result domain.SourceResult) {
	result = domain.SourceResult{Key: src.Key, Name: src.Name, URL: src.URL, CrawlerType: src.CrawlerType}

	defer func() {
		if p := recover(); p != nil {
			lgr.Printf("[ERROR] source %s panicked: %v", src.Key, p)
			result.Error = fmt.Sprintf("panic: %v", p)
		}
	}()

	ext, err := extractor.New(src.CrawlerType)
	if err != nil {
		lgr.Printf("[ERROR] source %s: %v", src.Key, err)
		result.Error = err.Error()
		return result
	}

	records := crawler.New(r.fetcher, ext, r.cfg.Crawler.PageDelay).Crawl(ctx, src.URL, r.cfg.Crawler.MaxPages)
	result.CrawledCount = len(records)

	if len(records) == 0 {
		lgr.Printf("[WARN] source %s produced no results", src.Key)
		return result
	}

	all, newItems, err := r.store.Save(src.URL, records, src.Key, src.Name)
	if err != nil {
		lgr.Printf("[ERROR] save source %s: %v", src.Key, err)
		result.Error = err.Error()
		return result
	}

	result.TotalCount = len(all)
	result.NewCount = len(newItems)
	result.NewItems = r.enrich(ctx, newItems)

	if len(newItems) > 0 {
		lgr.Printf("[INFO] source %s discovered %d new items:", src.Key, len(newItems))
		for i, item := range newItems {
			if i == 5 {
				lgr.Printf("[INFO]   ... and %d more", len(newItems)-5)
				break
			}
			lgr.Printf("[INFO]   - %s", item.Title)
		}
	} else {
		lgr.Printf("[INFO] source %s: no new items", src.Key)
	}

	summary := r.store.GetSummary(src.URL, src.Name)
	lgr.Printf("[INFO] source %s: %d items total, last updated %s", src.Key, summary.TotalItems, summary.LastUpdated)
	return result
}

// enrich attaches body-text previews to newly discovered items when a
// preview extractor is configured. Extraction is sequential and best-effort:
// a failed preview leaves the item without one.
func (r *Runner) enrich(ctx context.Context, newItems []domain.Record) []domain.NewItem {
	items := make([]domain.NewItem, len(newItems))
	for i, rec := range newItems {
		items[i] = domain.NewItem{Record: rec}
		if r.previews == nil {
			continue
		}
		preview, err := r.previews.Preview(ctx, rec.URL)
		if err != nil {
			lgr.Printf("[WARN] no preview for %s: %v", rec.URL, err)
			continue
		}
		items[i].Preview = preview
	}
	return items
}
