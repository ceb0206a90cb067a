package domain

import "time"

// NewItem is a newly discovered record, optionally enriched with a short
// body-text preview when content extraction is enabled.
type NewItem struct {
	Record
	Preview string `json:"preview,omitempty"`
}

// SourceResult describes the outcome of crawling a single source. Error is
// set when the source failed; a failed source never aborts the whole run.
type SourceResult struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	CrawlerType  string    `json:"crawler_type"`
	CrawledCount int       `json:"crawled_count"`
	NewCount     int       `json:"new_count"`
	TotalCount   int       `json:"total_count"`
	NewItems     []NewItem `json:"new_items,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// RunResult aggregates a full crawl run across all configured sources.
type RunResult struct {
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	TotalSources  int            `json:"total_sources"`
	TotalAllItems int            `json:"total_all_items"`
	TotalNewItems int            `json:"total_new_items"`
	Results       []SourceResult `json:"results"`
}
