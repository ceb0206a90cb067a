package domain

// Source is one configured listing page to crawl repeatedly over time.
// Key is the stable config identifier; Name keys the store files, so two
// sources sharing a display name share a data file.
type Source struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	CrawlerType string `json:"crawler_type"`
}
