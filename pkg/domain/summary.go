package domain

// Summary is a per-source snapshot of the persisted state. LastUpdated keeps
// the stored ISO-8601 string, or "Never" when the source has no data file.
type Summary struct {
	URL            string `json:"url"`
	SourceKey      string `json:"source_key,omitempty"`
	SourceName     string `json:"source_name,omitempty"`
	TotalItems     int    `json:"total_items"`
	LastUpdated    string `json:"last_updated"`
	HistoryEntries int    `json:"history_entries"`
	LatestNewItems int    `json:"latest_new_items"`
}
