package domain

import "time"

// Record is a single discovered notice: a title and the absolute URL of its
// content page. The URL is the identity for dedup purposes, compared
// case-sensitive and exactly as fetched. DiscoveredAt is stamped by the store
// when the record is first persisted.
type Record struct {
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	DiscoveredAt *time.Time `json:"discovered_at,omitempty"`
}
