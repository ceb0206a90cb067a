// Package extractor provides per-source listing page extraction strategies.
// Each implementation knows the HTML structure and the pagination convention
// of one site and registers itself under a type name; sources pick an
// implementation through the registry by that name.
package extractor

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

// titlePolicy strips any markup embedded in extracted titles
var titlePolicy = bluemonday.StrictPolicy()

// cleanTitle removes embedded HTML tags, unescapes entities and trims
// surrounding whitespace
func cleanTitle(title string) string {
	if title == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(titlePolicy.Sanitize(title)))
}

// normalizeURL resolves href against baseURL; already-absolute hrefs pass
// through unchanged
func normalizeURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// dedupe collapses identical (title, url) pairs, keeping the first occurrence
func dedupe(records []domain.Record) []domain.Record {
	type pair struct{ title, url string }
	seen := make(map[pair]struct{}, len(records))
	unique := make([]domain.Record, 0, len(records))
	for _, r := range records {
		id := pair{r.Title, r.URL}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}

// containsAny reports whether s contains any of the given substrings
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
