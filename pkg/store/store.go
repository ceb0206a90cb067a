// Package store persists per-source record sets as JSON files, computes the
// new-vs-existing diff on each save and keeps a bounded history of
// discoveries. One data file and one sibling history file per source; the
// file name derives from the source display name, or an url hash when the
// name is missing.
package store

import (
	"crypto/md5" //nolint:gosec // md5 keys legacy data files, no security use
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

// historyLimit caps the per-source history log; the oldest entries are
// evicted first
const historyLimit = 50

// RecordSet is the persisted per-source data file
type RecordSet struct {
	URL         string          `json:"url"`
	SourceKey   string          `json:"source_key,omitempty"`
	SourceName  string          `json:"source_name,omitempty"`
	LastUpdated string          `json:"last_updated,omitempty"`
	TotalCount  int             `json:"total_count"`
	Items       []domain.Record `json:"items"`
}

// HistoryEntry is one element of the persisted per-source history log,
// recording the new items of a single save
type HistoryEntry struct {
	Timestamp     string          `json:"timestamp"`
	SourceKey     string          `json:"source_key,omitempty"`
	SourceName    string          `json:"source_name,omitempty"`
	NewItemsCount int             `json:"new_items_count"`
	NewItems      []domain.Record `json:"new_items"`
}

// Store is a file-backed append-only record store. Access is
// read-modify-write without locking: concurrent saves against the same
// source lose updates (last writer wins), an accepted constraint of a
// single-process batch tool.
type Store struct {
	dataDir string
}

// New creates a store rooted at dataDir, creating the directory if needed
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// file names keep word characters, CJK characters and dashes; everything
// else becomes an underscore
var unsafeNameChars = regexp.MustCompile(`[^\w\x{4e00}-\x{9fff}-]`)

// fileName derives the per-source file identity: the sanitized display name
// when present, otherwise an md5 hash of the source url. Two sources sharing
// a display name collide onto the same file, a known constraint.
func fileName(sourceURL, sourceName string) string {
	if sourceName != "" {
		return unsafeNameChars.ReplaceAllString(sourceName, "_")
	}
	sum := md5.Sum([]byte(sourceURL)) //nolint:gosec // file identity, not security
	return hex.EncodeToString(sum[:])
}

func (s *Store) dataFile(sourceURL, sourceName string) string {
	return filepath.Join(s.dataDir, fileName(sourceURL, sourceName)+".json")
}

func (s *Store) historyFile(sourceURL, sourceName string) string {
	return filepath.Join(s.dataDir, fileName(sourceURL, sourceName)+"_history.json")
}

// Load reads the persisted record set for a source. A missing file yields an
// empty set; a corrupt file is logged and treated as empty, resetting dedup
// state rather than failing the run.
func (s *Store) Load(sourceURL, sourceName string) RecordSet {
	path := s.dataFile(sourceURL, sourceName)
	data, err := os.ReadFile(path) //nolint:gosec // path derives from configured source
	if err != nil {
		if !os.IsNotExist(err) {
			lgr.Printf("[ERROR] read data file %s: %v", path, err)
		}
		return RecordSet{}
	}

	var rs RecordSet
	if err := json.Unmarshal(data, &rs); err != nil {
		lgr.Printf("[ERROR] decode data file %s: %v", path, err)
		return RecordSet{}
	}
	return rs
}

// Save computes the diff of records against the stored set, appends the new
// records and persists the updated set. New records are those whose url is
// not stored yet, in input order, first occurrence winning on input repeats.
// A record stored earlier keeps its original title even when the input
// carries the same url with a different one. Returns all stored records and
// the new ones.
func (s *Store) Save(sourceURL string, records []domain.Record, sourceKey, sourceName string) (all, newItems []domain.Record, err error) {
	existing := s.Load(sourceURL, sourceName)

	seen := make(map[string]struct{}, len(existing.Items))
	for _, item := range existing.Items {
		seen[item.URL] = struct{}{}
	}

	now := time.Now()
	discovered := now
	for _, r := range records {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		r.DiscoveredAt = &discovered
		newItems = append(newItems, r)
	}

	all = make([]domain.Record, 0, len(existing.Items)+len(newItems))
	all = append(all, existing.Items...)
	all = append(all, newItems...)

	updated := RecordSet{
		URL:         sourceURL,
		SourceKey:   sourceKey,
		SourceName:  sourceName,
		LastUpdated: now.Format(time.RFC3339),
		TotalCount:  len(all),
		Items:       all,
	}

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal record set: %w", err)
	}
	// whole-file rewrite in place; a crash mid-write can corrupt the file
	path := s.dataFile(sourceURL, sourceName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, nil, fmt.Errorf("write data file %s: %w", path, err)
	}

	if err := s.appendHistory(sourceURL, newItems, sourceKey, sourceName, now); err != nil {
		return nil, nil, err
	}

	lgr.Printf("[INFO] saved %s: %d total, %d new", fileName(sourceURL, sourceName), len(all), len(newItems))
	return all, newItems, nil
}

// appendHistory records a save's new items. A save without new items leaves
// the history file untouched.
func (s *Store) appendHistory(sourceURL string, newItems []domain.Record, sourceKey, sourceName string, now time.Time) error {
	if len(newItems) == 0 {
		return nil
	}

	path := s.historyFile(sourceURL, sourceName)
	history := loadHistoryFile(path)

	history = append(history, HistoryEntry{
		Timestamp:     now.Format(time.RFC3339),
		SourceKey:     sourceKey,
		SourceName:    sourceName,
		NewItemsCount: len(newItems),
		NewItems:      newItems,
	})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write history file %s: %w", path, err)
	}
	return nil
}

// LoadHistory reads the history log for a source, newest entry last. Missing
// or corrupt files yield an empty log.
func (s *Store) LoadHistory(sourceURL, sourceName string) []HistoryEntry {
	return loadHistoryFile(s.historyFile(sourceURL, sourceName))
}

func loadHistoryFile(path string) []HistoryEntry {
	data, err := os.ReadFile(path) //nolint:gosec // path derives from configured source
	if err != nil {
		if !os.IsNotExist(err) {
			lgr.Printf("[ERROR] read history file %s: %v", path, err)
		}
		return nil
	}

	var history []HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		lgr.Printf("[ERROR] decode history file %s: %v", path, err)
		return nil
	}
	return history
}

// GetSummary reports the stored state of one source
func (s *Store) GetSummary(sourceURL, sourceName string) domain.Summary {
	rs := s.Load(sourceURL, sourceName)
	history := s.LoadHistory(sourceURL, sourceName)

	summary := domain.Summary{
		URL:            sourceURL,
		SourceKey:      rs.SourceKey,
		SourceName:     rs.SourceName,
		TotalItems:     rs.TotalCount,
		LastUpdated:    rs.LastUpdated,
		HistoryEntries: len(history),
	}
	if summary.LastUpdated == "" {
		summary.LastUpdated = "Never"
	}
	if len(history) > 0 {
		summary.LatestNewItems = history[len(history)-1].NewItemsCount
	}
	return summary
}

// GetAllSummaries scans the data directory and reports one summary per data
// file, in directory listing order. Unreadable files are logged and skipped.
func (s *Store) GetAllSummaries() []domain.Summary {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		lgr.Printf("[ERROR] read data dir %s: %v", s.dataDir, err)
		return nil
	}

	var summaries []domain.Summary
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, "_history.json") {
			continue
		}

		path := filepath.Join(s.dataDir, name)
		data, err := os.ReadFile(path) //nolint:gosec // scanning own data dir
		if err != nil {
			lgr.Printf("[ERROR] read file %s: %v", name, err)
			continue
		}
		var rs RecordSet
		if err := json.Unmarshal(data, &rs); err != nil {
			lgr.Printf("[ERROR] decode file %s: %v", name, err)
			continue
		}

		history := loadHistoryFile(filepath.Join(s.dataDir, strings.TrimSuffix(name, ".json")+"_history.json"))

		summary := domain.Summary{
			URL:            rs.URL,
			SourceKey:      rs.SourceKey,
			SourceName:     rs.SourceName,
			TotalItems:     rs.TotalCount,
			LastUpdated:    rs.LastUpdated,
			HistoryEntries: len(history),
		}
		if summary.LastUpdated == "" {
			summary.LastUpdated = "Never"
		}
		if len(history) > 0 {
			summary.LatestNewItems = history[len(history)-1].NewItemsCount
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// ExportCSV writes all stored records of a source to a CSV file with a fixed
// three-column layout
func (s *Store) ExportCSV(sourceURL, sourceName, outputPath string) error {
	rs := s.Load(sourceURL, sourceName)

	f, err := os.Create(outputPath) //nolint:gosec // output path comes from CLI flag
	if err != nil {
		return fmt.Errorf("create export file %s: %w", outputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"标题(title)", "链接地址(url)", "发现时间(discovered_at)"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range rs.Items {
		discovered := ""
		if item.DiscoveredAt != nil {
			discovered = item.DiscoveredAt.Format(time.RFC3339)
		}
		if err := w.Write([]string{item.Title, item.URL, discovered}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	lgr.Printf("[INFO] exported %d records to %s", len(rs.Items), outputPath)
	return nil
}
