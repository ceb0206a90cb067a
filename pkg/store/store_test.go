package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name       string
		sourceURL  string
		sourceName string
		want       string
	}{
		{"chinese name", "https://fgw.sc.gov.cn", "四川发改委", "四川发改委"},
		{"mixed name sanitized", "https://fgw.sc.gov.cn", "测试 数据源/v1", "测试_数据源_v1"},
		{"dash and underscore kept", "https://x", "gas-prices_2024", "gas-prices_2024"},
		{"empty name falls back to url hash", "https://fgw.sc.gov.cn/search", "", "fb1a16946996c607bd0a46fadc80b16b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileName(tt.sourceURL, tt.sourceName))
		})
	}
}

func TestStore_Save(t *testing.T) {
	const (
		srcURL  = "https://fgw.sc.gov.cn/search"
		srcKey  = "sichuan_fgw"
		srcName = "四川发改委"
	)

	newStore := func(t *testing.T) *Store {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		return s
	}

	t.Run("first save stores everything as new", func(t *testing.T) {
		s := newStore(t)
		records := []domain.Record{
			{Title: "甲", URL: "https://x/1"},
			{Title: "乙", URL: "https://x/2"},
		}

		all, newItems, err := s.Save(srcURL, records, srcKey, srcName)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		require.Len(t, newItems, 2)
		assert.Equal(t, "甲", newItems[0].Title)
		require.NotNil(t, newItems[0].DiscoveredAt)

		rs := s.Load(srcURL, srcName)
		assert.Equal(t, srcURL, rs.URL)
		assert.Equal(t, srcKey, rs.SourceKey)
		assert.Equal(t, srcName, rs.SourceName)
		assert.Equal(t, 2, rs.TotalCount)
		assert.NotEmpty(t, rs.LastUpdated)
	})

	t.Run("identical save is idempotent", func(t *testing.T) {
		s := newStore(t)
		records := []domain.Record{{Title: "甲", URL: "https://x/1"}}

		_, _, err := s.Save(srcURL, records, srcKey, srcName)
		require.NoError(t, err)

		all, newItems, err := s.Save(srcURL, records, srcKey, srcName)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Empty(t, newItems)
	})

	t.Run("superset save appends only the new urls", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)

		all, newItems, err := s.Save(srcURL, []domain.Record{
			{Title: "甲", URL: "https://x/1"},
			{Title: "乙", URL: "https://x/2"},
			{Title: "丙", URL: "https://x/3"},
		}, srcKey, srcName)
		require.NoError(t, err)

		require.Len(t, newItems, 2)
		assert.Equal(t, "https://x/2", newItems[0].URL)
		assert.Equal(t, "https://x/3", newItems[1].URL)
		// stored order: existing first, new appended after
		require.Len(t, all, 3)
		assert.Equal(t, "https://x/1", all[0].URL)
		assert.Equal(t, "https://x/3", all[2].URL)
	})

	t.Run("stored title wins over a changed input title", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Save(srcURL, []domain.Record{{Title: "原标题", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)

		all, newItems, err := s.Save(srcURL, []domain.Record{{Title: "改写后的标题", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)
		assert.Empty(t, newItems)
		require.Len(t, all, 1)
		assert.Equal(t, "原标题", all[0].Title)
	})

	t.Run("repeated url within one input counted once", func(t *testing.T) {
		s := newStore(t)
		all, newItems, err := s.Save(srcURL, []domain.Record{
			{Title: "第一次", URL: "https://x/1"},
			{Title: "第二次", URL: "https://x/1"},
		}, srcKey, srcName)
		require.NoError(t, err)

		require.Len(t, newItems, 1)
		assert.Equal(t, "第一次", newItems[0].Title)
		assert.Len(t, all, 1)
	})

	t.Run("empty input leaves stored records unchanged", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)

		all, newItems, err := s.Save(srcURL, nil, srcKey, srcName)
		require.NoError(t, err)
		assert.Empty(t, newItems)
		require.Len(t, all, 1)
		assert.Equal(t, "甲", all[0].Title)
	})

	t.Run("corrupt data file degrades to empty set", func(t *testing.T) {
		s := newStore(t)
		path := s.dataFile(srcURL, srcName)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		rs := s.Load(srcURL, srcName)
		assert.Empty(t, rs.Items)

		_, newItems, err := s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)
		assert.Len(t, newItems, 1)
	})

	t.Run("data file is valid indented json", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)

		data, err := os.ReadFile(s.dataFile(srcURL, srcName))
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  \"url\"")
		assert.Contains(t, string(data), "\"total_count\": 1")
	})
}

func TestStore_History(t *testing.T) {
	const (
		srcURL  = "https://fgw.sc.gov.cn/search"
		srcKey  = "sichuan_fgw"
		srcName = "四川发改委"
	)

	t.Run("new items append an entry", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		_, _, err = s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)

		history := s.LoadHistory(srcURL, srcName)
		require.Len(t, history, 1)
		assert.Equal(t, 1, history[0].NewItemsCount)
		assert.Equal(t, srcKey, history[0].SourceKey)
		require.Len(t, history[0].NewItems, 1)
		assert.Equal(t, "甲", history[0].NewItems[0].Title)
	})

	t.Run("save without new items leaves history untouched", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		records := []domain.Record{{Title: "甲", URL: "https://x/1"}}
		_, _, err = s.Save(srcURL, records, srcKey, srcName)
		require.NoError(t, err)
		_, _, err = s.Save(srcURL, records, srcKey, srcName)
		require.NoError(t, err)

		assert.Len(t, s.LoadHistory(srcURL, srcName), 1)
	})

	t.Run("history capped at fifty entries", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		for i := 0; i < 55; i++ {
			url := fmt.Sprintf("https://x/%d", i)
			_, _, err = s.Save(srcURL, []domain.Record{{Title: fmt.Sprintf("公告%d", i), URL: url}}, srcKey, srcName)
			require.NoError(t, err)
		}

		history := s.LoadHistory(srcURL, srcName)
		require.Len(t, history, 50)
		// oldest five entries evicted
		assert.Equal(t, "公告5", history[0].NewItems[0].Title)
		assert.Equal(t, "公告54", history[49].NewItems[0].Title)
	})

	t.Run("missing history file yields empty log", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, s.LoadHistory(srcURL, srcName))
	})
}

func TestStore_Summaries(t *testing.T) {
	const (
		srcURL  = "https://fgw.sc.gov.cn/search"
		srcKey  = "sichuan_fgw"
		srcName = "四川发改委"
	)

	t.Run("summary for unknown source", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		summary := s.GetSummary(srcURL, srcName)
		assert.Equal(t, srcURL, summary.URL)
		assert.Equal(t, "Never", summary.LastUpdated)
		assert.Zero(t, summary.TotalItems)
		assert.Zero(t, summary.HistoryEntries)
	})

	t.Run("summary after saves", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		_, _, err = s.Save(srcURL, []domain.Record{{Title: "甲", URL: "https://x/1"}}, srcKey, srcName)
		require.NoError(t, err)
		_, _, err = s.Save(srcURL, []domain.Record{
			{Title: "甲", URL: "https://x/1"},
			{Title: "乙", URL: "https://x/2"},
			{Title: "丙", URL: "https://x/3"},
		}, srcKey, srcName)
		require.NoError(t, err)

		summary := s.GetSummary(srcURL, srcName)
		assert.Equal(t, srcKey, summary.SourceKey)
		assert.Equal(t, srcName, summary.SourceName)
		assert.Equal(t, 3, summary.TotalItems)
		assert.Equal(t, 2, summary.HistoryEntries)
		assert.Equal(t, 2, summary.LatestNewItems)
		assert.NotEqual(t, "Never", summary.LastUpdated)
	})

	t.Run("all summaries skip history files", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)

		_, _, err = s.Save("https://a/search", []domain.Record{{Title: "甲", URL: "https://a/1"}}, "a", "来源甲")
		require.NoError(t, err)
		_, _, err = s.Save("https://b/search", []domain.Record{{Title: "乙", URL: "https://b/1"}}, "b", "来源乙")
		require.NoError(t, err)

		summaries := s.GetAllSummaries()
		require.Len(t, summaries, 2)
		for _, sm := range summaries {
			assert.Equal(t, 1, sm.TotalItems)
			assert.Equal(t, 1, sm.HistoryEntries)
			assert.Equal(t, 1, sm.LatestNewItems)
		}
	})

	t.Run("all summaries on empty dir", func(t *testing.T) {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, s.GetAllSummaries())
	})
}

func TestStore_ExportCSV(t *testing.T) {
	const (
		srcURL  = "https://fgw.sc.gov.cn/search"
		srcKey  = "sichuan_fgw"
		srcName = "四川发改委"
	)

	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Save(srcURL, []domain.Record{
		{Title: "标题一", URL: "https://x/1"},
		{Title: "标题, 含逗号", URL: "https://x/2"},
	}, srcKey, srcName)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, s.ExportCSV(srcURL, srcName, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"标题(title)", "链接地址(url)", "发现时间(discovered_at)"}, rows[0])
	assert.Equal(t, "标题一", rows[1][0])
	assert.Equal(t, "https://x/1", rows[1][1])
	assert.NotEmpty(t, rows[1][2])
	assert.Equal(t, "标题, 含逗号", rows[2][0])

	t.Run("empty source exports header only", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "empty.csv")
		require.NoError(t, s.ExportCSV("https://unknown/search", "未知来源", out))

		f, err := os.Open(out)
		require.NoError(t, err)
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})
}
