package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Preview(t *testing.T) {
	noticeHTML := `<!DOCTYPE html>
<html>
<head><title>公告详情</title></head>
<body>
	<article>
		<h1>关于降低天然气价格的通知</h1>
		<p>为贯彻落实国家关于降低企业用能成本的决策部署, 经研究决定, 自发文之日起调整全省非居民用管道天然气销售价格。</p>
		<p>各市州价格主管部门要加强市场价格监测, 督促燃气企业严格执行价格政策, 确保降价红利及时足额传导到终端用户。</p>
		<p>执行中遇到的问题, 请及时向省发展改革委反映。</p>
	</article>
</body>
</html>`

	t.Run("successful preview", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(noticeHTML))
		}))
		defer server.Close()

		e := NewExtractor(10*time.Second, "test-agent", 10, 1000)
		preview, err := e.Preview(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Contains(t, preview, "管道天然气销售价格")
	})

	t.Run("preview truncated to limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(noticeHTML))
		}))
		defer server.Close()

		e := NewExtractor(10*time.Second, "test-agent", 10, 20)
		preview, err := e.Preview(context.Background(), server.URL)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(preview, "..."), preview)
		assert.LessOrEqual(t, len([]rune(preview)), 23)
	})

	t.Run("text below minimum rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><p>太短</p></body></html>`))
		}))
		defer server.Close()

		e := NewExtractor(10*time.Second, "test-agent", 10000, 200)
		_, err := e.Preview(context.Background(), server.URL)
		require.Error(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		e := NewExtractor(10*time.Second, "test-agent", 10, 200)
		_, err := e.Preview(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code 500")
	})

	t.Run("invalid url", func(t *testing.T) {
		e := NewExtractor(10*time.Second, "test-agent", 10, 200)
		_, err := e.Preview(context.Background(), "not-a-url")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid URL")
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"shorter than limit", "短文本", 10, "短文本"},
		{"exactly at limit", "五个字文本", 5, "五个字文本"},
		{"over limit", "超过限制长度的文本", 4, "超过限制..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.text, tt.limit))
		})
	}
}
