// Package report renders a crawl run as a Markdown document: run totals
// followed by a section per source with its newly discovered items.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

// Generate renders the run result as Markdown
func Generate(res *domain.RunResult) string {
	var b strings.Builder

	b.WriteString("# 爬虫运行报告\n\n")
	fmt.Fprintf(&b, "**运行时间**: %s - %s\n",
		res.StartTime.Format("2006-01-02 15:04:05"), res.EndTime.Format("15:04:05"))
	fmt.Fprintf(&b, "**处理配置**: %d 个\n", res.TotalSources)
	fmt.Fprintf(&b, "**总计数据项**: %d\n", res.TotalAllItems)
	fmt.Fprintf(&b, "**本次新增**: %d\n\n", res.TotalNewItems)
	b.WriteString("---\n\n")

	for i, result := range res.Results {
		fmt.Fprintf(&b, "## %d. %s (%s)\n\n", i+1, result.Name, result.Key)
		fmt.Fprintf(&b, "- **URL**: %s\n", result.URL)
		fmt.Fprintf(&b, "- **爬虫类型**: %s\n", result.CrawlerType)
		fmt.Fprintf(&b, "- **爬取结果数**: %d\n", result.CrawledCount)
		fmt.Fprintf(&b, "- **新增数量**: %d\n", result.NewCount)
		fmt.Fprintf(&b, "- **总计数据项**: %d\n", result.TotalCount)
		if result.Error != "" {
			fmt.Fprintf(&b, "- **错误**: %s\n", result.Error)
		}
		b.WriteString("\n")

		if len(result.NewItems) > 0 {
			fmt.Fprintf(&b, "### 本次新增项目 (%d 项)\n\n", len(result.NewItems))
			for j, item := range result.NewItems {
				fmt.Fprintf(&b, "%d. [%s](%s)\n", j+1, item.Title, item.URL)
				if item.Preview != "" {
					fmt.Fprintf(&b, "   > %s\n", item.Preview)
				}
			}
			b.WriteString("\n")
		} else {
			b.WriteString("*本次运行未发现新项目*\n\n")
		}

		b.WriteString("---\n\n")
	}

	return b.String()
}

// Save writes the rendered report to outputDir as result_YYYYMMDD_HHMMSS.md,
// creating the directory if needed. Returns the report file path.
func Save(res *domain.RunResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir %s: %w", outputDir, err)
	}

	name := fmt.Sprintf("result_%s.md", time.Now().Format("20060102_150405"))
	path := filepath.Join(outputDir, name)

	if err := os.WriteFile(path, []byte(Generate(res)), 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	lgr.Printf("[INFO] report saved: %s", path)
	return path, nil
}
