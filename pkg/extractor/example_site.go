package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/crawler"
	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

func init() {
	Register("example_site", func() crawler.Extractor { return &ExampleSite{} })
}

// ExampleSite is a template extractor showing how to support another site:
// common result-container selectors, a looser validity predicate and the
// usual page-parameter pagination variants. Copy it, adjust the selectors
// and the predicate, and register the new type.
type ExampleSite struct{}

// Name returns the registered type name
func (e *ExampleSite) Name() string { return "example_site" }

// BaseURL returns the site root for resolving relative hrefs
func (e *ExampleSite) BaseURL() string { return "https://example.gov.cn" }

// Extract returns title/url records in document order, deduplicated within
// the page by (title, url)
func (e *ExampleSite) Extract(page *crawler.Page) []domain.Record {
	var results []domain.Record

	containers := page.Doc.Find(".result-item, .search-result, .content-item")
	if containers.Length() > 0 {
		lgr.Printf("[DEBUG] found %d result containers", containers.Length())
	}
	containers.Each(func(_ int, container *goquery.Selection) {
		link := container.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href := link.AttrOr("href", "")
		title := link.AttrOr("title", "")
		if title == "" {
			title = link.Text()
		}
		title = cleanTitle(title)
		if !e.isValidResult(title, href) {
			return
		}
		results = append(results, domain.Record{Title: title, URL: normalizeURL(e.BaseURL(), href)})
	})

	// generic link scan when no known container matched
	if len(results) == 0 {
		lgr.Printf("[DEBUG] no result containers, scanning all links")
		page.Doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href := link.AttrOr("href", "")
			title := link.AttrOr("title", "")
			if title == "" {
				title = cleanTitle(link.Text())
			}
			if !e.isValidResult(title, href) {
				return
			}
			results = append(results, domain.Record{Title: title, URL: normalizeURL(e.BaseURL(), href)})
		})
	}

	unique := dedupe(results)
	lgr.Printf("[DEBUG] extracted %d unique records", len(unique))
	return unique
}

var exampleNavTitles = []string{"首页", "返回", "上一页", "下一页", "更多", "导航"}

// isValidResult accepts links that look like content pages
func (e *ExampleSite) isValidResult(title, href string) bool {
	if title == "" || utf8.RuneCountInString(title) < 5 {
		return false
	}

	lowered := strings.ToLower(href)
	if containsAny(lowered, []string{"javascript", "#", "mailto"}) {
		return false
	}
	if containsAny(title, exampleNavTitles) {
		return false
	}

	return containsAny(href, []string{"/article/", "/news/", "/detail/", ".html"})
}

var (
	pageParamRe  = regexp.MustCompile(`page=\d+`)
	shortParamRe = regexp.MustCompile(`p=\d+`)
)

// NextPageURL builds the next page address, handling the page= and p=
// parameter conventions and appending page= when neither is present
func (e *ExampleSite) NextPageURL(baseURL string, pageNum int) string {
	switch {
	case strings.Contains(baseURL, "page="):
		return pageParamRe.ReplaceAllString(baseURL, fmt.Sprintf("page=%d", pageNum))
	case strings.Contains(baseURL, "p="):
		return shortParamRe.ReplaceAllString(baseURL, fmt.Sprintf("p=%d", pageNum))
	default:
		separator := "?"
		if strings.Contains(baseURL, "?") {
			separator = "&"
		}
		return fmt.Sprintf("%s%spage=%d", baseURL, separator, pageNum)
	}
}
