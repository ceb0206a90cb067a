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
	Register("sichuan_fgw", func() crawler.Extractor { return &SichuanFGW{} })
}

// SichuanFGW extracts notice listings from the Sichuan provincial development
// and reform commission site, fgw.sc.gov.cn. Search results live in
// .wordGuide containers with the title link under .bigTit; when the
// structural selector matches nothing the extractor falls back to a generic
// link scan filtered by a validity predicate.
type SichuanFGW struct{}

// Name returns the registered type name
func (e *SichuanFGW) Name() string { return "sichuan_fgw" }

// BaseURL returns the site root for resolving relative hrefs
func (e *SichuanFGW) BaseURL() string { return "https://fgw.sc.gov.cn" }

// Extract returns title/url records in document order, deduplicated within
// the page by (title, url)
func (e *SichuanFGW) Extract(page *crawler.Page) []domain.Record {
	var results []domain.Record

	items := page.Doc.Find(".wordGuide")
	if items.Length() > 0 {
		lgr.Printf("[DEBUG] found %d search result containers", items.Length())
	}
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find(".bigTit a").First()
		if link.Length() == 0 {
			return
		}
		href := link.AttrOr("href", "")
		title := link.AttrOr("title", "")
		if title == "" {
			title = link.Text()
		}
		title = cleanTitle(title)
		if title == "" || href == "" {
			return
		}
		results = append(results, domain.Record{Title: title, URL: normalizeURL(e.BaseURL(), href)})
	})

	// fall back to a broad link scan when no .wordGuide containers matched
	if len(results) == 0 {
		lgr.Printf("[DEBUG] no .wordGuide containers, scanning all links")
		page.Doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href := link.AttrOr("href", "")
			title := link.AttrOr("title", "")
			if title == "" {
				title = cleanTitle(link.Text())
			}
			if !e.isValidResultLink(title, href) {
				return
			}
			results = append(results, domain.Record{Title: title, URL: normalizeURL(e.BaseURL(), href)})
		})
	}

	unique := dedupe(results)
	lgr.Printf("[DEBUG] extracted %d unique records", len(unique))
	return unique
}

// navigation labels that never point at notice content
var sichuanNavTitles = []string{"首页", "返回", "上一页", "下一页", "更多", "导航", "搜索"}

// isValidResultLink filters the fallback link scan: long enough title, no
// navigation text, no javascript/anchor/mailto href, and an href that looks
// like a content page
func (e *SichuanFGW) isValidResultLink(title, href string) bool {
	if title == "" || utf8.RuneCountInString(title) < 10 {
		return false
	}

	lowered := strings.ToLower(href)
	if containsAny(lowered, []string{"javascript", "#", "mailto"}) {
		return false
	}
	if containsAny(title, sichuanNavTitles) {
		return false
	}

	return strings.Contains(href, ".shtml") || strings.Contains(href, "detail")
}

var pageNumRe = regexp.MustCompile(`pageNum=\d+`)

// NextPageURL builds the address of result page pageNum by replacing or
// appending the pageNum query parameter. The site paginates indefinitely, so
// the crawl loop terminates on an empty page instead.
func (e *SichuanFGW) NextPageURL(baseURL string, pageNum int) string {
	if strings.Contains(baseURL, "pageNum=") {
		return pageNumRe.ReplaceAllString(baseURL, fmt.Sprintf("pageNum=%d", pageNum))
	}
	separator := "?"
	if strings.Contains(baseURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spageNum=%d", baseURL, separator, pageNum)
}
