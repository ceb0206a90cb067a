package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"golang.org/x/net/html/charset"
)

// Page is the fetched representation of a single listing page: the requested
// URL, the response body decoded to UTF-8 and the parsed document.
type Page struct {
	URL  string
	Body []byte
	Doc  *goquery.Document
}

// SessionConfig holds the process-wide HTTP session settings shared by all
// fetches: user agent, extra headers and the per-request timeout. It is set
// once at fetcher construction and immutable afterwards.
type SessionConfig struct {
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
}

// HTTPFetcher retrieves listing pages over HTTP with retry and exponential
// backoff. A failed fetch is returned as an error after exhausting retries;
// callers treat it as "no page" and stop paginating.
type HTTPFetcher struct {
	client     *http.Client
	session    SessionConfig
	retries    int
	retryDelay time.Duration
}

// NewHTTPFetcher creates a fetcher with the given session configuration.
// retries is the total number of attempts per page; retryDelay is the initial
// backoff delay, doubled after each failed attempt.
func NewHTTPFetcher(session SessionConfig, retries int, retryDelay time.Duration) *HTTPFetcher {
	if session.Timeout == 0 {
		session.Timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: session.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		session:    session,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// Fetch retrieves and parses a single page, retrying transient failures with
// exponential backoff (retryDelay, 2*retryDelay, ...). Any transport error or
// non-2xx status counts as a failed attempt.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	var page *Page
	attempt := 0

	retrier := repeater.NewBackoff(f.retries, f.retryDelay)
	err := retrier.Do(ctx, func() error {
		attempt++
		p, err := f.fetch(ctx, pageURL)
		if err != nil {
			lgr.Printf("[WARN] attempt %d to fetch page failed: %s, error: %v", attempt, pageURL, err)
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		lgr.Printf("[ERROR] giving up on page: %s", pageURL)
		return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	return page, nil
}

// fetch performs one GET attempt
func (f *HTTPFetcher) fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.session.UserAgent)
	addSessionHeaders(req)
	for k, v := range f.session.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// government sites often serve GBK/GB18030 pages, decode to UTF-8 before parsing
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return &Page{URL: pageURL, Body: body, Doc: doc}, nil
}
