package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	duckDuckGoBaseURL = "https://html.duckduckgo.com/html/"
	searchUserAgent   = "Mozilla/5.0"
)

// Hit is one raw search-engine result before page enrichment.
type Hit struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher issues a query to an external search engine. It may fail or
// return fewer hits than requested.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML endpoint, which needs no
// API key.
type DuckDuckGoSearcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewDuckDuckGoSearcher builds a searcher with the given request timeout.
func NewDuckDuckGoSearcher(timeout time.Duration) *DuckDuckGoSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGoSearcher{
		baseURL:    duckDuckGoBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search fetches and parses the HTML result page for query.
func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	endpoint := s.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	hits := make([]Hit, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}

		hits = append(hits, Hit{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
		return len(hits) < maxResults
	})

	return hits, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
