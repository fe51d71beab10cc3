package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// maxContentLength bounds the extracted text of one enriched result.
const maxContentLength = 2000

var whitespaceRe = regexp.MustCompile(`\s+`)

// PageFetcher downloads a result page and extracts its readable text.
type PageFetcher struct {
	httpClient *http.Client
}

// NewPageFetcher builds a fetcher with the given per-page timeout.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PageFetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch returns the visible text of the page at pageURL: heading, paragraph
// and article elements only, whitespace collapsed, bounded to
// maxContentLength. An empty extraction is an error so callers drop the hit.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var parts []string
	doc.Find("h1, h2, h3, p, article").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	content := strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, "\n"), " "))
	if content == "" {
		return "", fmt.Errorf("no extractable content")
	}

	if runes := []rune(content); len(runes) > maxContentLength {
		content = string(runes[:maxContentLength])
	}
	return content, nil
}
