// Package retrieval augments a user query with best-effort web context:
// the query is summarized into a search string, issued to a search engine,
// and the top hits are enriched with page text. Total failure degrades to a
// sentinel result instead of an error, because search context is never
// correctness-critical for the turn.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
)

// defaultMaxQueryLength bounds the summarized search string.
const defaultMaxQueryLength = 100

const summarizerSystemPrompt = "You are a helpful assistant that creates concise search queries."

// Fetcher enriches a single hit with page text.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Retriever runs the summarize/search/enrich pipeline.
type Retriever struct {
	chatModel   model.BaseChatModel
	searcher    Searcher
	fetcher     Fetcher
	maxQueryLen int
	logger      *log.Logger
}

// NewRetriever wires the retrieval pipeline. chatModel may be the same
// instance the response generator uses; it is only invoked for query
// summarization.
func NewRetriever(chatModel model.BaseChatModel, searcher Searcher, fetcher Fetcher, logger *log.Logger) *Retriever {
	return &Retriever{
		chatModel:   chatModel,
		searcher:    searcher,
		fetcher:     fetcher,
		maxQueryLen: defaultMaxQueryLength,
		logger:      logger,
	}
}

// Retrieve produces at most maxResults enriched results for query. The
// returned slice is never empty: when the whole pipeline fails it holds the
// single "Search unavailable" sentinel.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxResults int) []therapy.SearchResult {
	if maxResults < 1 {
		maxResults = 1
	}

	searchQuery := r.summarizeForSearch(ctx, query)
	r.logger.Debug("searching", "query", searchQuery)

	hits, err := r.searcher.Search(ctx, searchQuery, maxResults)
	if err != nil {
		r.logger.Warn("search failed, returning sentinel", "error", err)
		return therapy.SearchUnavailable()
	}

	results := r.enrich(ctx, hits)
	if len(results) == 0 {
		return therapy.SearchUnavailable()
	}
	return results
}

// summarizeForSearch reduces text to a short search string via the chat
// model, falling back to a word-boundary truncation of the original text.
func (r *Retriever) summarizeForSearch(ctx context.Context, text string) string {
	if r.chatModel == nil {
		return truncateAtWord(text, r.maxQueryLen)
	}

	prompt := fmt.Sprintf(
		"Summarize the following text into a short search query (max %d characters):\n%s\nMake the summary focused on the key topic and searchable terms.",
		r.maxQueryLen, text,
	)

	response, err := r.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(summarizerSystemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		r.logger.Warn("query summarization failed, truncating instead", "error", err)
		return truncateAtWord(text, r.maxQueryLen)
	}

	summary := strings.TrimSpace(response.Content)
	if summary == "" {
		return truncateAtWord(text, r.maxQueryLen)
	}
	if len([]rune(summary)) > r.maxQueryLen {
		summary = truncateAtWord(summary, r.maxQueryLen)
	}
	return summary
}

// enrich fetches page text for every hit with a resolvable URL. Fetches are
// independent, so they run concurrently; results keep the original search
// ranking order. Hits that fail to fetch are dropped, not retried.
func (r *Retriever) enrich(ctx context.Context, hits []Hit) []therapy.SearchResult {
	enriched := make([]*therapy.SearchResult, len(hits))

	var wg sync.WaitGroup
	for i, hit := range hits {
		if hit.URL == "" {
			continue
		}
		wg.Add(1)
		go func(i int, hit Hit) {
			defer wg.Done()
			content, err := r.fetcher.Fetch(ctx, hit.URL)
			if err != nil {
				r.logger.Debug("dropping unenrichable hit", "url", hit.URL, "error", err)
				return
			}
			enriched[i] = &therapy.SearchResult{
				Title:   hit.Title,
				URL:     hit.URL,
				Content: content,
			}
		}(i, hit)
	}
	wg.Wait()

	results := make([]therapy.SearchResult, 0, len(hits))
	for _, result := range enriched {
		if result != nil {
			results = append(results, *result)
		}
	}
	return results
}

// truncateAtWord cuts text to at most max runes, breaking on a word boundary
// where one exists.
func truncateAtWord(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
