package therapy

// SearchResult is one enriched web-search hit fed into the prompt.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Sentinel values returned when search augmentation is entirely unavailable.
// Callers never see an empty result set.
const (
	SearchUnavailableTitle   = "Search unavailable"
	SearchUnavailableContent = "Unable to perform search at the moment."
)

// SearchUnavailable builds the single-element fallback result set.
func SearchUnavailable() []SearchResult {
	return []SearchResult{{
		Title:   SearchUnavailableTitle,
		URL:     "",
		Content: SearchUnavailableContent,
	}}
}
