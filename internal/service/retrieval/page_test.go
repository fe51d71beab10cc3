package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchExtractsReadableText(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>ignored</title><style>p { color: red }</style></head>
<body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<script>console.log("ignored");</script>
<h1>Managing   exam
stress</h1>
<p>Breathing exercises help.</p>
<div>plain div text is ignored</div>
<article>Longer form advice.</article>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	f := NewPageFetcher(5 * time.Second)
	content, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if !strings.Contains(content, "Managing exam stress") {
		t.Errorf("heading missing or whitespace not collapsed: %q", content)
	}
	if !strings.Contains(content, "Breathing exercises help.") {
		t.Errorf("paragraph missing: %q", content)
	}
	if !strings.Contains(content, "Longer form advice.") {
		t.Errorf("article missing: %q", content)
	}
	if strings.Contains(content, "Home") || strings.Contains(content, "About") {
		t.Errorf("navigation text leaked into content: %q", content)
	}
	if strings.Contains(content, "console.log") {
		t.Errorf("script text leaked into content: %q", content)
	}
	if strings.Contains(content, "plain div text") {
		t.Errorf("non-selected element leaked into content: %q", content)
	}
}

func TestFetchBoundsContentLength(t *testing.T) {
	long := "<p>" + strings.Repeat("word ", 1000) + "</p>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>" + long + "</body></html>"))
	}))
	defer server.Close()

	f := NewPageFetcher(5 * time.Second)
	content, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got := len([]rune(content)); got > maxContentLength {
		t.Errorf("content length %d exceeds bound %d", got, maxContentLength)
	}
}

func TestFetchEmptyPageIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div>nothing selectable</div></body></html>"))
	}))
	defer server.Close()

	f := NewPageFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for page with no extractable content")
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	f := NewPageFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
