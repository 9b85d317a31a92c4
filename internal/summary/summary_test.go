package summary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSummarizeFallsBackWithoutAPIKey(t *testing.T) {
	p := New("", "", "")
	p.apiKey = ""
	got := p.Summarize(context.Background(), "package main\n\nfunc main() {}", "go", "https://example.com/a.go")
	if got != "package main\n\nfunc main() {}" {
		t.Errorf("expected prefix fallback, got %q", got)
	}
}

func TestSummarizeFallsBackOnEmptyText(t *testing.T) {
	p := New("", "", "")
	p.apiKey = ""
	got := p.Summarize(context.Background(), "   ", "", "https://example.com/a")
	if got != "Content from https://example.com/a" {
		t.Errorf("unexpected fallback summary: %q", got)
	}
}

func TestSummarizeUsesChatEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Parses a config file."}}]}`))
	}))
	defer server.Close()

	p := New("test-key", server.URL, "test-model")
	got := p.Summarize(context.Background(), "func Parse() {}", "go", "https://example.com/a.go")
	if got != "Parses a config file." {
		t.Errorf("expected summary from endpoint, got %q", got)
	}
}

func TestSummarizeFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := New("test-key", server.URL, "test-model")
	got := p.Summarize(context.Background(), "some long content here", "", "https://example.com/b")
	if !strings.Contains(got, "some long content here") {
		t.Errorf("expected fallback to prefix, got %q", got)
	}
}

func TestFallbackSummaryTruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := fallbackSummary(long, "https://example.com")
	if len(got) != prefixFallbackLen {
		t.Errorf("expected truncated length %d, got %d", prefixFallbackLen, len(got))
	}
}

func TestSummarizeAllAligns(t *testing.T) {
	p := New("", "", "")
	p.apiKey = ""
	texts := []string{"alpha content", "beta content"}
	langs := []string{"go", ""}
	urls := []string{"https://a", "https://b"}
	out := SummarizeAll(context.Background(), p, texts, langs, urls)
	if len(out) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(out))
	}
	if out[0] == "" || out[1] == "" {
		t.Error("expected non-empty fallback summaries")
	}
}
