package crawlstrategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/northbound/crawlpipe/internal/fetch"
)

type fakeHTTPFetcher struct {
	results []fetch.Result
	errs    []error
	calls   int64
	mu      sync.Mutex
}

func (f *fakeHTTPFetcher) Fetch(ctx context.Context, url string) (fetch.Result, error) {
	i := int(atomic.AddInt64(&f.calls, 1)) - 1
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], f.errs[i]
}

type fakeBrowserFetcher struct {
	result fetch.Result
	err    error
}

func (f *fakeBrowserFetcher) Fetch(ctx context.Context, url, waitSelector string, timeout time.Duration) (fetch.Result, error) {
	return f.result, f.err
}

func TestSinglePageCrawlSuccess(t *testing.T) {
	httpFetcher := &fakeHTTPFetcher{
		results: []fetch.Result{{FinalURL: "https://example.com/a", HTML: "<html><title>Hi</title><body>" +
			"<p>Hello world, this is a long enough page to not look truncated.</p></body></html>"}},
		errs: []error{nil},
	}
	s := NewSinglePage(httpFetcher, &fakeBrowserFetcher{}, 10*time.Second)

	result, err := s.Crawl(context.Background(), "https://example.com/a", "", false, false, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Title != "Hi" {
		t.Errorf("expected title 'Hi', got %q", result.Title)
	}
	if result.MarkdownContent == "" {
		t.Error("expected non-empty markdown content")
	}
}

func TestSinglePageCrawlEscalatesOnShortHTML(t *testing.T) {
	httpFetcher := &fakeHTTPFetcher{
		results: []fetch.Result{{FinalURL: "https://example.com/a", HTML: "<p>short</p>"}},
		errs:    []error{nil},
	}
	browser := &fakeBrowserFetcher{
		result: fetch.Result{FinalURL: "https://example.com/a", HTML: "<html><body>" +
			"<p>A full page rendered only by the browser, long enough to pass the length check.</p></body></html>", FromBrowser: true},
	}
	s := NewSinglePage(httpFetcher, browser, 10*time.Second)

	result, err := s.Crawl(context.Background(), "https://example.com/a", "", false, false, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Metadata["from_browser"].(bool) {
		t.Error("expected escalation to browser fetch")
	}
}

func TestSinglePageCrawlFailsAfterAllAttempts(t *testing.T) {
	httpFetcher := &fakeHTTPFetcher{
		results: []fetch.Result{{}, {}, {}},
		errs:    []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	browser := &fakeBrowserFetcher{err: errors.New("boom")}
	s := NewSinglePage(httpFetcher, browser, 10*time.Millisecond)

	_, err := s.Crawl(context.Background(), "https://example.com/a", "", false, false, false, false)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestIsDocumentationSiteByURL(t *testing.T) {
	if !IsDocumentationSite("https://docs.example.com/guide/intro", "") {
		t.Error("expected /guide/ path to be flagged as documentation")
	}
	if IsDocumentationSite("https://example.com/product", "") {
		t.Error("expected ordinary product page to not be flagged as documentation")
	}
}

func TestExtractNativeLinksResolvesRelativeHrefs(t *testing.T) {
	html := `<html><body>
		<nav><a href="/nav-only">nav link</a></nav>
		<a href="/about">About</a>
		<a href="https://other.example.com/x">External</a>
		<a href="#section">Anchor only</a>
		<a href="mailto:hi@example.com">Mail</a>
	</body></html>`

	links := extractNativeLinks(html, "https://example.com/page")

	want := []string{
		"https://example.com/nav-only",
		"https://example.com/about",
		"https://other.example.com/x",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for i, w := range want {
		if links[i] != w {
			t.Errorf("link[%d] = %q, want %q", i, links[i], w)
		}
	}
}

func TestHTMLToMarkdownStripsScriptsAlways(t *testing.T) {
	html := `<html><body><script>alert(1)</script><style>.x{}</style><p>content</p></body></html>`
	markdown := htmlToMarkdown(html, false)
	if strings.Contains(markdown, "alert(1)") {
		t.Errorf("expected script content stripped, got %q", markdown)
	}
}

func TestHTMLToMarkdownPrunesNavigationWhenRequested(t *testing.T) {
	html := `<html><body><nav>Home | About</nav><p>main content</p></body></html>`

	unpruned := htmlToMarkdown(html, false)
	if !strings.Contains(unpruned, "Home") {
		t.Errorf("expected nav content kept when pruneNav is false, got %q", unpruned)
	}

	pruned := htmlToMarkdown(html, true)
	if strings.Contains(pruned, "Home") {
		t.Errorf("expected nav content stripped when pruneNav is true, got %q", pruned)
	}
	if !strings.Contains(pruned, "main content") {
		t.Errorf("expected main content preserved, got %q", pruned)
	}
}
