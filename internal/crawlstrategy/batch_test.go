package crawlstrategy

import (
	"context"
	"testing"
	"time"

	"github.com/northbound/crawlpipe/internal/fetch"
)

func TestBatchCrawlCollectsAllSuccesses(t *testing.T) {
	httpFetcher := &fakeHTTPFetcher{
		results: []fetch.Result{{FinalURL: "https://example.com/a", HTML: "<html><body>" +
			"<p>Enough content here to clear the short-HTML escalation threshold easily.</p></body></html>"}},
		errs: []error{nil},
	}
	single := NewSinglePage(httpFetcher, &fakeBrowserFetcher{}, 5*time.Second)
	batch := NewBatch(single, 4)

	var completedCalls int
	results := batch.Crawl(context.Background(), []string{
		"https://example.com/a", "https://example.com/b", "https://example.com/c",
	}, false, false, false, func(completed, total int, url string) {
		completedCalls++
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 successful pages, got %d", len(results))
	}
	if completedCalls != 3 {
		t.Errorf("expected 3 progress callbacks, got %d", completedCalls)
	}
}

func TestBatchCrawlClampsConcurrency(t *testing.T) {
	single := NewSinglePage(&fakeHTTPFetcher{}, &fakeBrowserFetcher{}, time.Second)
	if b := NewBatch(single, 0); b.MaxConcurrency != 1 {
		t.Errorf("expected concurrency clamped to 1, got %d", b.MaxConcurrency)
	}
	if b := NewBatch(single, 1000); b.MaxConcurrency != 50 {
		t.Errorf("expected concurrency clamped to 50, got %d", b.MaxConcurrency)
	}
}
