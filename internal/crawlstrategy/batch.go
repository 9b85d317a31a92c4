// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package crawlstrategy

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/northbound/crawlpipe/internal/logger"
)

// ProgressFunc reports batch progress: pages completed so far, total pages,
// and the URL that just finished (empty on a failed fetch).
type ProgressFunc func(completed, total int, url string)

// Batch crawls a fixed URL list with bounded concurrency, one SinglePage
// fetch per URL, independent of each other — no link discovery, no depth.
type Batch struct {
	Single         *SinglePage
	MaxConcurrency int
}

// NewBatch builds a Batch strategy, clamping concurrency to [1, 50] the way
// the reference implementation does.
func NewBatch(single *SinglePage, maxConcurrency int) *Batch {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxConcurrency > 50 {
		maxConcurrency = 50
	}
	return &Batch{Single: single, MaxConcurrency: maxConcurrency}
}

// Crawl fetches every URL in urls, up to MaxConcurrency in flight at once,
// returning every page that fetched successfully (best-effort: a single
// failed URL does not abort the batch). nativeLinks and pruneNav are passed
// straight through to each page's SinglePage.Crawl call; the recursive
// strategy sets nativeLinks so link discovery never depends on markdown
// conversion succeeding, while standalone batch runs keep the markdown path.
func (b *Batch) Crawl(ctx context.Context, urls []string, includeLinks, nativeLinks, pruneNav bool, progress ProgressFunc) []PageResult {
	sem := semaphore.NewWeighted(int64(b.MaxConcurrency))
	total := len(urls)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		results   []PageResult
		completed int
	)

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(targetURL string) {
			defer wg.Done()
			defer sem.Release(1)

			page, err := b.Single.Crawl(ctx, targetURL, "", includeLinks, false, nativeLinks, pruneNav)

			mu.Lock()
			defer mu.Unlock()
			completed++
			if err != nil {
				logger.Warnf("crawlstrategy: batch crawl failed for %s: %v", targetURL, err)
				if progress != nil {
					progress(completed, total, "")
				}
				return
			}
			results = append(results, page)
			if progress != nil {
				progress(completed, total, page.URL)
			}
		}(u)
	}

	wg.Wait()
	return results
}
