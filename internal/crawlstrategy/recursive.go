// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package crawlstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/urlutil"
)

// Recursive crawls breadth-first from a seed set, following discovered
// links up to MaxDepth levels, stopping early at MaxPages. Each depth is
// processed as one or more concurrency-bounded batches; concurrency for the
// next batch is re-checked against the process's memory use before it starts.
type Recursive struct {
	Single         *SinglePage
	BatchSize      int
	MaxConcurrent  int
	MemThreshold   float64
	SameDomainOnly bool
}

// NewRecursive builds a Recursive strategy.
func NewRecursive(single *SinglePage, batchSize, maxConcurrent int, memThresholdPercent float64, sameDomainOnly bool) *Recursive {
	if batchSize < 1 {
		batchSize = 50
	}
	if maxConcurrent < 1 {
		maxConcurrent = 10
	}
	return &Recursive{
		Single:         single,
		BatchSize:      batchSize,
		MaxConcurrent:  maxConcurrent,
		MemThreshold:   memThresholdPercent,
		SameDomainOnly: sameDomainOnly,
	}
}

// Crawl performs the BFS walk, returning every page fetched successfully.
// Link discovery always walks each page's raw HTML anchor tags rather than
// re-parsing its markdown conversion, since the markdown path is reserved
// for the single-page strategy. pruneNav is passed through to every page's
// markdown conversion (the stored content, not the link discovery).
func (r *Recursive) Crawl(ctx context.Context, seedURLs []string, maxDepth, maxPages int, includeLinks bool, pruneNav bool, progress ProgressFunc) ([]PageResult, error) {
	dispatcher := newMemoryDispatcher(r.MemThreshold, r.MaxConcurrent)

	visited := make(map[string]bool)
	var results []PageResult
	totalProcessed, totalDiscovered := 0, 0

	currentURLs := make(map[string]bool)
	seedDomains := make(map[string]bool)
	for _, seed := range seedURLs {
		normalized := normalizeNoFragment(seed)
		currentURLs[normalized] = true
		seedDomains[hostOf(normalized)] = true
	}
	totalDiscovered = len(currentURLs)

	for depth := 0; depth < maxDepth; depth++ {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		var toCrawl []string
		for u := range currentURLs {
			if !visited[u] {
				toCrawl = append(toCrawl, u)
			}
		}
		if len(toCrawl) == 0 {
			break
		}
		if maxPages > 0 && len(results) >= maxPages {
			break
		}

		if progress != nil {
			progress(totalProcessed, totalDiscovered, fmt.Sprintf("Depth %d/%d: %d URLs to crawl", depth+1, maxDepth, len(toCrawl)))
		}

		nextLevel := make(map[string]bool)

		for batchStart := 0; batchStart < len(toCrawl); batchStart += r.BatchSize {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			if maxPages > 0 && len(results) >= maxPages {
				break
			}

			batchEnd := batchStart + r.BatchSize
			if batchEnd > len(toCrawl) {
				batchEnd = len(toCrawl)
			}
			batchURLs := toCrawl[batchStart:batchEnd]

			permits := dispatcher.permits()
			batch := NewBatch(r.Single, permits)
			pages := batch.Crawl(ctx, batchURLs, includeLinks && depth < maxDepth-1, true, pruneNav, nil)

			for _, page := range pages {
				norm := normalizeNoFragment(page.URL)
				visited[norm] = true
				totalProcessed++

				if maxPages > 0 && len(results) >= maxPages {
					break
				}
				results = append(results, page)

				if includeLinks && depth < maxDepth-1 {
					for _, link := range page.DiscoveredLinks {
						next := normalizeNoFragment(link)
						if visited[next] || urlutil.IsBinaryFile(next) {
							continue
						}
						if r.SameDomainOnly && !seedDomains[hostOf(next)] {
							continue
						}
						if !nextLevel[next] {
							nextLevel[next] = true
							totalDiscovered++
						}
					}
				}
			}
		}

		for _, u := range toCrawl {
			visited[u] = true
		}

		if progress != nil {
			progress(totalProcessed, totalDiscovered, fmt.Sprintf("Depth %d complete: %d pages for next depth", depth+1, len(nextLevel)))
		}

		currentURLs = nextLevel
	}

	if progress != nil {
		progress(totalProcessed, totalDiscovered, fmt.Sprintf("Recursive crawl complete: %d total pages", len(results)))
	}

	logger.Debugf("crawlstrategy: recursive crawl visited %d URLs, collected %d pages", len(visited), len(results))
	return results, nil
}

func normalizeNoFragment(rawURL string) string {
	if idx := strings.IndexByte(rawURL, '#'); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	return urlutil.NormalizeURL(rawURL)
}

func hostOf(normalizedURL string) string {
	withoutScheme := normalizedURL
	if idx := strings.Index(withoutScheme, "//"); idx >= 0 {
		withoutScheme = withoutScheme[idx+2:]
	}
	if idx := strings.IndexByte(withoutScheme, '/'); idx >= 0 {
		withoutScheme = withoutScheme[:idx]
	}
	return withoutScheme
}
