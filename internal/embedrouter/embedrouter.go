// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package embedrouter turns an ordered sequence of chunks into a
// positionally-aligned sequence of vectors, routing each chunk to the
// text-model or code-model embedding endpoint by its model hint. When both
// models are in flight it interleaves their batches (Unified Parallel
// Batching) instead of draining one model's queue before starting the
// other's.
package embedrouter

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northbound/crawlpipe/internal/logger"
)

const dimension = 768

// ModelHint mirrors chunk.ModelHint without importing the chunk package —
// the router only ever needs the string tag, not the rest of Chunk.
type ModelHint string

const (
	TextModel ModelHint = "text-model"
	CodeModel ModelHint = "code-model"
)

// Item is one unit of embedding work: text plus the model it's routed to.
type Item struct {
	Text      string
	ModelHint ModelHint
}

// Embedder submits a batch of texts to one model's endpoint.
type Embedder interface {
	Embed(ctx context.Context, texts []string, hint ModelHint) ([][]float32, error)
}

// Router embeds chunks, either against a single model directly or, when
// both are in use, via interleaved per-model batches.
type Router struct {
	Embedder  Embedder
	BatchSize int
	Parallel  bool
}

// NewRouter builds a Router with the given batch size (default 32 chunks
// per request to either model).
func NewRouter(embedder Embedder, batchSize int, parallel bool) *Router {
	if batchSize < 1 {
		batchSize = 32
	}
	return &Router{Embedder: embedder, BatchSize: batchSize, Parallel: parallel}
}

// EmbedAll embeds every item, returning vectors aligned positionally with
// items. A failed batch degrades to zero vectors for its positions rather
// than failing the whole request.
func (r *Router) EmbedAll(ctx context.Context, items []Item) [][]float32 {
	vectors := make([][]float32, len(items))

	var textIdx, codeIdx []int
	for i, item := range items {
		if item.ModelHint == CodeModel {
			codeIdx = append(codeIdx, i)
		} else {
			textIdx = append(textIdx, i)
		}
	}

	if len(textIdx) == 0 || len(codeIdx) == 0 || !r.Parallel {
		r.embedSequence(ctx, items, textIdx, vectors)
		r.embedSequence(ctx, items, codeIdx, vectors)
		return vectors
	}

	r.embedUnifiedParallel(ctx, items, textIdx, codeIdx, vectors)
	return vectors
}

// embedSequence submits one model's indices in BatchSize chunks, one batch
// after another.
func (r *Router) embedSequence(ctx context.Context, items []Item, indices []int, vectors [][]float32) {
	if len(indices) == 0 {
		return
	}
	hint := items[indices[0]].ModelHint

	for start := 0; start < len(indices); start += r.BatchSize {
		end := start + r.BatchSize
		if end > len(indices) {
			end = len(indices)
		}
		batchIdx := indices[start:end]
		texts := make([]string, len(batchIdx))
		for i, idx := range batchIdx {
			texts[i] = items[idx].Text
		}

		result := r.embedWithRetry(ctx, texts, hint)
		for i, idx := range batchIdx {
			vectors[idx] = result[i]
		}
	}
}

// embedUnifiedParallel pops up to BatchSize items from each model's queue
// every round and submits both batches concurrently, splicing results back
// to their original positions once both complete.
func (r *Router) embedUnifiedParallel(ctx context.Context, items []Item, textIdx, codeIdx []int, vectors [][]float32) {
	ti, ci := 0, 0
	var textCount, codeCount int

	for ti < len(textIdx) || ci < len(codeIdx) {
		textEnd := min(ti+r.BatchSize, len(textIdx))
		codeEnd := min(ci+r.BatchSize, len(codeIdx))
		textBatch := textIdx[ti:textEnd]
		codeBatch := codeIdx[ci:codeEnd]

		g, gctx := errgroup.WithContext(ctx)
		if len(textBatch) > 0 {
			g.Go(func() error {
				texts := make([]string, len(textBatch))
				for i, idx := range textBatch {
					texts[i] = items[idx].Text
				}
				result := r.embedWithRetry(gctx, texts, TextModel)
				for i, idx := range textBatch {
					vectors[idx] = result[i]
				}
				return nil
			})
		}
		if len(codeBatch) > 0 {
			g.Go(func() error {
				texts := make([]string, len(codeBatch))
				for i, idx := range codeBatch {
					texts[i] = items[idx].Text
				}
				result := r.embedWithRetry(gctx, texts, CodeModel)
				for i, idx := range codeBatch {
					vectors[idx] = result[i]
				}
				return nil
			})
		}
		_ = g.Wait()

		textCount += len(textBatch)
		codeCount += len(codeBatch)
		ti, ci = textEnd, codeEnd
	}

	logger.Debugf("embedrouter: unified parallel batching embedded %d text chunks, %d code chunks", textCount, codeCount)
}

// embedWithRetry submits one batch, retrying up to 3 times with backoff
// min(2^(n-1), 5) seconds; a batch that never succeeds falls back to zero
// vectors rather than aborting the whole request.
func (r *Router) embedWithRetry(ctx context.Context, texts []string, hint ModelHint) [][]float32 {
	const maxAttempts = 3
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := r.Embedder.Embed(ctx, texts, hint)
		if err == nil {
			return result
		}
		lastErr = err
		if attempt < maxAttempts {
			backoff := time.Duration(min(1<<(attempt-1), 5)) * time.Second
			logger.Warnf("embedrouter: embed batch failed (attempt %d/%d), retrying in %s: %v", attempt, maxAttempts, backoff, err)
			select {
			case <-ctx.Done():
				return zeroVectors(len(texts))
			case <-time.After(backoff):
			}
		}
	}

	logger.Errorf("embedrouter: embed batch failed after %d attempts: %v", maxAttempts, lastErr)
	return zeroVectors(len(texts))
}

func zeroVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dimension)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
