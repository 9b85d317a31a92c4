// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/northbound/crawlpipe/internal/chunk"
	"github.com/northbound/crawlpipe/internal/config"
	"github.com/northbound/crawlpipe/internal/crawlstrategy"
	"github.com/northbound/crawlpipe/internal/discovery"
	"github.com/northbound/crawlpipe/internal/embedrouter"
	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/scope"
	"github.com/northbound/crawlpipe/internal/sitemap"
	"github.com/northbound/crawlpipe/internal/store/catalog"
	"github.com/northbound/crawlpipe/internal/store/pointstore"
	"github.com/northbound/crawlpipe/internal/store/relational"
	"github.com/northbound/crawlpipe/internal/summary"
)

const embeddingDimension = 768

// Orchestrator owns every collaborator a crawl-and-index job wires together
// and tracks every job it has started. A nil store/provider field disables
// that destination rather than failing jobs — a deployment may run with
// only one of the two vector stores configured.
type Orchestrator struct {
	Discovery  *discovery.Service
	SitemapTTP *http.Client
	Recursive  *crawlstrategy.Recursive
	Batch      *crawlstrategy.Batch
	Chunker    *chunk.SmartChunker
	Summarizer summary.Provider
	Router     *embedrouter.Router
	Relational *relational.Store
	Points     *pointstore.Store
	Catalog    *catalog.Store
	Scope      *scope.Manager
	Cfg        *config.Config

	jobs *expirable.LRU[string, *Job]
}

// New builds an Orchestrator. retentionSize bounds how many finished jobs'
// progress/result stay queryable before the oldest is evicted; an entry also
// expires once cfg.ProgressRetentionTTL has passed since its job was
// submitted (a zero TTL disables expiry).
func New(cfg *config.Config, disc *discovery.Service, recursive *crawlstrategy.Recursive, batch *crawlstrategy.Batch,
	chunker *chunk.SmartChunker, summarizer summary.Provider, router *embedrouter.Router,
	rel *relational.Store, pts *pointstore.Store, cat *catalog.Store, scopeMgr *scope.Manager, retentionSize int) (*Orchestrator, error) {
	if retentionSize < 1 {
		retentionSize = 500
	}
	var ttl time.Duration
	if cfg != nil {
		ttl = cfg.ProgressRetentionTTL
	}
	cache := expirable.NewLRU[string, *Job](retentionSize, nil, ttl)
	return &Orchestrator{
		Discovery:  disc,
		SitemapTTP: &http.Client{Timeout: 20 * time.Second},
		Recursive:  recursive,
		Batch:      batch,
		Chunker:    chunker,
		Summarizer: summarizer,
		Router:     router,
		Relational: rel,
		Points:     pts,
		Catalog:    cat,
		Scope:      scopeMgr,
		Cfg:        cfg,
		jobs:       cache,
	}, nil
}

// Submit starts a job in the background and returns its ID immediately. The
// job runs against its own context, independent of the request that created
// it, so it survives the HTTP handler returning.
func (o *Orchestrator) Submit(req Request) string {
	id := uuid.New().String()
	job := newJob(id)
	job.setRequestMeta(req)

	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	o.jobs.Add(id, job)

	go func() {
		defer cancel()
		if err := o.run(ctx, job, req); err != nil {
			if job.cancelled() {
				return
			}
			logger.Errorf("orchestrator: job %s failed: %v", id, err)
			job.setError(err)
		}
	}()

	return id
}

// GetProgress returns the current progress snapshot for a job.
func (o *Orchestrator) GetProgress(id string) (ProgressState, bool) {
	job, ok := o.jobs.Get(id)
	if !ok {
		return ProgressState{}, false
	}
	return job.snapshot(), true
}

// GetResult returns a completed job's result, if it has one yet.
func (o *Orchestrator) GetResult(id string) (*Result, bool) {
	job, ok := o.jobs.Get(id)
	if !ok {
		return nil, false
	}
	return job.snapshotResult()
}

// Cancel requests cooperative cancellation of a running job. Returns false
// if the job is unknown or already finished.
func (o *Orchestrator) Cancel(id string) bool {
	job, ok := o.jobs.Get(id)
	if !ok {
		return false
	}
	state := job.snapshot()
	if state.Status != StatusCreated && state.Status != StatusRunning {
		return false
	}
	job.markCancelled()
	if job.cancel != nil {
		job.cancel()
	}
	return true
}

// run drives one job through every phase, choosing the topology from
// req.Mode. Only discovery and crawl failures abort the job outright;
// chunk/summarize/embed/store failures degrade in place and are logged.
func (o *Orchestrator) run(ctx context.Context, job *Job, req Request) error {
	start := time.Now()
	job.updateProgress(PhaseInitializing, 0, "validating request")

	if len(req.SeedURLs) == 0 {
		return fmt.Errorf("orchestrator: at least one seed URL is required")
	}
	maxDepth := req.MaxDepth
	if maxDepth < 1 {
		maxDepth = 1
	}

	level := o.Scope.Resolve(req.Project, req.Dataset, req.RequestedScope)
	collection, err := o.Scope.CollectionName(req.Project, req.Dataset, level)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve collection: %w", err)
	}
	job.updateProgress(PhaseInitializing, 100, fmt.Sprintf("scope=%s collection=%s", level, collection))

	if o.checkCancel(job) {
		return nil
	}

	job.updateProgress(PhaseDiscovery, 0, "probing for manifest")
	worklist := o.discoverWorklist(ctx, req.SeedURLs)
	job.updateProgress(PhaseDiscovery, 100, fmt.Sprintf("%d URLs from manifest", len(worklist)))

	if o.checkCancel(job) {
		return nil
	}

	mode := req.Mode
	if mode == "" {
		mode = Mode(o.Cfg.ProcessingMode)
	}

	var agg aggregate
	if mode == ModeHybrid {
		err = o.runHybrid(ctx, job, req, worklist, maxDepth, level, collection, &agg)
	} else {
		err = o.runSequential(ctx, job, req, worklist, maxDepth, level, collection, &agg)
	}
	if err != nil {
		return err
	}
	if o.checkCancel(job) {
		return nil
	}

	job.finish(Result{
		JobID:           job.id,
		Scope:           level,
		CollectionName:  collection,
		PagesCrawled:    agg.pagesCrawled,
		ChunksChunked:   agg.chunksChunked,
		ChunksStored:    agg.relationalCount + agg.catalogCount,
		RelationalCount: agg.relationalCount,
		PointCount:      agg.pointCount,
		CatalogCount:    agg.catalogCount,
		Duration:        time.Since(start),
	})
	logger.Printf("orchestrator: job %s completed in %s (%d pages, %d chunks)", job.id, time.Since(start), agg.pagesCrawled, agg.chunksChunked)
	return nil
}

// discoverWorklist probes for an llms/sitemap manifest and, when a sitemap
// is found, expands it into a concrete URL list. Any other manifest (or
// none at all) leaves the caller's seeds as the worklist for a link-
// following crawl.
func (o *Orchestrator) discoverWorklist(ctx context.Context, seeds []string) []string {
	file := o.Discovery.DiscoverFiles(ctx, seeds)
	if file == nil {
		return nil
	}
	if strings.Contains(file.Content, "<urlset") || strings.Contains(file.Content, "<sitemapindex") {
		urls := sitemap.ParseString(file.Content)
		if len(urls) > 0 {
			logger.Printf("orchestrator: expanded sitemap into %d URLs", len(urls))
			return urls
		}
	}
	return nil
}

func (o *Orchestrator) checkCancel(job *Job) bool {
	return job.cancelled()
}

// aggregate accumulates totals across however many batches a topology runs.
type aggregate struct {
	pagesCrawled        int
	chunksChunked       int
	relationalCount     int
	pointCount          int
	catalogCount        int
	summariesGenerated  int
	embeddingsGenerated int
}

// runSequential crawls every page up front, then runs the full
// chunk→summarize→embed→store pipeline once over the whole result set.
func (o *Orchestrator) runSequential(ctx context.Context, job *Job, req Request, worklist []string, maxDepth int, level scope.Level, collection string, agg *aggregate) error {
	job.updateProgress(PhaseCrawling, 0, "crawling")

	pages, err := o.crawlAll(ctx, job, req, worklist, maxDepth)
	if err != nil {
		return fmt.Errorf("orchestrator: crawl failed: %w", err)
	}
	agg.pagesCrawled = len(pages)
	job.updateProgress(PhaseCrawling, 100, fmt.Sprintf("%d pages crawled", len(pages)))

	if o.checkCancel(job) {
		return nil
	}

	return o.processBatch(ctx, job, pages, req, level, collection, 1, 1, agg)
}

// runHybrid pipelines crawling and processing: while one crawl batch is
// being chunked/summarized/embedded/stored, the next batch is already
// crawling. The channel's capacity bounds how many crawled-but-unprocessed
// pages can pile up in memory at once.
func (o *Orchestrator) runHybrid(ctx context.Context, job *Job, req Request, worklist []string, maxDepth int, level scope.Level, collection string, agg *aggregate) error {
	crawlBatch := o.Cfg.HybridCrawlBatch
	if crawlBatch < 1 {
		crawlBatch = 50
	}
	maxMemPages := o.Cfg.HybridMaxMemoryPages
	if maxMemPages < crawlBatch {
		maxMemPages = crawlBatch
	}
	queueDepth := maxMemPages / crawlBatch
	if queueDepth < 1 {
		queueDepth = 1
	}

	urls := worklist
	if len(urls) == 0 {
		urls = req.SeedURLs
	}
	// Recursive crawling has no fixed worklist to pre-slice into batches —
	// fall back to sequential in that case, since streaming batches only
	// makes sense against a known URL set (sitemap or explicit seed list).
	if len(worklist) == 0 && maxDepth > 1 {
		return o.runSequential(ctx, job, req, worklist, maxDepth, level, collection, agg)
	}

	totalBatches := (len(urls) + crawlBatch - 1) / crawlBatch
	if totalBatches < 1 {
		totalBatches = 1
	}

	batches := make(chan []crawlstrategy.PageResult, queueDepth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		job.updateProgress(PhaseCrawling, 0, "crawling")
		crawled := 0
		for start := 0; start < len(urls); start += crawlBatch {
			if o.checkCancel(job) || gctx.Err() != nil {
				return nil
			}
			end := start + crawlBatch
			if end > len(urls) {
				end = len(urls)
			}
			pages := o.Batch.Crawl(gctx, urls[start:end], req.IncludeLinks, false, req.PruneNavigation, nil)
			crawled += len(pages)
			job.updateProgress(PhaseCrawling, 100*float64(end)/float64(len(urls)), fmt.Sprintf("%d pages crawled", crawled))

			select {
			case batches <- pages:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		batchNum := 0
		for pages := range batches {
			if o.checkCancel(job) || gctx.Err() != nil {
				return nil
			}
			batchNum++
			agg.pagesCrawled += len(pages)

			processBatch := o.Cfg.HybridProcessBatch
			if processBatch < 1 {
				processBatch = len(pages)
			}
			for sub := 0; sub < len(pages); sub += processBatch {
				end := sub + processBatch
				if end > len(pages) {
					end = len(pages)
				}
				if err := o.processBatch(gctx, job, pages[sub:end], req, level, collection, batchNum, totalBatches, agg); err != nil {
					return err
				}
				if o.checkCancel(job) {
					return nil
				}
			}
		}
		return nil
	})

	return g.Wait()
}

// crawlAll runs either a link-following recursive crawl from the seeds, or
// (when discovery produced a concrete worklist) a bounded-concurrency batch
// crawl over it.
func (o *Orchestrator) crawlAll(ctx context.Context, job *Job, req Request, worklist []string, maxDepth int) ([]crawlstrategy.PageResult, error) {
	progress := func(completed, total int, _ string) {
		if total <= 0 {
			return
		}
		job.updateProgress(PhaseCrawling, 100*float64(completed)/float64(total), fmt.Sprintf("%d/%d pages", completed, total))
	}

	if len(worklist) > 0 {
		return o.Batch.Crawl(ctx, worklist, req.IncludeLinks, false, req.PruneNavigation, progress), nil
	}
	return o.Recursive.Crawl(ctx, req.SeedURLs, maxDepth, req.MaxPages, req.IncludeLinks, req.PruneNavigation, progress)
}

// processBatch runs one slice of crawled pages through chunking,
// summarizing, embedding, and storage. batchNum/totalBatches scale this
// slice's contribution to each phase's progress range, so a multi-batch
// hybrid run advances the bar smoothly instead of jumping 0→100 per batch.
func (o *Orchestrator) processBatch(ctx context.Context, job *Job, pages []crawlstrategy.PageResult, req Request, level scope.Level, collection string, batchNum, totalBatches int, agg *aggregate) error {
	ceil := 100 * float64(batchNum) / float64(totalBatches)

	var chunks []chunk.Chunk
	for _, page := range pages {
		if page.MarkdownContent == "" {
			continue
		}
		chunks = append(chunks, o.Chunker.ChunkText(page.MarkdownContent, page.URL)...)
	}
	agg.chunksChunked += len(chunks)
	job.updateProgress(PhaseChunking, ceil, fmt.Sprintf("%d chunks (batch %d/%d)", len(chunks), batchNum, totalBatches))
	job.setCounts(-1, agg.pagesCrawled, agg.chunksChunked, -1)

	docs := make([]DocumentSummary, 0, len(pages))
	chunkCounts := make(map[string]int, len(pages))
	for _, c := range chunks {
		chunkCounts[c.SourcePath]++
	}
	for _, page := range pages {
		if page.MarkdownContent == "" {
			continue
		}
		docs = append(docs, DocumentSummary{
			URL:        page.URL,
			Title:      page.Title,
			WordCount:  page.WordCount,
			ChunkCount: chunkCounts[page.URL],
		})
	}
	job.addDocuments(docs)

	if o.checkCancel(job) || len(chunks) == 0 {
		return nil
	}

	summaries := make([]string, len(chunks))
	for i, c := range chunks {
		if i%32 == 0 && o.checkCancel(job) {
			return nil
		}
		summaries[i] = o.Summarizer.Summarize(ctx, c.Text, c.Language, c.SourcePath)
	}
	job.updateProgress(PhaseSummarizing, ceil, fmt.Sprintf("summarized batch %d/%d", batchNum, totalBatches))
	agg.summariesGenerated += len(summaries)
	job.setProcessingCounts(agg.summariesGenerated, -1, -1)

	if o.checkCancel(job) {
		return nil
	}

	items := make([]embedrouter.Item, len(chunks))
	for i, c := range chunks {
		items[i] = embedrouter.Item{Text: c.Text, ModelHint: embedrouter.ModelHint(c.ModelHint)}
	}
	vectors := o.Router.EmbedAll(ctx, items)
	job.updateProgress(PhaseEmbedding, ceil, fmt.Sprintf("embedded batch %d/%d", batchNum, totalBatches))
	job.setCounts(-1, -1, -1, agg.chunksChunked)
	agg.embeddingsGenerated += len(vectors)
	job.setProcessingCounts(-1, agg.embeddingsGenerated, -1)

	if o.checkCancel(job) {
		return nil
	}

	o.storeBatch(ctx, job, pages, chunks, summaries, vectors, req, level, collection, agg)
	job.updateProgress(PhaseStoring, ceil, fmt.Sprintf("stored batch %d/%d", batchNum, totalBatches))
	job.setProcessingCounts(-1, -1, agg.relationalCount+agg.catalogCount)
	return nil
}

// storeBatch fans the batch's chunks out to every configured destination.
// A write failure against one store is logged and skipped rather than
// aborting the job — storage problems degrade coverage, they don't fail
// the whole crawl.
func (o *Orchestrator) storeBatch(ctx context.Context, job *Job, pages []crawlstrategy.PageResult, chunks []chunk.Chunk, summaries []string, vectors [][]float32, req Request, level scope.Level, collection string, agg *aggregate) {
	projectID := scope.ProjectID(req.Project)
	datasetID := scope.DatasetID(req.Dataset)

	var pageIDs map[string]string
	if o.Catalog != nil {
		pageInputs := make([]catalog.PageInput, 0, len(pages))
		for _, p := range pages {
			if p.MarkdownContent == "" {
				continue
			}
			pageInputs = append(pageInputs, catalog.PageInput{
				URL:             p.URL,
				SourceURL:       p.SourceURL,
				Title:           p.Title,
				MarkdownContent: p.MarkdownContent,
				HTMLContent:     p.HTMLContent,
				WordCount:       p.WordCount,
				CharCount:       p.CharCount,
				Metadata:        p.Metadata,
			})
		}
		result, err := o.Catalog.UpsertWebPages(ctx, req.Project, req.Dataset, pageInputs)
		if err != nil {
			logger.Errorf("orchestrator: catalog upsert pages failed: %v", err)
		} else {
			pageIDs = result.PageIDs
			chunkInputs := make([]catalog.ChunkInput, len(chunks))
			for i, c := range chunks {
				chunkInputs[i] = catalog.ChunkInput{
					SourcePath: c.SourcePath,
					ChunkIndex: c.ChunkIndex,
					Text:       c.Text,
					Language:   c.Language,
					ModelHint:  string(c.ModelHint),
					IsCode:     c.IsCode,
					Confidence: c.Confidence,
					StartChar:  c.StartChar,
					EndChar:    c.EndChar,
				}
			}
			n, err := o.Catalog.UpsertChunks(ctx, result.DatasetID, pageIDs, chunkInputs, summaries, vectors)
			if err != nil {
				logger.Errorf("orchestrator: catalog upsert chunks failed: %v", err)
			}
			agg.catalogCount += n
			if auditErr := o.Catalog.RecordAudit(ctx, job.id, catalog.AuditActionStore, len(pageIDs), n, "ok"); auditErr != nil {
				logger.Warnf("orchestrator: audit log write failed: %v", auditErr)
			}
		}
	}

	if o.Relational != nil {
		stored := make([]relational.StoredChunk, 0, len(chunks))
		for i, c := range chunks {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				continue
			}
			chunkSummary := ""
			if i < len(summaries) {
				chunkSummary = summaries[i]
			}
			stored = append(stored, relational.StoredChunk{
				ID:            stableID(collection, c.SourcePath, c.ChunkIndex),
				Vector:        vectors[i],
				Content:       c.Text,
				RelativePath:  c.SourcePath,
				StartLine:     c.StartChar,
				EndLine:       c.EndChar,
				FileExtension: path.Ext(c.SourcePath),
				ProjectID:     projectID,
				DatasetID:     datasetID,
				SourceType:    "web",
				Language:      c.Language,
				Metadata:      map[string]any{"summary": chunkSummary, "confidence": c.Confidence},
			})
		}
		if len(stored) > 0 {
			if err := o.Relational.CreateCollection(ctx, collection, embeddingDimension); err != nil {
				logger.Errorf("orchestrator: relational create collection failed: %v", err)
			} else {
				n, err := o.Relational.InsertChunks(ctx, collection, stored)
				if err != nil {
					logger.Errorf("orchestrator: relational insert failed: %v", err)
				}
				agg.relationalCount += n
			}
		}
	}

	if o.Points != nil {
		stored := make([]pointstore.StoredChunk, 0, len(chunks))
		for i, c := range chunks {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				continue
			}
			chunkSummary := ""
			if i < len(summaries) {
				chunkSummary = summaries[i]
			}
			stored = append(stored, pointstore.StoredChunk{
				ID:           stableID(collection, c.SourcePath, c.ChunkIndex),
				Vector:       vectors[i],
				ChunkText:    c.Text,
				Summary:      chunkSummary,
				IsCode:       c.IsCode,
				Language:     c.Language,
				RelativePath: c.SourcePath,
				ChunkIndex:   c.ChunkIndex,
				StartChar:    c.StartChar,
				EndChar:      c.EndChar,
				ModelUsed:    string(c.ModelHint),
				ProjectID:    projectID,
				DatasetID:    datasetID,
				Scope:        string(level),
			})
		}
		if len(stored) > 0 {
			if err := o.Points.CreateCollection(ctx, collection, embeddingDimension); err != nil {
				logger.Errorf("orchestrator: pointstore create collection failed: %v", err)
			} else {
				n, err := o.Points.InsertChunks(ctx, collection, stored)
				if err != nil {
					logger.Errorf("orchestrator: pointstore insert failed: %v", err)
				}
				agg.pointCount += n
			}
		}
	}
}

// stableID derives a deterministic point/row ID from collection, source
// path, and chunk index, so re-ingesting the same page updates rather than
// duplicates its chunks.
func stableID(collection, sourcePath string, chunkIndex int) string {
	seed := fmt.Sprintf("%s:%s:%d", collection, sourcePath, chunkIndex)
	sum := sha256.Sum256([]byte(seed))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(hex.EncodeToString(sum[:]))).String()
}
