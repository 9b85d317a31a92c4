// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package app wires every shared collaborator of the crawl pipeline into a
// single process-lifetime object: one fetch client, one browser pool, one
// pair of vector/relational store connections, one scope manager, and one
// orchestrator, all built once from a config.Config and handed to every
// HTTP request instead of being reconstructed per job.
package app

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/northbound/crawlpipe/internal/browserfetch"
	"github.com/northbound/crawlpipe/internal/chunk"
	"github.com/northbound/crawlpipe/internal/config"
	"github.com/northbound/crawlpipe/internal/crawlstrategy"
	"github.com/northbound/crawlpipe/internal/discovery"
	"github.com/northbound/crawlpipe/internal/embedrouter"
	"github.com/northbound/crawlpipe/internal/fetch"
	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/orchestrator"
	"github.com/northbound/crawlpipe/internal/queue"
	"github.com/northbound/crawlpipe/internal/scope"
	"github.com/northbound/crawlpipe/internal/store/catalog"
	"github.com/northbound/crawlpipe/internal/store/pointstore"
	"github.com/northbound/crawlpipe/internal/store/relational"
	"github.com/northbound/crawlpipe/internal/summary"
)

// App is the root object: every field is a shared, long-lived collaborator
// rather than a per-request construction. A nil Queue means the deployment
// runs orchestrator-direct only, with no Redis frontier in front of it.
type App struct {
	Config       *config.Config
	Fetch        *fetch.Client
	Browser      *browserfetch.Pool
	Scope        *scope.Manager
	Orchestrator *orchestrator.Orchestrator
	Relational   *relational.Store
	Points       *pointstore.Store
	Catalog      *catalog.Store
	Queue        queue.Queue

	qdrantConn *grpc.ClientConn
}

// New builds every shared collaborator from cfg. Vector/relational store
// connections and the Redis job queue degrade gracefully: a failed connect
// is logged and that destination is left nil rather than aborting startup,
// matching the degrade-to-mock posture the teacher's server entrypoint
// uses for its own vector store and job queue.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Fetch:   fetch.NewWithRateLimit(cfg.CrawlPageTimeout, cfg.CrawlRequestsPerSecond, cfg.CrawlRequestBurst),
		Browser: browserfetch.NewPool(),
		Scope:   scope.NewManager(cfg.DefaultScope),
	}

	single := crawlstrategy.NewSinglePage(a.Fetch, a.Browser, cfg.CrawlPageTimeout)
	batch := crawlstrategy.NewBatch(single, cfg.CrawlMaxConcurrent)
	recursive := crawlstrategy.NewRecursive(single, cfg.CrawlBatchSize, cfg.CrawlMaxConcurrent, cfg.MemoryThresholdPercent, true)

	chunker, err := chunk.NewSmartChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.EnableTreeSitter)
	if err != nil {
		return nil, fmt.Errorf("app.New: building chunker: %w", err)
	}

	summarizer := summary.New(cfg.SummaryAPIKey, cfg.SummaryBaseURL, cfg.SummaryModel)

	embedder := embedrouter.NewHTTPEmbedder(cfg.EmbeddingHost, cfg.TextModelPort, cfg.CodeModelPort, cfg.CrawlPageTimeout)
	router := embedrouter.NewRouter(embedder, 0, cfg.EnableParallelEmbedding)

	if cfg.PostgresConnectionString != "" {
		rel, err := relational.New(ctx, cfg.PostgresConnectionString, cfg.HybridProcessBatch)
		if err != nil {
			logger.Warnf("app.New: relational store unavailable: %v, per-collection vector rows will not be persisted", err)
		} else {
			a.Relational = rel
		}

		cat, err := catalog.New(ctx, cfg.PostgresConnectionString)
		if err != nil {
			logger.Warnf("app.New: catalog store unavailable: %v, canonical rows and audit trail will not be recorded", err)
		} else {
			a.Catalog = cat
		}
	} else {
		logger.Printf("app.New: no POSTGRES_CONNECTION_STRING set, relational store and catalog disabled")
	}

	if cfg.QdrantURL != "" {
		conn, err := dialQdrant(cfg)
		if err != nil {
			logger.Warnf("app.New: failed to connect to Qdrant at %s: %v, point store disabled", cfg.QdrantURL, err)
		} else {
			pts, err := pointstore.New(conn, cfg.HybridProcessBatch)
			if err != nil {
				logger.Warnf("app.New: point store init failed: %v, point store disabled", err)
				conn.Close()
			} else {
				a.Points = pts
				a.qdrantConn = conn
			}
		}
	}

	disc := discovery.New()

	orch, err := orchestrator.New(cfg, disc, recursive, batch, chunker, summarizer, router,
		a.Relational, a.Points, a.Catalog, a.Scope, cfg.ProgressRetentionSize)
	if err != nil {
		return nil, fmt.Errorf("app.New: building orchestrator: %w", err)
	}
	a.Orchestrator = orch

	if cfg.RedisAddr != "" {
		client, err := config.NewRedisClient(ctx)
		if err != nil {
			logger.Warnf("app.New: Redis unavailable: %v, job queue disabled (orchestrator still reachable in-process)", err)
		} else {
			q, err := queue.NewRedisQueue(client, cfg.JobQueueKey)
			if err != nil {
				logger.Warnf("app.New: failed to create job queue: %v", err)
			} else {
				a.Queue = q
			}
		}
	}

	return a, nil
}

func dialQdrant(cfg *config.Config) (*grpc.ClientConn, error) {
	return grpc.Dial(cfg.QdrantURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Close releases every connection the App opened. Safe to call once at
// process shutdown.
func (a *App) Close() {
	if a.Relational != nil {
		a.Relational.Close()
	}
	if a.Catalog != nil {
		a.Catalog.Close()
	}
	if a.qdrantConn != nil {
		a.qdrantConn.Close()
	}
}
