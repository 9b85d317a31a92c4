// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package app

import (
	"context"
	"testing"
	"time"

	"github.com/northbound/crawlpipe/internal/config"
)

func minimalConfig() *config.Config {
	return &config.Config{
		ChunkSize:               1000,
		ChunkOverlap:            200,
		EmbeddingHost:           "localhost",
		TextModelPort:           8001,
		CodeModelPort:           8002,
		MaxEmbeddingConcurrency: 2,
		ProcessingMode:          "sequential",
		HybridCrawlBatch:        10,
		HybridProcessBatch:      10,
		HybridMaxMemoryPages:    100,
		ProgressRetentionSize:   10,
		CrawlBatchSize:          10,
		CrawlMaxConcurrent:      2,
		MemoryThresholdPercent:  80,
		CrawlPageTimeout:        5 * time.Second,
		DefaultScope:            "local",
		SummaryModel:            "gpt-4o-mini",
		SummaryBaseURL:          "https://api.openai.com/v1",
	}
}

func TestNewWithoutExternalStoresDisablesThem(t *testing.T) {
	cfg := minimalConfig()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Relational != nil || a.Catalog != nil || a.Points != nil || a.Queue != nil {
		t.Error("expected all external stores to be nil without connection strings")
	}
	if a.Orchestrator == nil {
		t.Error("expected orchestrator to be built regardless of store availability")
	}
	if a.Fetch == nil || a.Browser == nil || a.Scope == nil {
		t.Error("expected shared fetch/browser/scope collaborators to be built")
	}
}
