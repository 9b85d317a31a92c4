// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/northbound/crawlpipe/internal/logger"
)

// Config holds every tunable of the crawl pipeline, read once at process
// start from the environment (optionally seeded from a .env file by the
// caller). Nothing downstream reads os.Getenv directly.
type Config struct {
	// Chunking
	ChunkSize        int
	ChunkOverlap     int
	EnableTreeSitter bool

	// Embedding
	EmbeddingHost           string
	TextModelPort           int
	CodeModelPort           int
	EnableParallelEmbedding bool
	MaxEmbeddingConcurrency int
	EmbeddingMetricsEnabled bool

	// Orchestration
	ProcessingMode        string
	HybridCrawlBatch      int
	HybridProcessBatch    int
	HybridMaxMemoryPages  int
	ProgressRetentionSize int
	ProgressRetentionTTL  time.Duration

	// Crawl strategies
	CrawlBatchSize          int
	CrawlMaxConcurrent      int
	MemoryThresholdPercent  float64
	CrawlPageTimeout        time.Duration
	CrawlWaitStrategy       string
	CrawlRequestsPerSecond  float64
	CrawlRequestBurst       int

	// Storage
	PostgresConnectionString string
	QdrantURL                string
	QdrantAPIKey              string

	// Scope
	DefaultScope string

	// Summary provider
	SummaryAPIKey  string
	SummaryModel   string
	SummaryBaseURL string

	// Async job queue (supplemented feature)
	RedisAddr   string
	JobQueueKey string
	WorkerCount int
}

// Load builds a Config from environment variables. An unset variable takes
// its default silently; a set but unparseable value is logged before
// falling back to the default.
func Load() *Config {
	cfg := &Config{
		ChunkSize:        getInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getInt("CHUNK_OVERLAP", 200),
		EnableTreeSitter: getBool("ENABLE_TREE_SITTER", true),

		EmbeddingHost:           getString("EMBEDDING_HOST", "localhost"),
		TextModelPort:           getInt("TEXT_MODEL_PORT", 8001),
		CodeModelPort:           getInt("CODE_MODEL_PORT", 8002),
		EnableParallelEmbedding: getBool("ENABLE_PARALLEL_EMBEDDING", true),
		MaxEmbeddingConcurrency: getInt("MAX_EMBEDDING_CONCURRENCY", 2),
		EmbeddingMetricsEnabled: getBool("EMBEDDING_METRICS_ENABLED", true),

		ProcessingMode:        getString("PROCESSING_MODE", "hybrid"),
		HybridCrawlBatch:      getInt("HYBRID_CRAWL_BATCH", 50),
		HybridProcessBatch:    getInt("HYBRID_PROCESS_BATCH", 10),
		HybridMaxMemoryPages:  getInt("HYBRID_MAX_MEMORY_PAGES", 100),
		ProgressRetentionSize: getInt("PROGRESS_RETENTION_SIZE", 500),
		ProgressRetentionTTL:  time.Duration(getInt("PROGRESS_RETENTION_TTL_HOURS", 24)) * time.Hour,

		CrawlBatchSize:         getInt("CRAWL_BATCH_SIZE", 50),
		CrawlMaxConcurrent:     getInt("CRAWL_MAX_CONCURRENT", 10),
		MemoryThresholdPercent: getFloat("MEMORY_THRESHOLD_PERCENT", 80),
		CrawlPageTimeout:       time.Duration(getInt("CRAWL_PAGE_TIMEOUT", 30000)) * time.Millisecond,
		CrawlWaitStrategy:      getString("CRAWL_WAIT_STRATEGY", "domcontentloaded"),
		CrawlRequestsPerSecond: getFloat("CRAWL_REQUESTS_PER_SECOND", 5),
		CrawlRequestBurst:      getInt("CRAWL_REQUEST_BURST", 3),

		PostgresConnectionString: getString("POSTGRES_CONNECTION_STRING", ""),
		QdrantURL:                getString("QDRANT_URL", "localhost:6334"),
		QdrantAPIKey:             getString("QDRANT_API_KEY", ""),

		DefaultScope: getString("DEFAULT_SCOPE", "local"),

		SummaryAPIKey:  getString("SUMMARY_API_KEY", ""),
		SummaryModel:   getString("SUMMARY_MODEL", "gpt-4o-mini"),
		SummaryBaseURL: getString("SUMMARY_BASE_URL", "https://api.openai.com/v1"),

		RedisAddr:   getString("REDIS_ADDR", "127.0.0.1:6379"),
		JobQueueKey: getString("JOB_QUEUE_KEY", "crawlpipe:jobs"),
		WorkerCount: getInt("WORKER_COUNT", 5),
	}

	logger.Printf("config.Load: chunkSize=%d chunkOverlap=%d mode=%s crawlMaxConcurrent=%d defaultScope=%s",
		cfg.ChunkSize, cfg.ChunkOverlap, cfg.ProcessingMode, cfg.CrawlMaxConcurrent, cfg.DefaultScope)

	return cfg
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("config: invalid %s value %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warnf("config: invalid %s value %q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warnf("config: invalid %s value %q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}
