// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package catalog is the canonical metadata store: it upserts
// project/dataset/page/chunk rows into the `claude_context` relational
// schema so every ingested artifact has one authoritative row regardless
// of which vector store(s) it was also written to.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/northbound/crawlpipe/internal/logger"
)

const schemaName = "claude_context"

// PageInput is the subset of a crawled page the catalog persists.
type PageInput struct {
	URL             string
	SourceURL       string
	Title           string
	MarkdownContent string
	HTMLContent     string
	WordCount       int
	CharCount       int
	Metadata        map[string]any
}

// ChunkInput is the subset of a chunk the catalog persists alongside its
// summary and embedding.
type ChunkInput struct {
	SourcePath string
	ChunkIndex int
	Text       string
	Language   string
	ModelHint  string
	IsCode     bool
	Confidence float64
	StartChar  int
	EndChar    int
}

// WebPageIngestResult reports the canonical IDs assigned to a batch of
// upserted pages, keyed by page URL, plus the owning project/dataset.
type WebPageIngestResult struct {
	ProjectID string
	DatasetID string
	PageIDs   map[string]string
}

// Store persists projects, datasets, pages, and chunks into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, ensures the audit_log table exists, and returns
// a catalog Store. Every other table the catalog writes to (projects,
// datasets, web_pages, chunks) is expected to already exist via the
// claude_context schema migration; audit_log is the one table this package
// owns outright, so it migrates itself rather than depending on an external
// step every deployment has to remember to run.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("catalog: connect: %w", err)
	}
	store := &Store{pool: pool}
	if err := store.EnsureAuditSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: ensure audit schema: %w", err)
	}
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// UpsertWebPages ensures the project and dataset rows exist, then
// upserts one web_pages row per page with non-empty content. Runs in a
// single transaction so a partial failure never leaves project/dataset
// rows without their pages.
func (s *Store) UpsertWebPages(ctx context.Context, projectName, datasetName string, pages []PageInput) (WebPageIngestResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WebPageIngestResult{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	projectID, err := s.ensureProject(ctx, tx, projectName)
	if err != nil {
		return WebPageIngestResult{}, err
	}
	datasetID, err := s.ensureDataset(ctx, tx, projectID, datasetName)
	if err != nil {
		return WebPageIngestResult{}, err
	}

	pageIDs := make(map[string]string, len(pages))
	for _, page := range pages {
		if page.MarkdownContent == "" {
			continue
		}
		pageID, err := s.upsertWebPage(ctx, tx, datasetID, page)
		if err != nil {
			return WebPageIngestResult{}, err
		}
		pageIDs[page.URL] = pageID
	}

	if err := tx.Commit(ctx); err != nil {
		return WebPageIngestResult{}, fmt.Errorf("catalog: commit tx: %w", err)
	}

	logger.Printf("catalog: upserted %d web pages (project=%s dataset=%s)", len(pageIDs), projectName, datasetName)
	return WebPageIngestResult{ProjectID: projectID, DatasetID: datasetID, PageIDs: pageIDs}, nil
}

// UpsertChunks upserts chunk metadata and embeddings, skipping chunks
// with no embedding or whose source page wasn't in pageIDs (the page was
// either empty or failed to persist upstream). Returns the number of
// chunks actually written.
func (s *Store) UpsertChunks(ctx context.Context, datasetID string, pageIDs map[string]string, chunks []ChunkInput, summaries []string, embeddings [][]float32) (int, error) {
	total := len(chunks)
	if len(embeddings) < total {
		total = len(embeddings)
	}

	written := 0
	for i := 0; i < total; i++ {
		chunk := chunks[i]
		embedding := embeddings[i]
		if len(embedding) == 0 {
			continue
		}
		webPageID, ok := pageIDs[chunk.SourcePath]
		if !ok {
			logger.Warnf("catalog: skipping chunk %d, source_path %q not in page_ids", i, chunk.SourcePath)
			continue
		}

		summary := ""
		if i < len(summaries) {
			summary = summaries[i]
		}
		chunkID := stableChunkID(webPageID, chunk)

		metadata, err := json.Marshal(map[string]any{
			"language":    chunk.Language,
			"model_used":  chunk.ModelHint,
			"is_code":     chunk.IsCode,
			"confidence":  chunk.Confidence,
			"start_char":  chunk.StartChar,
			"end_char":    chunk.EndChar,
			"source_path": chunk.SourcePath,
		})
		if err != nil {
			return written, fmt.Errorf("catalog: marshal chunk metadata: %w", err)
		}

		_, err = s.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s.chunks
				(id, dataset_id, web_page_id, source_type, chunk_index, text, summary, embedding, metadata)
			VALUES
				($1::uuid, $2::uuid, $3::uuid, 'web', $4, $5, $6, $7::vector, $8::jsonb)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				summary = EXCLUDED.summary,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata
		`, schemaName), chunkID, datasetID, webPageID, chunk.ChunkIndex, chunk.Text, summary, vectorLiteral(embedding), metadata)
		if err != nil {
			return written, fmt.Errorf("catalog: upsert chunk %s: %w", chunkID, err)
		}
		written++
	}

	return written, nil
}

// StoredChunk is a chunk row as persisted, returned to callers looking it
// up by ID rather than writing it.
type StoredChunk struct {
	ID        string
	DatasetID string
	WebPageID string
	Text      string
	Summary   string
	Metadata  map[string]any
}

// GetChunk fetches a single chunk row by its canonical ID.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (StoredChunk, error) {
	var chunk StoredChunk
	var metadataJSON []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT id, dataset_id, web_page_id, text, summary, metadata FROM %s.chunks WHERE id = $1::uuid", schemaName,
	), chunkID).Scan(&chunk.ID, &chunk.DatasetID, &chunk.WebPageID, &chunk.Text, &chunk.Summary, &metadataJSON)
	if err != nil {
		return StoredChunk{}, fmt.Errorf("catalog: get chunk %s: %w", chunkID, err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return StoredChunk{}, fmt.Errorf("catalog: decode chunk metadata: %w", err)
		}
	}
	return chunk, nil
}

// ScopeStat is a per-dataset row count summary.
type ScopeStat struct {
	ProjectName string
	DatasetName string
	PageCount   int
	ChunkCount  int
}

// ScopeStats reports page/chunk counts grouped by project and dataset,
// the data behind GET /scopes.
func (s *Store) ScopeStats(ctx context.Context) ([]ScopeStat, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT p.name, d.name,
			(SELECT count(*) FROM %[1]s.web_pages w WHERE w.dataset_id = d.id),
			(SELECT count(*) FROM %[1]s.chunks c WHERE c.dataset_id = d.id)
		FROM %[1]s.datasets d
		JOIN %[1]s.projects p ON p.id = d.project_id
		ORDER BY p.name, d.name
	`, schemaName))
	if err != nil {
		return nil, fmt.Errorf("catalog: scope stats: %w", err)
	}
	defer rows.Close()

	var stats []ScopeStat
	for rows.Next() {
		var stat ScopeStat
		if err := rows.Scan(&stat.ProjectName, &stat.DatasetName, &stat.PageCount, &stat.ChunkCount); err != nil {
			return nil, fmt.Errorf("catalog: scan scope stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *Store) ensureProject(ctx context.Context, tx pgx.Tx, name string) (string, error) {
	if name == "" {
		name = "default"
	}
	var id string
	err := tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s.projects WHERE name = $1", schemaName), name).Scan(&id)
	if err == nil {
		return id, nil
	}

	id = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.projects (id, name, description, is_active, is_global)
		VALUES ($1::uuid, $2, '', true, false)
		ON CONFLICT (name) DO NOTHING
	`, schemaName), id, name); err != nil {
		return "", fmt.Errorf("catalog: insert project %q: %w", name, err)
	}

	if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s.projects WHERE name = $1", schemaName), name).Scan(&id); err != nil {
		return "", fmt.Errorf("catalog: re-fetch project %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) ensureDataset(ctx context.Context, tx pgx.Tx, projectID, name string) (string, error) {
	if name == "" {
		name = "default"
	}
	var id string
	err := tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s.datasets WHERE project_id = $1 AND name = $2", schemaName), projectID, name).Scan(&id)
	if err == nil {
		return id, nil
	}

	id = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.datasets (id, project_id, name, status, is_global)
		VALUES ($1::uuid, $2::uuid, $3, 'active', false)
		ON CONFLICT (project_id, name) DO NOTHING
	`, schemaName), id, projectID, name); err != nil {
		return "", fmt.Errorf("catalog: insert dataset %q: %w", name, err)
	}

	if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s.datasets WHERE project_id = $1 AND name = $2", schemaName), projectID, name).Scan(&id); err != nil {
		return "", fmt.Errorf("catalog: re-fetch dataset %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) upsertWebPage(ctx context.Context, tx pgx.Tx, datasetID string, page PageInput) (string, error) {
	pageID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(datasetID+":"+page.URL)).String()

	metadata := make(map[string]any, len(page.Metadata)+4)
	for k, v := range page.Metadata {
		metadata[k] = v
	}
	metadata["source_url"] = page.SourceURL
	metadata["word_count"] = page.WordCount
	metadata["char_count"] = page.CharCount
	if host, err := url.Parse(page.URL); err == nil {
		metadata["domain"] = host.Host
	}
	if hash := contentHash(page.MarkdownContent); hash != "" {
		metadata["content_hash"] = hash
	}
	if page.HTMLContent != "" {
		metadata["html_content"] = page.HTMLContent
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("catalog: marshal page metadata: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.web_pages
			(id, dataset_id, url, title, content, status, metadata, crawled_at, updated_at)
		VALUES
			($1::uuid, $2::uuid, $3, $4, $5, 'indexed', $6::jsonb, NOW(), NOW())
		ON CONFLICT (dataset_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			status = 'indexed',
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, schemaName), pageID, datasetID, page.URL, page.Title, page.MarkdownContent, metadataJSON)
	if err != nil {
		return "", fmt.Errorf("catalog: upsert web page %s: %w", page.URL, err)
	}

	return pageID, nil
}

func contentHash(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func vectorLiteral(vector []float32) string {
	b := make([]byte, 0, len(vector)*8+2)
	b = append(b, '[')
	for i, v := range vector {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, []byte(fmt.Sprintf("%v", v))...)
	}
	b = append(b, ']')
	return string(b)
}

func stableChunkID(webPageID string, chunk ChunkInput) string {
	sum := sha256.Sum256([]byte(chunk.Text))
	seed := fmt.Sprintf("%s:%d:%s", webPageID, chunk.ChunkIndex, hex.EncodeToString(sum[:]))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
