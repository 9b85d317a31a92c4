// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package relational is the pgvector-backed vector store: one physical
// table per collection, dense vectors plus the full symbol/metadata
// schema shared with code-ingestion pipelines so web and code chunks can
// be queried side by side.
package relational

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/northbound/crawlpipe/internal/logger"
)

const schemaName = "claude_context"

var nonTableChar = regexp.MustCompile(`[^a-z0-9_]`)

// StoredChunk is a chunk ready for persistence: the embedding plus every
// column the unified schema carries.
type StoredChunk struct {
	ID            string
	Vector        []float32
	Content       string
	RelativePath  string
	StartLine     int
	EndLine       int
	FileExtension string
	ProjectID     string
	DatasetID     string
	SourceType    string
	Repo          string
	Branch        string
	SHA           string
	Language      string
	Symbol        map[string]any
	Metadata      map[string]any
}

// Store is a pgxpool-backed vector store with one table per collection.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

// New connects to Postgres and returns a Store. connString follows the
// standard libpq URL format.
func New(ctx context.Context, connString string, batchSize int) (*Store, error) {
	if batchSize < 1 {
		batchSize = 100
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("relational: connect: %w", err)
	}
	logger.Printf("relational: connected, batch size %d", batchSize)
	return &Store{pool: pool, batchSize: batchSize}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateCollection ensures the schema and the collection's table/indexes
// exist, matching the unified chunk schema (dense vector, path/line
// provenance, symbol/metadata JSONB, source-type discriminator).
func (s *Store) CreateCollection(ctx context.Context, collection string, dimension int) error {
	table := qualifiedTable(collection)
	sanitized := sanitizeIndexName(collection)

	if _, err := s.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)); err != nil {
		return fmt.Errorf("relational: create schema: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			vector vector(%d),
			content TEXT,
			relative_path TEXT,
			start_line INTEGER,
			end_line INTEGER,
			file_extension TEXT,
			project_id UUID,
			dataset_id UUID,
			source_type TEXT,
			repo TEXT,
			branch TEXT,
			sha TEXT,
			lang TEXT,
			symbol JSONB,
			metadata JSONB DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, table, dimension)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("relational: create table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_vector_idx ON %s USING ivfflat (vector vector_cosine_ops) WITH (lists = 100)`, sanitized, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_project_idx ON %s(project_id)`, sanitized, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_dataset_idx ON %s(dataset_id)`, sanitized, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_type_idx ON %s(source_type)`, sanitized, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING GIN (metadata)`, sanitized, table),
	}
	for _, stmt := range indexes {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("relational: create index: %w", err)
		}
	}

	logger.Printf("relational: collection %s ready (%dd)", collection, dimension)
	return nil
}

// InsertChunks upserts chunks in batches of the store's configured batch
// size, updating vector/content/metadata on conflict so re-ingestion
// refreshes stale rows rather than erroring.
func (s *Store) InsertChunks(ctx context.Context, collection string, chunks []StoredChunk) (int, error) {
	table := qualifiedTable(collection)
	inserted := 0

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		for _, chunk := range batch {
			symbolJSON, err := marshalOrNull(chunk.Symbol)
			if err != nil {
				return inserted, fmt.Errorf("relational: marshal symbol: %w", err)
			}
			metadataJSON, err := json.Marshal(orEmptyMap(chunk.Metadata))
			if err != nil {
				return inserted, fmt.Errorf("relational: marshal metadata: %w", err)
			}

			_, err = s.pool.Exec(ctx, fmt.Sprintf(`
				INSERT INTO %s
				(id, vector, content, relative_path, start_line, end_line, file_extension,
				 project_id, dataset_id, source_type, repo, branch, sha, lang, symbol, metadata)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8::uuid,$9::uuid,$10,$11,$12,$13,$14,$15,$16)
				ON CONFLICT (id) DO UPDATE SET
					vector = EXCLUDED.vector,
					content = EXCLUDED.content,
					metadata = EXCLUDED.metadata
			`, table),
				chunk.ID, pgvector.NewVector(chunk.Vector), chunk.Content, chunk.RelativePath,
				chunk.StartLine, chunk.EndLine, nullableString(chunk.FileExtension),
				chunk.ProjectID, chunk.DatasetID, chunk.SourceType,
				nullableString(chunk.Repo), nullableString(chunk.Branch), nullableString(chunk.SHA),
				chunk.Language, symbolJSON, metadataJSON,
			)
			if err != nil {
				return inserted, fmt.Errorf("relational: insert chunk %s: %w", chunk.ID, err)
			}
		}

		inserted += len(batch)
		logger.Debugf("relational: inserted %d/%d chunks into %s", inserted, len(chunks), collection)
	}

	return inserted, nil
}

func qualifiedTable(collection string) string {
	return schemaName + "." + collection
}

func sanitizeIndexName(collection string) string {
	s := strings.ReplaceAll(collection, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return nonTableChar.ReplaceAllString(strings.ToLower(s), "_")
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func marshalOrNull(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}
