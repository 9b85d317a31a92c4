// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AuditAction is the kind of store write an audit entry records.
type AuditAction string

const (
	AuditActionCrawl AuditAction = "CRAWL"
	AuditActionStore AuditAction = "STORE"
)

// AuditEntry is one row of the audit trail: what job did what, and the
// outcome, so operators can reconstruct ingestion history without
// re-deriving it from logs.
type AuditEntry struct {
	ID         int64
	Timestamp  time.Time
	JobID      string
	Action     AuditAction
	PageCount  int
	ChunkCount int
	Outcome    string
}

// EnsureAuditSchema creates the audit_log table if it doesn't exist.
func (s *Store) EnsureAuditSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.audit_log (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ DEFAULT NOW(),
			job_id TEXT NOT NULL,
			action TEXT NOT NULL,
			page_count INTEGER DEFAULT 0,
			chunk_count INTEGER DEFAULT 0,
			outcome TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_log_job_id ON %s.audit_log(job_id);
		CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON %s.audit_log(timestamp DESC);
	`, schemaName, schemaName, schemaName))
	if err != nil {
		return fmt.Errorf("catalog: create audit schema: %w", err)
	}
	return nil
}

// RecordAudit appends one audit entry for a completed store-write batch.
func (s *Store) RecordAudit(ctx context.Context, jobID string, action AuditAction, pageCount, chunkCount int, outcome string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.audit_log (job_id, action, page_count, chunk_count, outcome)
		VALUES ($1, $2, $3, $4, $5)
	`, schemaName), jobID, string(action), pageCount, chunkCount, outcome)
	if err != nil {
		return fmt.Errorf("catalog: record audit: %w", err)
	}
	return nil
}

// RecentAudit returns the last limit audit entries, most recent first,
// optionally filtered to a single job.
func (s *Store) RecentAudit(ctx context.Context, jobID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if jobID != "" {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			"SELECT id, timestamp, job_id, action, page_count, chunk_count, outcome FROM %s.audit_log WHERE job_id = $1 ORDER BY timestamp DESC LIMIT $2",
			schemaName), jobID, limit)
	} else {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			"SELECT id, timestamp, job_id, action, page_count, chunk_count, outcome FROM %s.audit_log ORDER BY timestamp DESC LIMIT $1",
			schemaName), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.JobID, &action, &e.PageCount, &e.ChunkCount, &e.Outcome); err != nil {
			return nil, fmt.Errorf("catalog: scan audit row: %w", err)
		}
		e.Action = AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
