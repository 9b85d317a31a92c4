// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/northbound/crawlpipe/internal/orchestrator"
	"github.com/northbound/crawlpipe/internal/queue"
)

// CrawlJobType is the queue.Job.Type this App's worker pool handles.
const CrawlJobType = "crawl"

// crawlPayload mirrors server.CrawlRequest's JSON shape without importing
// the server package, keeping app the dependency root rather than a
// consumer of its own HTTP layer.
type crawlPayload struct {
	Project      string   `json:"project"`
	Dataset      string   `json:"dataset"`
	Scope        string   `json:"scope"`
	URLs         []string `json:"urls"`
	Mode         string   `json:"mode"`
	MaxDepth        int  `json:"max_depth"`
	MaxPages        int  `json:"max_pages"`
	IncludeLinks    bool `json:"include_links"`
	PruneNavigation bool `json:"prune_navigation"`
}

// HandleQueuedJob drains a queue.Job of type CrawlJobType and submits it to
// the orchestrator the same way the in-process POST /crawl path does. Any
// other job type is logged and skipped rather than erroring the worker
// pool, matching the teacher's worker handler's "unknown job type" fallback.
func (a *App) HandleQueuedJob(ctx context.Context, job queue.Job) error {
	if job.Type != CrawlJobType {
		return fmt.Errorf("app: unknown job type %q", job.Type)
	}

	var payload crawlPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("app: decode crawl job payload: %w", err)
	}
	if len(payload.URLs) == 0 {
		return fmt.Errorf("app: queued crawl job has no urls")
	}
	for _, u := range payload.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("app: queued crawl job url %q is not http(s)", u)
		}
	}

	req := orchestrator.Request{
		SeedURLs:       payload.URLs,
		Project:        payload.Project,
		Dataset:        payload.Dataset,
		RequestedScope: payload.Scope,
		MaxDepth:       payload.MaxDepth,
		MaxPages:        payload.MaxPages,
		IncludeLinks:    payload.IncludeLinks,
		PruneNavigation: payload.PruneNavigation,
	}
	switch payload.Mode {
	case "single":
		req.MaxDepth, req.MaxPages, req.IncludeLinks = 1, 1, false
	case "batch":
		req.MaxDepth, req.IncludeLinks = 1, false
	case "recursive":
		req.IncludeLinks = true
		if req.MaxDepth < 1 {
			req.MaxDepth = 3
		}
	}

	a.Orchestrator.Submit(req)
	return nil
}
