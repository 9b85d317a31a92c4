// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/northbound/crawlpipe/internal/orchestrator"
	"github.com/northbound/crawlpipe/internal/queue"
)

const crawlJobType = "crawl"

// CrawlRequest is the POST /crawl JSON body.
type CrawlRequest struct {
	Project             string   `json:"project"`
	Dataset             string   `json:"dataset"`
	Scope               string   `json:"scope"`
	URLs                []string `json:"urls"`
	Mode                string   `json:"mode"`
	MaxDepth            int      `json:"max_depth"`
	MaxPages            int      `json:"max_pages"`
	SameDomainOnly      bool     `json:"same_domain_only"`
	IncludeLinks        bool     `json:"include_links"`
	PruneNavigation     bool     `json:"prune_navigation"`
	AutoDiscovery       bool     `json:"auto_discovery"`
	MaxConcurrent       int      `json:"max_concurrent"`
	ExtractCodeExamples bool     `json:"extract_code_examples"`
	KnowledgeType       string   `json:"knowledge_type"`
	Tags                []string `json:"tags"`
	Provider            string   `json:"provider"`
}

// CrawlHandler handles POST /crawl, translating the crawl-mode request
// shape into an orchestrator.Request and submitting it as a background job.
// When Queue is set and the request carries "?async=true", the request is
// enqueued instead of submitted in-process, for deployments running a
// separate worker pool against a shared Redis frontier.
type CrawlHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Queue        queue.Queue
}

func NewCrawlHandler(o *orchestrator.Orchestrator, q queue.Queue) *CrawlHandler {
	return &CrawlHandler{Orchestrator: o, Queue: q}
}

func (h *CrawlHandler) HandleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawBody, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var req CrawlRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	for _, u := range req.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			writeError(w, http.StatusBadRequest, "urls must be http(s)")
			return
		}
	}

	if h.Queue != nil && r.URL.Query().Get("async") == "true" {
		if err := h.Queue.Enqueue(r.Context(), queue.Job{
			Type:      crawlJobType,
			Payload:   json.RawMessage(rawBody),
			CreatedAt: time.Now(),
		}); err != nil {
			writeError(w, http.StatusServiceUnavailable, "failed to enqueue job: "+err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	orchReq := orchestrator.Request{
		SeedURLs:       req.URLs,
		Project:        req.Project,
		Dataset:        req.Dataset,
		RequestedScope: req.Scope,
		MaxDepth:       req.MaxDepth,
		MaxPages:        req.MaxPages,
		IncludeLinks:    req.IncludeLinks,
		PruneNavigation: req.PruneNavigation,
	}

	switch req.Mode {
	case "single":
		orchReq.MaxDepth = 1
		orchReq.MaxPages = 1
		orchReq.IncludeLinks = false
	case "batch":
		orchReq.MaxDepth = 1
		orchReq.IncludeLinks = false
	case "recursive":
		orchReq.IncludeLinks = true
		if orchReq.MaxDepth < 1 {
			orchReq.MaxDepth = 3
		}
	}

	id := h.Orchestrator.Submit(orchReq)
	writeJSON(w, http.StatusOK, map[string]string{
		"progress_id": id,
		"status":      "running",
	})
}
