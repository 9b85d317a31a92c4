// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/northbound/crawlpipe/internal/orchestrator"
)

// ProgressStreamHandler handles GET /progress/{id}/stream, an SSE push of
// ProgressState snapshots as they change, polling the orchestrator's
// in-process job map rather than subscribing to a broadcast channel the
// way the teacher's log stream does, since a job's state lives on its
// Job struct rather than a fan-out channel.
type ProgressStreamHandler struct {
	Orchestrator *orchestrator.Orchestrator
	PollInterval time.Duration
}

func NewProgressStreamHandler(o *orchestrator.Orchestrator) *ProgressStreamHandler {
	return &ProgressStreamHandler{Orchestrator: o, PollInterval: 500 * time.Millisecond}
}

func (h *ProgressStreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	if _, ok := h.Orchestrator.GetProgress(id); !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	interval := h.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastOverall float64 = -1
	var lastStatus orchestrator.Status

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			state, ok := h.Orchestrator.GetProgress(id)
			if !ok {
				return
			}
			if state.Overall != lastOverall || state.Status != lastStatus {
				data, err := json.Marshal(state)
				if err == nil {
					fmt.Fprintf(w, "data: %s\n\n", data)
					flusher.Flush()
				}
				lastOverall = state.Overall
				lastStatus = state.Status
			}
			if state.Status == orchestrator.StatusCompleted || state.Status == orchestrator.StatusFailed || state.Status == orchestrator.StatusCancelled {
				return
			}
		}
	}
}
