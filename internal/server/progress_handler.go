// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/orchestrator"
)

// ProgressHandler handles GET /progress/{id}.
type ProgressHandler struct {
	Orchestrator *orchestrator.Orchestrator
}

func NewProgressHandler(o *orchestrator.Orchestrator) *ProgressHandler {
	return &ProgressHandler{Orchestrator: o}
}

func (h *ProgressHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	state, ok := h.Orchestrator.GetProgress(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, state)
}
