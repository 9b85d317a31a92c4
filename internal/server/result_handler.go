// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/orchestrator"
)

// ResultHandler handles GET /result/{id}.
type ResultHandler struct {
	Orchestrator *orchestrator.Orchestrator
}

func NewResultHandler(o *orchestrator.Orchestrator) *ResultHandler {
	return &ResultHandler{Orchestrator: o}
}

func (h *ResultHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
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
	if state.Status != orchestrator.StatusCompleted {
		writeError(w, http.StatusConflict, "job not yet completed")
		return
	}

	result, ok := h.Orchestrator.GetResult(id)
	if !ok {
		writeError(w, http.StatusConflict, "job not yet completed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
