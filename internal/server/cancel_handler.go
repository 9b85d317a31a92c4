// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/orchestrator"
)

// CancelHandler handles POST /cancel/{id}.
type CancelHandler struct {
	Orchestrator *orchestrator.Orchestrator
}

func NewCancelHandler(o *orchestrator.Orchestrator) *CancelHandler {
	return &CancelHandler{Orchestrator: o}
}

func (h *CancelHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	if !h.Orchestrator.Cancel(id) {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
