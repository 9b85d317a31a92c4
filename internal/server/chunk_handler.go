// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/store/catalog"
)

// ChunkHandler handles GET /chunk/{id}.
type ChunkHandler struct {
	Catalog *catalog.Store
}

func NewChunkHandler(cat *catalog.Store) *ChunkHandler {
	return &ChunkHandler{Catalog: cat}
}

func (h *ChunkHandler) HandleChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog store not configured")
		return
	}

	id := r.PathValue("id")
	chunk, err := h.Catalog.GetChunk(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "chunk not found")
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}
