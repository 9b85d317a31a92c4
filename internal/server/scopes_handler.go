// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/store/catalog"
)

// ScopesHandler handles GET /scopes.
type ScopesHandler struct {
	Catalog *catalog.Store
}

func NewScopesHandler(cat *catalog.Store) *ScopesHandler {
	return &ScopesHandler{Catalog: cat}
}

func (h *ScopesHandler) HandleScopes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog store not configured")
		return
	}

	stats, err := h.Catalog.ScopeStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scope stats: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scopes": stats})
}
