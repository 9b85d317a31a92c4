// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/embedrouter"
	"github.com/northbound/crawlpipe/internal/scope"
	"github.com/northbound/crawlpipe/internal/store/pointstore"
)

// SearchRequest is the POST /search JSON body.
type SearchRequest struct {
	Query      string `json:"query"`
	Project    string `json:"project"`
	Dataset    string `json:"dataset"`
	Scope      string `json:"scope"`
	FilterCode bool   `json:"filter_code"`
	FilterText bool   `json:"filter_text"`
	Limit      int    `json:"limit"`
}

// SearchResponse is the POST /search JSON response.
type SearchResponse struct {
	Matches []pointstore.Match `json:"matches"`
	Count   int                `json:"count"`
}

// SearchHandler runs a similarity search over the point store, embedding
// the query with the text model — retrieval beyond trivial cosine
// similarity (reranking, hybrid fusion) is out of scope.
type SearchHandler struct {
	Router *embedrouter.Router
	Points *pointstore.Store
	Scope  *scope.Manager
}

func NewSearchHandler(router *embedrouter.Router, points *pointstore.Store, scopeMgr *scope.Manager) *SearchHandler {
	return &SearchHandler{Router: router, Points: points, Scope: scopeMgr}
}

func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.Points == nil {
		writeError(w, http.StatusServiceUnavailable, "point store not configured")
		return
	}

	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	level := h.Scope.Resolve(req.Project, req.Dataset, req.Scope)
	collection, err := h.Scope.CollectionName(req.Project, req.Dataset, level)
	if err != nil {
		writeError(w, http.StatusBadRequest, "resolve collection: "+err.Error())
		return
	}

	ctx := r.Context()
	vectors := h.Router.EmbedAll(ctx, []embedrouter.Item{{Text: req.Query, ModelHint: embedrouter.TextModel}})
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		writeError(w, http.StatusInternalServerError, "failed to embed query")
		return
	}

	matches, err := h.Points.Search(ctx, collection, vectors[0], req.Limit, req.FilterCode, req.FilterText)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Matches: matches, Count: len(matches)})
}
