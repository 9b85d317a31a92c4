// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"

	"github.com/northbound/crawlpipe/internal/app"
)

// Routes builds the HTTP surface from a wired App, mirroring the teacher's
// routes(...) function: one ServeMux, one handler struct per endpoint,
// each constructed with exactly the App fields it needs.
func Routes(a *app.App) http.Handler {
	mux := http.NewServeMux()

	crawl := NewCrawlHandler(a.Orchestrator, a.Queue)
	progress := NewProgressHandler(a.Orchestrator)
	stream := NewProgressStreamHandler(a.Orchestrator)
	result := NewResultHandler(a.Orchestrator)
	cancel := NewCancelHandler(a.Orchestrator)
	search := NewSearchHandler(a.Orchestrator.Router, a.Points, a.Scope)
	chunk := NewChunkHandler(a.Catalog)
	scopes := NewScopesHandler(a.Catalog)

	mux.HandleFunc("GET /health", HandleHealth)
	mux.HandleFunc("POST /crawl", crawl.HandleCrawl)
	mux.HandleFunc("GET /progress/{id}", progress.HandleProgress)
	mux.HandleFunc("GET /progress/{id}/stream", stream.HandleStream)
	mux.HandleFunc("GET /result/{id}", result.HandleResult)
	mux.HandleFunc("POST /cancel/{id}", cancel.HandleCancel)
	mux.HandleFunc("POST /search", search.HandleSearch)
	mux.HandleFunc("GET /chunk/{id}", chunk.HandleChunk)
	mux.HandleFunc("GET /scopes", scopes.HandleScopes)

	return mux
}
