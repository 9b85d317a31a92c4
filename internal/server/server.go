// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package server is the thin HTTP request handler layer: one handler
// struct per endpoint, each holding just the collaborators it needs off
// the shared app.App, translating JSON bodies into orchestrator/store
// calls and back.
package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/northbound/crawlpipe/internal/logger"
)

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("server: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
