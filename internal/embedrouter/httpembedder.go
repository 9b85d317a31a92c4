// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEmbedder calls two local embedding servers over HTTP — a text model
// (e.g. GTE) and a code model (e.g. CodeRank) — each listening on its own
// port of the same host. It makes exactly one attempt per call; retry and
// backoff are the Router's job, not the transport's.
type HTTPEmbedder struct {
	TextURL string
	CodeURL string
	client  *http.Client
}

// NewHTTPEmbedder builds an HTTPEmbedder pointed at host:textPort and
// host:codePort.
func NewHTTPEmbedder(host string, textPort, codePort int, timeout time.Duration) *HTTPEmbedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEmbedder{
		TextURL: fmt.Sprintf("http://%s:%d", host, textPort),
		CodeURL: fmt.Sprintf("http://%s:%d", host, codePort),
		client:  &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
	Model  string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed posts texts to the server matching hint and returns their vectors,
// positionally aligned. Returns an error on any failure; the caller (the
// Router) handles retry and zero-vector fallback.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string, hint ModelHint) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	baseURL := e.TextURL
	modelName := "gte-base-en-v1.5"
	if hint == CodeModel {
		baseURL = e.CodeURL
		modelName = "coderank"
	}

	body, err := json.Marshal(embedRequest{Inputs: texts, Model: modelName})
	if err != nil {
		return nil, fmt.Errorf("embedrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedrouter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedrouter: request to %s failed: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedrouter: %s returned %d: %s", baseURL, resp.StatusCode, string(respBody))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedrouter: read response: %w", err)
	}

	vectors, err := decodeEmbeddings(raw)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedrouter: expected %d embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// decodeEmbeddings accepts either a bare JSON array of vectors or an
// {"embeddings": [...]} envelope, matching the two response shapes the
// reference embedding servers are known to return.
func decodeEmbeddings(raw []byte) ([][]float32, error) {
	var asArray [][]float32
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}

	var envelope embedResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("embedrouter: decode response: %w", err)
	}
	if envelope.Embeddings == nil {
		return nil, fmt.Errorf("embedrouter: response missing embeddings")
	}
	return envelope.Embeddings, nil
}
