// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package summary generates a one-to-two sentence summary for a chunk via an
// OpenAI-compatible chat completion endpoint, falling back to a truncated
// text prefix when the call fails rather than aborting the caller.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/northbound/crawlpipe/internal/logger"
)

const (
	defaultBaseURL    = "https://api.minimax.io/v1"
	defaultModel      = "MiniMax-M2"
	defaultMaxTokens  = 100
	defaultTemperature = 0.3
	prefixFallbackLen = 160
)

// Provider is the capability consumed by the orchestrator: summarize one
// chunk of text, optionally hinted with its detected language.
type Provider interface {
	Summarize(ctx context.Context, text, language, sourceURL string) string
}

// ChatProvider summarizes chunks via an OpenAI-compatible chat completion
// API. A zero-value ChatProvider is not usable; construct with New.
type ChatProvider struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
}

// New builds a ChatProvider. apiKey/baseURL/model fall back to
// MINIMAX_API_KEY / MINIMAX_API_BASE / "MiniMax-M2" when empty, matching
// the reference provider's environment defaults.
func New(apiKey, baseURL, model string) *ChatProvider {
	if apiKey == "" {
		apiKey = os.Getenv("MINIMAX_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("MINIMAX_API_BASE")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &ChatProvider{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Summarize returns a one-to-two sentence summary of text. Any failure —
// missing API key, network error, non-2xx response, empty completion —
// degrades to a prefix of text rather than propagating an error, since a
// missing summary must never block ingestion.
func (p *ChatProvider) Summarize(ctx context.Context, text, language, sourceURL string) string {
	if p.apiKey == "" {
		return fallbackSummary(text, sourceURL)
	}

	summary, err := p.chatComplete(ctx, buildPrompt(text, language, sourceURL))
	if err != nil {
		logger.Warnf("summary: failed to summarize chunk from %s: %v", sourceURL, err)
		return fallbackSummary(text, sourceURL)
	}
	if summary == "" {
		return fallbackSummary(text, sourceURL)
	}
	return summary
}

func buildPrompt(text, language, sourceURL string) string {
	if language == "" {
		language = "code"
	}
	preview := text
	if len(preview) > 500 {
		preview = preview[:500]
	}
	return fmt.Sprintf(
		"Summarize this %s snippet in 1-2 concise sentences. Focus on what it does and its purpose.\n\nSource: %s\nLanguage: %s\n\nContent:\n```%s\n%s\n```\n\nSummary:",
		language, sourceURL, language, language, preview,
	)
}

func fallbackSummary(text, sourceURL string) string {
	preview := strings.TrimSpace(text)
	if len(preview) > prefixFallbackLen {
		preview = preview[:prefixFallbackLen]
	}
	if preview == "" {
		return fmt.Sprintf("Content from %s", sourceURL)
	}
	return preview
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *ChatProvider) chatComplete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a code documentation assistant. Provide concise, technical summaries."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("summary provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("summary provider returned no choices")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// SummarizeAll summarizes a batch of chunks sequentially, returning
// summaries positionally aligned with texts. Used by the orchestrator's
// sequential execution mode; the parallel mode calls Summarize directly
// from its own fan-out.
func SummarizeAll(ctx context.Context, p Provider, texts []string, languages []string, sourceURLs []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		lang := ""
		if i < len(languages) {
			lang = languages[i]
		}
		src := ""
		if i < len(sourceURLs) {
			src = sourceURLs[i]
		}
		out[i] = p.Summarize(ctx, text, lang, src)
	}
	return out
}
