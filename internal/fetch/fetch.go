// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package fetch is the lightweight HTTP leg of page fetching: a pooled
// client used for straightforward pages, escalated to the browser fetcher
// only when a page comes back too short to be real content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the uniform outcome of fetching a page, by HTTP or by browser.
type Result struct {
	FinalURL    string
	HTML        string
	StatusCode  int
	FromBrowser bool
	ContentType string
}

// Client wraps a pooled http.Client tuned for crawling: generous keep-alive,
// redirects followed, a fixed User-Agent. Every request is throttled by a
// per-host token bucket so a recursive crawl never hammers a single origin,
// the way WessleyAI's scraper throttles per-source requests.
type Client struct {
	http *http.Client

	rps   float64
	burst int

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Client with the given per-request timeout, limited to 5
// requests/sec per host with a burst of 3 by default.
func New(timeout time.Duration) *Client {
	return NewWithRateLimit(timeout, 5, 3)
}

// NewWithRateLimit builds a Client with an explicit per-host politeness
// budget: requestsPerSecond sustained, burst allowed in a single instant.
func NewWithRateLimit(timeout time.Duration, requestsPerSecond float64, burst int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 3
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rps:      requestsPerSecond,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the token bucket for host, creating it on first use.
func (c *Client) limiterFor(host string) *rate.Limiter {
	c.limMu.Lock()
	defer c.limMu.Unlock()

	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[host] = lim
	}
	return lim
}

// Fetch performs a single GET and returns the response body as-is, blocking
// on that host's rate limiter first.
func (c *Client) Fetch(ctx context.Context, target string) (Result, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: parse %s: %w", target, err)
	}
	if err := c.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("fetch: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", "crawlpipe")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	return Result{
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		FromBrowser: false,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
