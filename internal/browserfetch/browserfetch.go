// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package browserfetch renders a page in a headless Chrome instance via
// chromedp, for sites that need client-side rendering before their content
// exists in the DOM — documentation frameworks and JS-heavy pages the plain
// HTTP fetcher comes back empty or truncated for.
package browserfetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/northbound/crawlpipe/internal/fetch"
)

// Pool owns one allocator context shared across fetches, avoiding a fresh
// Chrome process per page.
type Pool struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewPool starts a shared headless Chrome allocator.
func NewPool() *Pool {
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	return &Pool{allocCtx: allocCtx, cancel: cancel}
}

// Close tears down the shared allocator and every tab spawned from it.
func (p *Pool) Close() {
	p.cancel()
}

// Fetch navigates to url, optionally waiting for waitSelector to appear
// before capturing the rendered HTML.
func (p *Pool) Fetch(ctx context.Context, url, waitSelector string, timeout time.Duration) (fetch.Result, error) {
	tabCtx, cancel := chromedp.NewContext(p.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}

	var html, finalURL string
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return fetch.Result{}, err
	}

	if finalURL == "" {
		finalURL = url
	}
	return fetch.Result{
		FinalURL:    finalURL,
		HTML:        html,
		StatusCode:  200,
		FromBrowser: true,
	}, nil
}
