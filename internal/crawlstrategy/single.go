// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package crawlstrategy implements the three crawl topologies — single
// page, bounded-concurrency batch, and BFS recursive — all producing the
// same PageResult shape so downstream chunking doesn't care which strategy
// produced a page.
package crawlstrategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/northbound/crawlpipe/internal/browserfetch"
	"github.com/northbound/crawlpipe/internal/fetch"
	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/urlutil"
)

// PageResult is the uniform output of every crawl strategy.
type PageResult struct {
	URL             string
	SourceURL       string
	Title           string
	HTMLContent     string
	MarkdownContent string
	WordCount       int
	CharCount       int
	DiscoveredLinks []string
	Metadata        map[string]any
}

// cacheModes labels the 3-attempt retry ladder: an honest first try, then
// two cache-bypassing retries. The label is handed to fetchPage, but neither
// the HTTP client nor the browser pool keeps a cache, so it does not change
// how a page is fetched.
var cacheModes = []string{"ENABLED", "BYPASS", "BYPASS"}

var docKeywords = []string{
	"readthedocs", "docusaurus", "vitepress", "gitbook", "mkdocs",
	"docsify", "nextra", "nuxt-content", "sphinx", "storybook",
}

var docPathHints = []string{"/docs/", "/documentation", "/guide", "/handbook", "/kb/"}

// navigationSelectors are pruned from the HTML before markdown conversion
// when the caller requests link-pruning, so chrome like a sidebar table of
// contents doesn't bleed into stored content.
var navigationSelectors = []string{
	"nav", "header", "aside", "[role='navigation']",
	"[data-testid='sidebar']", ".sidebar", ".toc", ".table-of-contents",
}

// IsDocumentationSite heuristically flags documentation frameworks so the
// single-page strategy knows to prefer browser rendering and a generous
// content wait selector.
func IsDocumentationSite(pageURL, html string) bool {
	lower := strings.ToLower(pageURL)
	for _, kw := range docKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, hint := range docPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}

	if html == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	found := false
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := strings.ToLower(strings.Join([]string{
			attrOrEmpty(s, "content"), attrOrEmpty(s, "name"), attrOrEmpty(s, "property"),
		}, " "))
		for _, kw := range docKeywords {
			if strings.Contains(content, kw) {
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return true
	}

	bodyClass := strings.ToLower(doc.Find("body").AttrOr("class", ""))
	for _, kw := range docKeywords {
		if strings.Contains(bodyClass, kw) {
			return true
		}
	}

	if doc.Find(`[data-theme="docs"]`).Length() > 0 {
		return true
	}
	if doc.Find(".theme-doc-markdown").Length() > 0 {
		return true
	}
	return false
}

func attrOrEmpty(s *goquery.Selection, attr string) string {
	v, _ := s.Attr(attr)
	return v
}

// Fetcher is the single-page strategy's view of page fetching — satisfied
// by fetch.Client and browserfetch.Pool.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// BrowserFetcher is the escalation path when the HTTP fetch isn't enough.
type BrowserFetcher interface {
	Fetch(ctx context.Context, url, waitSelector string, timeout time.Duration) (fetch.Result, error)
}

// SinglePage crawls exactly one URL, escalating to a headless browser when
// the page is a known documentation framework or when the first HTTP fetch
// comes back suspiciously short.
type SinglePage struct {
	HTTP        Fetcher
	Browser     BrowserFetcher
	PageTimeout time.Duration
}

// NewSinglePage builds a SinglePage strategy over the given fetchers.
func NewSinglePage(httpClient Fetcher, browser BrowserFetcher, pageTimeout time.Duration) *SinglePage {
	return &SinglePage{HTTP: httpClient, Browser: browser, PageTimeout: pageTimeout}
}

// Crawl fetches url and converts it to markdown, making up to 3 attempts and
// escalating to browser rendering on failure or on suspiciously short HTML.
// nativeLinks selects how DiscoveredLinks is populated: from the rendered
// markdown (the single-page default) or by walking the fetched HTML's
// anchor tags directly, as the recursive strategy requires so depth
// expansion never depends on markdown conversion succeeding. pruneNav
// strips navigation chrome from the HTML before conversion.
func (s *SinglePage) Crawl(ctx context.Context, pageURL string, sourceURL string, includeLinks bool, preferBrowser bool, nativeLinks bool, pruneNav bool) (PageResult, error) {
	effectiveURL := urlutil.TransformGitHubURL(pageURL)
	docSite := IsDocumentationSite(effectiveURL, "")
	useBrowser := preferBrowser || docSite

	const attempts = 3
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return PageResult{}, ctx.Err()
		default:
		}

		cacheMode := cacheModes[min(attempt, len(cacheModes)-1)]

		result, err := s.fetchPage(ctx, effectiveURL, useBrowser, cacheMode, docSite)
		if err != nil {
			logger.Warnf("crawlstrategy: single-page fetch of %s failed: %v", effectiveURL, err)
			useBrowser = true
			lastErr = err
			sleepWithBackoff(ctx, attempt)
			continue
		}

		if len(result.HTML) < 50 && !useBrowser {
			logger.Debugf("crawlstrategy: escalating to browser for %s due to short HTML", effectiveURL)
			useBrowser = true
			sleepWithBackoff(ctx, 0)
			continue
		}

		return s.buildResult(result, sourceURL, includeLinks, nativeLinks, pruneNav), nil
	}

	return PageResult{}, fmt.Errorf("failed to crawl %s after %d attempts: %w", effectiveURL, attempts, lastErr)
}

func (s *SinglePage) fetchPage(ctx context.Context, url string, useBrowser bool, cacheMode string, docSite bool) (fetch.Result, error) {
	if !useBrowser {
		return s.HTTP.Fetch(ctx, url)
	}

	waitSelector := "main"
	if docSite {
		waitSelector = "article, main, .markdown"
	}
	return s.Browser.Fetch(ctx, url, waitSelector, s.PageTimeout)
}

func (s *SinglePage) buildResult(fr fetch.Result, sourceURL string, includeLinks bool, nativeLinks bool, pruneNav bool) PageResult {
	title := extractTitle(fr.HTML)
	markdown := htmlToMarkdown(fr.HTML, pruneNav)

	var links []string
	if includeLinks {
		if nativeLinks {
			for _, link := range extractNativeLinks(fr.HTML, fr.FinalURL) {
				if !urlutil.IsBinaryFile(link) {
					links = append(links, urlutil.NormalizeURL(link))
				}
			}
		} else if markdown != "" {
			for _, link := range urlutil.IterLinksFromMarkdown(markdown) {
				if !urlutil.IsBinaryFile(link) {
					links = append(links, urlutil.NormalizeURL(link))
				}
			}
		}
	}

	return PageResult{
		URL:             fr.FinalURL,
		SourceURL:       sourceURL,
		Title:           title,
		HTMLContent:     fr.HTML,
		MarkdownContent: markdown,
		WordCount:       len(strings.Fields(markdown)),
		CharCount:       len(markdown),
		DiscoveredLinks: links,
		Metadata: map[string]any{
			"source_id":    urlutil.GenerateUniqueSourceID(fr.FinalURL),
			"from_browser": fr.FromBrowser,
			"content_type": fr.ContentType,
		},
	}
}

func extractTitle(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// htmlToMarkdown strips script/style/noscript unconditionally, and
// additionally strips navigationSelectors when pruneNav is set, before
// handing the HTML to the markdown converter.
func htmlToMarkdown(html string, pruneNav bool) string {
	if html == "" {
		return ""
	}
	cleaned := stripNonContent(html, pruneNav)
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return ""
	}
	return markdown
}

func stripNonContent(html string, pruneNav bool) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, noscript").Remove()
	if pruneNav {
		for _, selector := range navigationSelectors {
			doc.Find(selector).Remove()
		}
	}

	out, err := doc.Html()
	if err != nil {
		return html
	}
	return out
}

// extractNativeLinks walks the fetched HTML's anchor tags directly, without
// going through markdown, resolving relative hrefs against baseURL.
func extractNativeLinks(html, baseURL string) []string {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		resolved := urlutil.ResolveRelativeURL(baseURL, href)
		if s := urlutil.SanitizeURL(resolved); s != "" {
			links = append(links, s)
		}
	})
	return links
}

func sleepWithBackoff(ctx context.Context, attempt int) {
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
