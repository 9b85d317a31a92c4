// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package discovery probes a set of seed URLs for an auxiliary manifest
// file — an llms.txt variant, a sitemap, or robots.txt — preferring llms
// manifests, then falling back through sitemaps to robots.txt. Every probe
// is SSRF-guarded: hostnames are resolved and rejected if any resolved
// address is not globally routable.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/urlutil"
)

const maxResponseBytes = 10 * 1024 * 1024

// File is a discovered auxiliary document.
type File struct {
	URL         string
	Content     string
	ContentType string
}

// ErrBlocked is returned by validateHostname (wrapped) when SSRF guards
// reject a candidate's resolved address.
var ErrBlocked = errors.New("blocked non-public address")

// Service probes seed URLs for llms/sitemap/robots manifests. A probe run
// walks up to eight well-known paths per seed, all against the same origin,
// so probes are throttled per host the same way crawl fetches are.
type Service struct {
	Client  *http.Client
	MaxByte int64

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Service with sane HTTP timeouts matching the 10s/5s-connect
// budget the orchestrator allots discovery, probing each host at up to 5
// requests/sec with a burst of 3.
func New() *Service {
	return &Service{
		Client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		MaxByte:  maxResponseBytes,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the token bucket for host, creating it on first use.
func (s *Service) limiterFor(host string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()

	lim, ok := s.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(5), 3)
		s.limiters[host] = lim
	}
	return lim
}

// DiscoverFiles probes every seed in turn, in priority order (llms.txt,
// llms-full.txt and their .well-known variants, then sitemap.xml and
// sitemap_index.xml, then robots.txt and .well-known/robots.txt), returning the first
// successful probe or nil if none resolves to anything useful. Only paths
// at the seed's origin are probed; the seed's own directory and other
// subdirectories are not.
func (s *Service) DiscoverFiles(ctx context.Context, seeds []string) *File {
	var candidates []string
	for _, seed := range seeds {
		normalized := urlutil.EnsureHTTPS(seed)
		candidates = append(candidates, s.buildCandidateURLs(normalized)...)
	}

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		result, err := s.attemptFetch(ctx, candidate)
		if err != nil {
			logger.Debugf("discovery: probe %s failed: %v", candidate, err)
			continue
		}
		if result != nil {
			return result
		}
	}
	return nil
}

func (s *Service) buildCandidateURLs(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	origin := u.Scheme + "://" + u.Host
	return []string{
		origin + "/llms.txt",
		origin + "/llms-full.txt",
		origin + "/.well-known/llms.txt",
		origin + "/.well-known/llms-full.txt",
		origin + "/sitemap.xml",
		origin + "/sitemap_index.xml",
		origin + "/robots.txt",
		origin + "/.well-known/robots.txt",
	}
}

func (s *Service) attemptFetch(ctx context.Context, candidate string) (*File, error) {
	safeURL := urlutil.SanitizeURL(candidate)
	if safeURL == "" {
		return nil, nil
	}
	if err := s.validateHostname(safeURL); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(safeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if err := s.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("discovery: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, safeURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "crawlpipe")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil
	}

	limited := io.LimitReader(resp.Body, s.MaxByte+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.MaxByte {
		return nil, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	text := string(body)

	if urlutil.IsLlmsVariant(safeURL) {
		return &File{URL: safeURL, Content: text, ContentType: contentType}, nil
	}
	if urlutil.IsSitemap(safeURL) {
		return &File{URL: safeURL, Content: text, ContentType: contentType}, nil
	}
	if urlutil.IsRobotsTxt(safeURL) {
		if sitemapURL := s.extractSitemapFromRobots(text, safeURL); sitemapURL != "" {
			if nested, err := s.attemptFetch(ctx, sitemapURL); err == nil && nested != nil {
				return nested, nil
			}
		}
		return &File{URL: safeURL, Content: text, ContentType: contentType}, nil
	}
	if strings.Contains(contentType, "text/html") {
		if sitemapURL := s.extractMetaSitemap(text, safeURL); sitemapURL != "" {
			if nested, err := s.attemptFetch(ctx, sitemapURL); err == nil && nested != nil {
				return nested, nil
			}
		}
	}
	return nil, nil
}

// validateHostname rejects any candidate whose host is, or resolves to, a
// non-global address — the SSRF guard applied before every discovery probe.
func (s *Service) validateHostname(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("invalid URL: missing hostname")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if !isGlobalUnicast(ip) {
			return fmt.Errorf("%w: literal IP %s", ErrBlocked, hostname)
		}
		return nil
	}

	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("failed to resolve host %s: %w", hostname, err)
	}
	for _, addr := range addrs {
		if !isGlobalUnicast(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlocked, hostname, addr)
		}
	}
	return nil
}

// isGlobalUnicast mirrors Python's ipaddress.IPv4Address.is_global: reject
// private, loopback, link-local, multicast, unspecified, and reserved
// ranges (including the 169.254.169.254 cloud metadata address, which falls
// under link-local).
func isGlobalUnicast(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return false
	}
	for _, cidr := range []string{
		"0.0.0.0/8", "100.64.0.0/10", "192.0.0.0/24", "192.0.2.0/24", "198.18.0.0/15",
		"198.51.100.0/24", "203.0.113.0/24", "240.0.0.0/4", "2001:db8::/32",
	} {
		if _, block, err := net.ParseCIDR(cidr); err == nil && block.Contains(ip) {
			return false
		}
	}
	return true
}

func (s *Service) extractSitemapFromRobots(robotsText, robotsURL string) string {
	for _, line := range strings.Split(robotsText, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(trimmed), "sitemap:") {
			continue
		}
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) == 2 {
			if sitemapURL := strings.TrimSpace(parts[1]); sitemapURL != "" {
				return sitemapURL
			}
		}
	}
	idx := strings.LastIndex(robotsURL, "/")
	if idx < 0 {
		return ""
	}
	origin := robotsURL[:idx]
	return origin + "/sitemap.xml"
}

func (s *Service) extractMetaSitemap(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	href, exists := doc.Find(`link[rel="sitemap"]`).First().Attr("href")
	if !exists || href == "" {
		href, exists = doc.Find(`meta[name="sitemap"]`).First().Attr("content")
		if !exists || href == "" {
			return ""
		}
	}
	return urlutil.ResolveRelativeURL(baseURL, href)
}
