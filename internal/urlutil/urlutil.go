// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package urlutil collects the pure, side-effect-free URL munging logic
// shared by discovery and the crawl strategies: normalization, GitHub blob
// rewriting, binary/sitemap/llms/robots classification, and markdown link
// extraction. Nothing here performs network I/O.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var githubBlobPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/blob/([^/]+?)/(.+)$`)

var markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

var wellKnownPrefixes = []string{
	"/.well-known/llms.txt",
	"/.well-known/llms-full.txt",
	"/.well-known/robots.txt",
}

// binaryExtensions is the fixed suffix table used by IsBinaryFile. Kept in
// the same grouping as the reference implementation for easy auditing.
var binaryExtensions = []string{
	// Archives
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".rar", ".7z", ".iso",
	// Images
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".svg", ".ico", ".webp",
	// Audio
	".mp3", ".wav", ".aac", ".ogg", ".flac", ".m4a",
	// Video
	".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv",
	// Documents / binaries
	".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx",
	".exe", ".bin", ".dll", ".dmg", ".pkg", ".msi",
	// Fonts
	".ttf", ".otf", ".woff", ".woff2",
	// Misc
	".dat", ".img", ".class", ".pyc", ".wasm",
}

// MarkdownLink is a (text, href) pair extracted from markdown content.
type MarkdownLink struct {
	Text string
	URL  string
}

// TransformGitHubURL rewrites a github.com blob URL into its raw.githubusercontent.com
// equivalent. URLs that don't match the blob pattern are returned unchanged.
func TransformGitHubURL(rawURL string) string {
	m := githubBlobPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}
	owner, repo, branch, path := m[1], m[2], m[3], m[4]
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/" + branch + "/" + path
}

// IsSitemap reports whether url looks like a sitemap resource.
func IsSitemap(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, "sitemap") || strings.Contains(lower, "/sitemap")
}

// IsTxt reports whether url has a plain-text suffix.
func IsTxt(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".text")
}

// IsMarkdown reports whether url has a markdown suffix.
func IsMarkdown(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx")
}

// IsLlmsVariant reports whether url references an llms.txt manifest,
// including its .well-known variants.
func IsLlmsVariant(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if strings.HasSuffix(lower, "llms.txt") || strings.HasSuffix(lower, "llms-full.txt") {
		return true
	}
	for _, prefix := range wellKnownPrefixes {
		if strings.HasSuffix(lower, prefix) {
			return true
		}
	}
	return false
}

// IsRobotsTxt reports whether url references robots.txt.
func IsRobotsTxt(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, "robots.txt") || strings.HasSuffix(lower, "/.well-known/robots.txt")
}

// IsBinaryFile reports whether the URL's path ends in a known binary
// extension. A URL with no path segment (bare origin) is never binary.
func IsBinaryFile(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	if path == "" {
		return false
	}
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ExtractMarkdownLinks returns every [text](href) pair in markdown, skipping
// matches with an empty text or href side.
func ExtractMarkdownLinks(markdown string) []MarkdownLink {
	matches := markdownLinkPattern.FindAllStringSubmatch(markdown, -1)
	links := make([]MarkdownLink, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(m[1])
		href := strings.TrimSpace(m[2])
		if text == "" || href == "" {
			continue
		}
		links = append(links, MarkdownLink{Text: text, URL: href})
	}
	return links
}

// GenerateUniqueSourceID returns the first 32 hex characters of
// sha256(normalize(url)), used to deduplicate pages across crawl sessions.
func GenerateUniqueSourceID(rawURL string) string {
	normalized := NormalizeURL(rawURL)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:32]
}

// NormalizeURL returns scheme://host/path[?query] with a default https
// scheme and trailing slash stripped.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	normalized := scheme + "://" + u.Host + path
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return strings.TrimSuffix(normalized, "/")
}

// IsSameDomain reports whether two URLs share the same host.
func IsSameDomain(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Host == ub.Host
}

// ResolveRelativeURL resolves link against base, following standard URL
// reference resolution.
func ResolveRelativeURL(base, link string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(ref).String()
}

// SanitizeURL returns rawURL unchanged if it has an http(s) scheme,
// otherwise "".
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return rawURL
}

// EnsureHTTPS upgrades a URL's scheme to https, leaving https URLs alone.
func EnsureHTTPS(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "https" {
		return rawURL
	}
	u.Scheme = "https"
	return u.String()
}

// IterLinksFromMarkdown returns every sanitized http(s) URL found in
// markdown link syntax.
func IterLinksFromMarkdown(markdown string) []string {
	links := ExtractMarkdownLinks(markdown)
	out := make([]string, 0, len(links))
	for _, l := range links {
		if s := SanitizeURL(l.URL); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FilterSameDomainLinks keeps only links that share base's domain.
func FilterSameDomainLinks(base string, links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if IsSameDomain(base, l) {
			out = append(out, l)
		}
	}
	return out
}
