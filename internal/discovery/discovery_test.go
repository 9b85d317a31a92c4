package discovery

import (
	"net"
	"testing"
)

func TestIsGlobalUnicast(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"169.254.169.254", false}, // cloud metadata address, link-local range
		{"127.0.0.1", false},
		{"10.0.0.5", false},
		{"192.168.1.1", false},
		{"8.8.8.8", true},
		{"1.1.1.1", true},
	}
	for _, c := range cases {
		ip := net.ParseIP(c.ip)
		if ip == nil {
			t.Fatalf("failed to parse %s", c.ip)
		}
		if got := isGlobalUnicast(ip); got != c.want {
			t.Errorf("isGlobalUnicast(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestValidateHostnameBlocksMetadataIP(t *testing.T) {
	svc := New()
	err := svc.validateHostname("http://169.254.169.254/latest/meta-data/")
	if err == nil {
		t.Fatal("expected validateHostname to reject cloud metadata address")
	}
}

func TestExtractSitemapFromRobotsFallsBackToGuess(t *testing.T) {
	svc := New()
	got := svc.extractSitemapFromRobots("User-agent: *\nDisallow: /admin\n", "https://example.com/robots.txt")
	if got != "https://example.com/sitemap.xml" {
		t.Errorf("expected guessed sitemap.xml fallback, got %q", got)
	}
}

func TestExtractSitemapFromRobotsExplicit(t *testing.T) {
	svc := New()
	got := svc.extractSitemapFromRobots("Sitemap: https://example.com/sm.xml\n", "https://example.com/robots.txt")
	if got != "https://example.com/sm.xml" {
		t.Errorf("expected explicit sitemap declaration, got %q", got)
	}
}

func TestBuildCandidateURLsOrder(t *testing.T) {
	svc := New()
	got := svc.buildCandidateURLs("https://example.com/docs/page")
	want := []string{
		"https://example.com/llms.txt",
		"https://example.com/llms-full.txt",
		"https://example.com/.well-known/llms.txt",
		"https://example.com/.well-known/llms-full.txt",
		"https://example.com/sitemap.xml",
		"https://example.com/sitemap_index.xml",
		"https://example.com/robots.txt",
		"https://example.com/.well-known/robots.txt",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
