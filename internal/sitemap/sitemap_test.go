package sitemap

import "testing"

func TestParseStringURLSet(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b/</loc></url>
</urlset>`

	urls := ParseString(body)
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestParseStringSitemapIndex(t *testing.T) {
	body := `<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-2.xml</loc></sitemap>
</sitemapindex>`

	urls := ParseString(body)
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
}

func TestParseStringMalformed(t *testing.T) {
	urls := ParseString("not xml at all")
	if len(urls) != 0 {
		t.Errorf("expected no urls from malformed xml, got %v", urls)
	}
}
