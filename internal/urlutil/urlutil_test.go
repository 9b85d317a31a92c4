package urlutil

import "testing"

func TestTransformGitHubURL(t *testing.T) {
	in := "https://github.com/acme/widgets/blob/main/README.md"
	want := "https://raw.githubusercontent.com/acme/widgets/main/README.md"
	if got := TransformGitHubURL(in); got != want {
		t.Errorf("TransformGitHubURL(%q) = %q, want %q", in, got, want)
	}

	unchanged := "https://example.com/docs"
	if got := TransformGitHubURL(unchanged); got != unchanged {
		t.Errorf("TransformGitHubURL(%q) = %q, want unchanged", unchanged, got)
	}
}

func TestIsBinaryFile(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.com/a.pdf", true},
		{"https://example.com/archive.tar.gz", true},
		{"https://example.com/docs/page", false},
		{"https://example.com/", false},
		{"https://example.com", false},
		{"https://example.com/photo.JPG", true},
	}
	for _, c := range cases {
		if got := IsBinaryFile(c.url); got != c.want {
			t.Errorf("IsBinaryFile(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestIsLlmsVariant(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.com/llms.txt", true},
		{"https://example.com/llms-full.txt", true},
		{"https://example.com/.well-known/llms.txt", true},
		{"https://example.com/sitemap.xml", false},
	}
	for _, c := range cases {
		if got := IsLlmsVariant(c.url); got != c.want {
			t.Errorf("IsLlmsVariant(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"example.com/a/", "https://example.com/a"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/a?b=1", "https://example.com/a?b=1"},
	}
	for _, c := range cases {
		if got := NormalizeURL(c.in); got != c.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGenerateUniqueSourceIDDeterministic(t *testing.T) {
	a := GenerateUniqueSourceID("https://example.com/a")
	b := GenerateUniqueSourceID("https://example.com/a/")
	if a != b {
		t.Errorf("expected normalized-equivalent URLs to hash identically, got %q != %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestExtractMarkdownLinks(t *testing.T) {
	md := "See [docs](https://example.com/docs) and [](https://empty.text) and [no-url]()."
	links := ExtractMarkdownLinks(md)
	if len(links) != 1 {
		t.Fatalf("expected 1 valid link, got %d: %+v", len(links), links)
	}
	if links[0].Text != "docs" || links[0].URL != "https://example.com/docs" {
		t.Errorf("unexpected link: %+v", links[0])
	}
}

func TestSanitizeURL(t *testing.T) {
	if got := SanitizeURL("ftp://example.com"); got != "" {
		t.Errorf("expected ftp scheme rejected, got %q", got)
	}
	if got := SanitizeURL("https://example.com"); got == "" {
		t.Errorf("expected https scheme accepted")
	}
}
