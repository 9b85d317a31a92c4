package crawlstrategy

import "testing"

func TestNormalizeNoFragment(t *testing.T) {
	got := normalizeNoFragment("https://example.com/a/b#section")
	want := "https://example.com/a/b"
	if got != want {
		t.Errorf("normalizeNoFragment = %q, want %q", got, want)
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://example.com/a/b"); got != "example.com" {
		t.Errorf("hostOf = %q, want example.com", got)
	}
}

func TestNewRecursiveDefaults(t *testing.T) {
	r := NewRecursive(nil, 0, 0, 80, true)
	if r.BatchSize != 50 {
		t.Errorf("expected default batch size 50, got %d", r.BatchSize)
	}
	if r.MaxConcurrent != 10 {
		t.Errorf("expected default max concurrent 10, got %d", r.MaxConcurrent)
	}
}

func TestMemoryDispatcherFailsOpen(t *testing.T) {
	d := newMemoryDispatcher(80, 10)
	if p := d.permits(); p <= 0 {
		t.Errorf("expected positive permits, got %d", p)
	}
}
