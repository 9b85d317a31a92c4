package orchestrator

import "testing"

func TestStableIDDeterministic(t *testing.T) {
	a := stableID("coll", "https://example.com/a", 2)
	b := stableID("coll", "https://example.com/a", 2)
	if a != b {
		t.Error("expected deterministic ID")
	}
	if a == stableID("coll", "https://example.com/a", 3) {
		t.Error("expected different chunk index to produce different ID")
	}
	if a == stableID("other", "https://example.com/a", 2) {
		t.Error("expected different collection to produce different ID")
	}
}
