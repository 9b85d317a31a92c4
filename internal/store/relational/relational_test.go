package relational

import "testing"

func TestSanitizeIndexName(t *testing.T) {
	cases := map[string]string{
		"project_my-project_dataset_docs.v2": "project_my_project_dataset_docs_v2",
		"Global_Knowledge":                   "global_knowledge",
	}
	for in, want := range cases {
		if got := sanitizeIndexName(in); got != want {
			t.Errorf("sanitizeIndexName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQualifiedTable(t *testing.T) {
	if got := qualifiedTable("project_acme"); got != "claude_context.project_acme" {
		t.Errorf("unexpected qualified table: %q", got)
	}
}

func TestNullableString(t *testing.T) {
	if v := nullableString(""); v != nil {
		t.Errorf("expected nil for empty string, got %v", v)
	}
	if v := nullableString("x"); v != "x" {
		t.Errorf("expected passthrough, got %v", v)
	}
}

func TestOrEmptyMap(t *testing.T) {
	if m := orEmptyMap(nil); m == nil || len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
	in := map[string]any{"a": 1}
	if m := orEmptyMap(in); len(m) != 1 {
		t.Errorf("expected passthrough map, got %v", m)
	}
}

func TestMarshalOrNull(t *testing.T) {
	v, err := marshalOrNull(nil)
	if err != nil || v != nil {
		t.Errorf("expected nil, nil for nil input, got %v, %v", v, err)
	}
	v, err = marshalOrNull(map[string]any{"kind": "function"})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := v.([]byte)
	if !ok || len(b) == 0 {
		t.Errorf("expected non-empty json bytes, got %v", v)
	}
}
