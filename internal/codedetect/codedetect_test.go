package codedetect

import "testing"

func TestDetectTooShort(t *testing.T) {
	d := New(false)
	r := d.Detect("hi", Unknown)
	if r.IsCode {
		t.Fatal("expected short text to not be classified as code")
	}
}

func TestDetectHeuristicGo(t *testing.T) {
	d := New(false)
	src := `package main

func main() {
	x := 1
	fmt.Println(x)
}`
	r := d.Detect(src, Unknown)
	if !r.IsCode {
		t.Fatal("expected Go source to be detected as code")
	}
	if r.Language != Go {
		t.Errorf("expected language go, got %s", r.Language)
	}
}

func TestDetectHeuristicPython(t *testing.T) {
	d := New(false)
	src := `def greet(name):
    import sys
    class Foo:
        pass
    return f"hello {name}"`
	r := d.Detect(src, Unknown)
	if !r.IsCode || r.Language != Python {
		t.Fatalf("expected python code, got code=%v lang=%s", r.IsCode, r.Language)
	}
}

func TestDetectProse(t *testing.T) {
	d := New(false)
	r := d.Detect("This is just a plain sentence describing something in English prose, nothing more.", Unknown)
	if r.IsCode {
		t.Error("expected plain prose to not be detected as code")
	}
}

func TestDetectHintRespected(t *testing.T) {
	d := New(false)
	src := "SELECT * FROM users WHERE id = 1"
	r := d.Detect(src, SQL)
	if !r.IsCode || r.Language != SQL {
		t.Fatalf("expected SQL hint to be honored, got code=%v lang=%s", r.IsCode, r.Language)
	}
}

func TestLanguageFromExtension(t *testing.T) {
	cases := map[string]Language{
		"main.go":      Go,
		"script.py":    Python,
		"app.tsx":      TypeScript,
		"index.js":     JavaScript,
		"styles.css":   CSS,
		"README.md":    Markdown,
		"noextension":  Unknown,
		"query.sql":    SQL,
		"Program.java": Java,
	}
	for path, want := range cases {
		if got := LanguageFromExtension(path); got != want {
			t.Errorf("LanguageFromExtension(%q) = %s, want %s", path, got, want)
		}
	}
}
