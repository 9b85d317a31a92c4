package chunk

import "testing"

func TestSmartChunkerSinglePageText(t *testing.T) {
	sc, err := NewSmartChunker(1000, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	chunks := sc.ChunkText("Hello. World.", "https://example.com/a")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].IsCode {
		t.Error("expected is_code=false for plain text")
	}
	if chunks[0].ModelHint != TextModel {
		t.Errorf("expected text-model hint, got %s", chunks[0].ModelHint)
	}
}

func TestSmartChunkerMarkdownWithFencedCode(t *testing.T) {
	sc, err := NewSmartChunker(1000, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	text := "Some intro prose.\n\n```python\ndef f():\n    return 1\n```\n\nMore prose after."
	chunks := sc.ChunkText(text, "https://example.com/doc")
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	var codeChunk *Chunk
	for i := range chunks {
		if chunks[i].IsCode {
			codeChunk = &chunks[i]
			break
		}
	}
	if codeChunk == nil {
		t.Fatal("expected one chunk covering the fenced code block")
	}
	if codeChunk.Language != "python" {
		t.Errorf("expected language python, got %s", codeChunk.Language)
	}
	if codeChunk.ModelHint != CodeModel {
		t.Errorf("expected code-model hint, got %s", codeChunk.ModelHint)
	}
	if codeChunk.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for markdown-fenced code, got %f", codeChunk.Confidence)
	}
}

func TestSmartChunkerChunkIndexIsSequential(t *testing.T) {
	sc, err := NewSmartChunker(20, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	chunks := sc.ChunkText("one two three four five six seven eight nine ten eleven twelve", "src")
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d", i, c.ChunkIndex)
		}
	}
}
