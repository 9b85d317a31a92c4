package chunk

import (
	"strings"
	"testing"
)

func TestNewSplitterRejectsBadOverlap(t *testing.T) {
	if _, err := NewSplitter(100, 100); err == nil {
		t.Fatal("expected error when overlap equals chunk size")
	}
	if _, err := NewSplitter(100, 200); err == nil {
		t.Fatal("expected error when overlap exceeds chunk size")
	}
}

func TestSplitCoversWholeDocument(t *testing.T) {
	s, err := NewSplitter(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if chunks[0].StartChar != 0 {
		t.Errorf("first chunk should start at 0, got %d", chunks[0].StartChar)
	}
	last := chunks[len(chunks)-1]
	if last.EndChar != len(text) {
		t.Errorf("last chunk should end at %d, got %d", len(text), last.EndChar)
	}
}

func TestSplitSingleShortChunk(t *testing.T) {
	s, err := NewSplitter(1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.Split("Hello. World.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short text, got %d", len(chunks))
	}
}

func TestOverlapBound(t *testing.T) {
	s, err := NewSplitter(40, 10)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("word ", 100)
	chunks := s.Split(text)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.StartChar < prev.StartChar {
			t.Errorf("chunk %d starts before previous chunk", i)
		}
		overlap := prev.EndChar - cur.StartChar
		if overlap > s.ChunkOverlap {
			t.Errorf("chunk %d overlaps previous by %d, exceeds bound %d", i, overlap, s.ChunkOverlap)
		}
	}
}

func TestEmptyText(t *testing.T) {
	s, _ := NewSplitter(100, 10)
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected nil for empty text, got %v", chunks)
	}
}
