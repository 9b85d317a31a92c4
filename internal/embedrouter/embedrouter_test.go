package embedrouter

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeEmbedder struct {
	mu         sync.Mutex
	failOnce   map[ModelHint]bool
	failAlways map[ModelHint]bool
	calls      int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, hint ModelHint) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.failOnce[hint] || f.failAlways[hint]
	if f.failOnce[hint] {
		f.failOnce[hint] = false
	}
	f.mu.Unlock()

	if shouldFail {
		return nil, errors.New("simulated failure")
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func TestEmbedAllSingleModel(t *testing.T) {
	r := NewRouter(&fakeEmbedder{failOnce: map[ModelHint]bool{}}, 2, true)
	items := []Item{
		{Text: "a", ModelHint: TextModel},
		{Text: "b", ModelHint: TextModel},
		{Text: "c", ModelHint: TextModel},
	}
	vectors := r.EmbedAll(context.Background(), items)
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 3 {
			t.Errorf("vector %d has wrong length: %v", i, v)
		}
	}
}

func TestEmbedAllUnifiedParallel(t *testing.T) {
	r := NewRouter(&fakeEmbedder{failOnce: map[ModelHint]bool{}}, 1, true)
	items := []Item{
		{Text: "text1", ModelHint: TextModel},
		{Text: "code1", ModelHint: CodeModel},
		{Text: "text2", ModelHint: TextModel},
	}
	vectors := r.EmbedAll(context.Background(), items)
	for i, v := range vectors {
		if v == nil {
			t.Errorf("vector %d is nil", i)
		}
	}
}

func TestEmbedAllFailureFallsBackToZeroVector(t *testing.T) {
	embedder := &fakeEmbedder{failOnce: map[ModelHint]bool{}}
	r := NewRouter(embedder, 10, false)
	// force permanent failure by always failing
	embedder.failAlways = map[ModelHint]bool{TextModel: true}
	items := []Item{{Text: "a", ModelHint: TextModel}}

	vectors := r.EmbedAll(context.Background(), items)
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if len(vectors[0]) != 768 {
		t.Errorf("expected 768-dim zero vector fallback, got len %d", len(vectors[0]))
	}
	for _, f := range vectors[0] {
		if f != 0 {
			t.Fatal("expected all-zero fallback vector")
		}
	}
}

func TestEmbedAllSequentialWhenParallelDisabled(t *testing.T) {
	r := NewRouter(&fakeEmbedder{failOnce: map[ModelHint]bool{}}, 5, false)
	items := []Item{
		{Text: "t", ModelHint: TextModel},
		{Text: "c", ModelHint: CodeModel},
	}
	vectors := r.EmbedAll(context.Background(), items)
	if len(vectors) != 2 || vectors[0] == nil || vectors[1] == nil {
		t.Fatalf("expected both vectors populated, got %v", vectors)
	}
}
