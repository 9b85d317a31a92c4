package pointstore

import "testing"

func TestToPointStructDenseOnly(t *testing.T) {
	chunk := StoredChunk{
		ID:        "11111111-1111-1111-1111-111111111111",
		Vector:    []float32{0.1, 0.2, 0.3},
		ChunkText: "hello world",
		IsCode:    false,
		Metadata:  map[string]any{"k": "v"},
	}

	point, err := toPointStruct(chunk)
	if err != nil {
		t.Fatal(err)
	}
	vecs := point.GetVectors().GetVectors().GetVectors()
	if _, ok := vecs[denseVectorName]; !ok {
		t.Fatal("expected dense vector channel")
	}
	if _, ok := vecs[sparseVectorName]; ok {
		t.Error("expected no sparse channel when chunk has none")
	}
	if point.GetId().GetUuid() != chunk.ID {
		t.Errorf("unexpected point id: %v", point.GetId())
	}
}

func TestToPointStructWithSparse(t *testing.T) {
	chunk := StoredChunk{
		ID:     "22222222-2222-2222-2222-222222222222",
		Vector: []float32{0.5},
		Sparse: &SparseVector{
			Indices: []uint32{1, 5, 9},
			Values:  []float32{0.9, 0.4, 0.2},
		},
	}

	point, err := toPointStruct(chunk)
	if err != nil {
		t.Fatal(err)
	}
	vecs := point.GetVectors().GetVectors().GetVectors()
	sparse, ok := vecs[sparseVectorName]
	if !ok {
		t.Fatal("expected sparse vector channel")
	}
	if len(sparse.GetIndices().GetData()) != 3 {
		t.Errorf("expected 3 sparse indices, got %d", len(sparse.GetIndices().GetData()))
	}
}

func TestToPointStructPayloadFields(t *testing.T) {
	chunk := StoredChunk{
		ID:         "33333333-3333-3333-3333-333333333333",
		Vector:     []float32{1},
		ChunkText:  "text",
		IsCode:     true,
		ChunkIndex: 4,
	}
	point, err := toPointStruct(chunk)
	if err != nil {
		t.Fatal(err)
	}
	if !point.Payload["is_code"].GetBoolValue() {
		t.Error("expected is_code true in payload")
	}
	if point.Payload["chunk_index"].GetIntegerValue() != 4 {
		t.Error("expected chunk_index 4 in payload")
	}
}

func TestOrEmptyMap(t *testing.T) {
	if m := orEmptyMap(nil); len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}
