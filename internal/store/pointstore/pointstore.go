// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package pointstore is the Qdrant-backed vector store: one collection
// per scope, each point carrying a named dense vector ("vector") and an
// optional named sparse vector ("sparse") so hybrid dense/sparse search
// can run against the same collection later without a schema migration.
package pointstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/northbound/crawlpipe/internal/logger"
)

const (
	denseVectorName  = "vector"
	sparseVectorName = "sparse"
)

// SparseVector is an optional sparse component for a point — index/value
// pairs over a term vocabulary. Chunks that carry none upsert dense-only.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// StoredChunk is the payload persisted alongside a point's vector.
type StoredChunk struct {
	ID           string
	Vector       []float32
	Sparse       *SparseVector
	ChunkText    string
	Summary      string
	IsCode       bool
	Language     string
	RelativePath string
	ChunkIndex   int
	StartChar    int
	EndChar      int
	ModelUsed    string
	ProjectID    string
	DatasetID    string
	Scope        string
	Metadata     map[string]any
}

// Store wraps the Qdrant gRPC collections/points services with the
// hybrid-vector collection schema this pipeline standardizes on.
type Store struct {
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	batchSize   int
}

// New builds a Store from an existing gRPC connection (the caller owns
// dialing/closing it, matching the teacher's NewQdrantVectorDB shape).
func New(conn *grpc.ClientConn, batchSize int) (*Store, error) {
	if conn == nil {
		return nil, errors.New("pointstore: gRPC connection is required")
	}
	if batchSize < 1 {
		batchSize = 100
	}
	return &Store{
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		batchSize:   batchSize,
	}, nil
}

// CreateCollection ensures collection exists with a dense cosine vector
// channel and a sparse (IDF-modified) vector channel, skipping creation
// if it already exists.
func (s *Store) CreateCollection(ctx context.Context, collection string, dimension int) error {
	existing, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("pointstore: list collections: %w", err)
	}
	for _, c := range existing.Collections {
		if c.Name == collection {
			logger.Debugf("pointstore: collection %s already exists", collection)
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_ParamsMap{
				ParamsMap: &qdrant.VectorParamsMap{
					Map: map[string]*qdrant.VectorParams{
						denseVectorName: {
							Size:     uint64(dimension),
							Distance: qdrant.Distance_Cosine,
						},
					},
				},
			},
		},
		SparseVectorsConfig: &qdrant.SparseVectorConfig{
			Map: map[string]*qdrant.SparseVectorParams{
				sparseVectorName: {
					Modifier: qdrant.Modifier_Idf.Enum(),
				},
			},
		},
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			logger.Debugf("pointstore: collection %s already exists", collection)
			return nil
		}
		return fmt.Errorf("pointstore: create collection: %w", err)
	}

	logger.Printf("pointstore: created collection %s (%dd, hybrid dense+sparse)", collection, dimension)
	return nil
}

// InsertChunks upserts chunks as points in batches, encoding the full
// chunk payload (summary, code-detection result, scope, provenance).
func (s *Store) InsertChunks(ctx context.Context, collection string, chunks []StoredChunk) (int, error) {
	inserted := 0

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		points := make([]*qdrant.PointStruct, 0, len(batch))
		for _, chunk := range batch {
			point, err := toPointStruct(chunk)
			if err != nil {
				return inserted, fmt.Errorf("pointstore: build point %s: %w", chunk.ID, err)
			}
			points = append(points, point)
		}

		if _, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		}); err != nil {
			return inserted, fmt.Errorf("pointstore: upsert batch: %w", err)
		}

		inserted += len(batch)
		logger.Debugf("pointstore: inserted %d/%d chunk points into %s", inserted, len(chunks), collection)
	}

	return inserted, nil
}

// Match is a single similarity-search hit.
type Match struct {
	ID        string
	Score     float32
	ChunkText string
	Summary   string
	IsCode    bool
	Language  string
	Metadata  map[string]any
}

// Search runs a cosine-similarity search against a collection's dense
// vector channel. filterCode/filterText, when true, restrict to is_code
// true/false respectively; both false applies no code/text filter.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, filterCode, filterText bool) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}

	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		VectorName:     strPtr(denseVectorName),
		Limit:          uint64(limit),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	}
	if filterCode && !filterText {
		req.Filter = matchBoolFilter("is_code", true)
	} else if filterText && !filterCode {
		req.Filter = matchBoolFilter("is_code", false)
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pointstore: search %s: %w", collection, err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, p := range resp.Result {
		matches = append(matches, scoredPointToMatch(p))
	}
	return matches, nil
}

func strPtr(s string) *string { return &s }

func matchBoolFilter(field string, value bool) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   field,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: value}},
					},
				},
			},
		},
	}
}

func scoredPointToMatch(p *qdrant.ScoredPoint) Match {
	m := Match{Score: p.Score}
	if id := p.Id; id != nil {
		if uid, ok := id.PointIdOptions.(*qdrant.PointId_Uuid); ok {
			m.ID = uid.Uuid
		}
	}
	payload := p.Payload
	if v, ok := payload["chunk_text"]; ok {
		m.ChunkText = v.GetStringValue()
	}
	if v, ok := payload["summary"]; ok {
		m.Summary = v.GetStringValue()
	}
	if v, ok := payload["is_code"]; ok {
		m.IsCode = v.GetBoolValue()
	}
	if v, ok := payload["language"]; ok {
		m.Language = v.GetStringValue()
	}
	if v, ok := payload["metadata"]; ok {
		var meta map[string]any
		if err := json.Unmarshal([]byte(v.GetStringValue()), &meta); err == nil {
			m.Metadata = meta
		}
	}
	return m
}

func toPointStruct(chunk StoredChunk) (*qdrant.PointStruct, error) {
	namedVectors := map[string]*qdrant.Vector{
		denseVectorName: {Data: chunk.Vector},
	}
	if chunk.Sparse != nil && len(chunk.Sparse.Values) > 0 {
		namedVectors[sparseVectorName] = &qdrant.Vector{
			Data:    chunk.Sparse.Values,
			Indices: &qdrant.SparseIndices{Data: chunk.Sparse.Indices},
		}
	}

	metadataJSON, err := json.Marshal(orEmptyMap(chunk.Metadata))
	if err != nil {
		return nil, err
	}

	payload := map[string]*qdrant.Value{
		"chunk_text":    stringValue(chunk.ChunkText),
		"summary":       stringValue(chunk.Summary),
		"is_code":       boolValue(chunk.IsCode),
		"language":      stringValue(chunk.Language),
		"relative_path": stringValue(chunk.RelativePath),
		"chunk_index":   intValue(int64(chunk.ChunkIndex)),
		"start_char":    intValue(int64(chunk.StartChar)),
		"end_char":      intValue(int64(chunk.EndChar)),
		"model_used":    stringValue(chunk.ModelUsed),
		"project_id":    stringValue(chunk.ProjectID),
		"dataset_id":    stringValue(chunk.DatasetID),
		"scope":         stringValue(chunk.Scope),
		"metadata":      stringValue(string(metadataJSON)),
	}

	return &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: chunk.ID}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vectors{
				Vectors: &qdrant.NamedVectors{Vectors: namedVectors},
			},
		},
		Payload: payload,
	}, nil
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func boolValue(b bool) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: b}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
