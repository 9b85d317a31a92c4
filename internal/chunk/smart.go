// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunk

import (
	"github.com/northbound/crawlpipe/internal/codedetect"
)

// ModelHint routes a chunk to the embedding endpoint suited to its content.
type ModelHint string

const (
	TextModel ModelHint = "text-model"
	CodeModel ModelHint = "code-model"
)

// Chunk is the unit the rest of the pipeline operates on from here on:
// embedding, storage, and search all key off these fields.
type Chunk struct {
	Text       string
	IsCode     bool
	Language   string
	StartChar  int
	EndChar    int
	ChunkIndex int
	Confidence float64
	SourcePath string
	ModelHint  ModelHint
}

// SmartChunker composes the recursive splitter, the markdown segmenter, and
// the code detector: markdown with fenced code is split segment-by-segment
// so code/text boundaries never get merged into the same chunk, otherwise
// the whole document is split once and each resulting chunk is classified.
type SmartChunker struct {
	splitter *Splitter
	detector *codedetect.Detector
}

// NewSmartChunker builds a SmartChunker from a chunk_size/chunk_overlap pair
// and whether tree-sitter parsing is enabled for code detection.
func NewSmartChunker(chunkSize, chunkOverlap int, enableTreeSitter bool) (*SmartChunker, error) {
	splitter, err := NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return &SmartChunker{
		splitter: splitter,
		detector: codedetect.New(enableTreeSitter),
	}, nil
}

// ChunkText produces the final Chunk sequence for one document. sourcePath
// is carried through for provenance (the originating PageResult.url) and,
// when it has a recognizable extension, seeds a language hint for the
// non-markdown path.
func (c *SmartChunker) ChunkText(text, sourcePath string) []Chunk {
	if ContainsFencedCode(text) {
		return c.chunkMarkdownWithCode(text, sourcePath)
	}
	return c.chunkPlain(text, sourcePath)
}

func (c *SmartChunker) chunkMarkdownWithCode(text, sourcePath string) []Chunk {
	segments := ExtractSegments(text)
	var chunks []Chunk
	index := 0

	for _, seg := range segments {
		textChunks := c.splitter.Split(seg.Content)
		for _, tc := range textChunks {
			hint := TextModel
			language := seg.Language
			if seg.IsCode {
				hint = CodeModel
			} else {
				language = "markdown"
			}
			chunks = append(chunks, Chunk{
				Text:       tc.Text,
				IsCode:     seg.IsCode,
				Language:   language,
				StartChar:  seg.StartPos + tc.StartChar,
				EndChar:    seg.StartPos + tc.EndChar,
				ChunkIndex: index,
				Confidence: 1.0,
				SourcePath: sourcePath,
				ModelHint:  hint,
			})
			index++
		}
	}
	return chunks
}

func (c *SmartChunker) chunkPlain(text, sourcePath string) []Chunk {
	hint := codedetect.LanguageFromExtension(sourcePath)
	textChunks := c.splitter.Split(text)

	chunks := make([]Chunk, 0, len(textChunks))
	for i, tc := range textChunks {
		detection := c.detector.Detect(tc.Text, hint)

		modelHint := TextModel
		language := "text"
		if detection.IsCode {
			modelHint = CodeModel
			language = string(detection.Language)
		}

		chunks = append(chunks, Chunk{
			Text:       tc.Text,
			IsCode:     detection.IsCode,
			Language:   language,
			StartChar:  tc.StartChar,
			EndChar:    tc.EndChar,
			ChunkIndex: i,
			Confidence: detection.Confidence,
			SourcePath: sourcePath,
			ModelHint:  modelHint,
		})
	}
	return chunks
}
