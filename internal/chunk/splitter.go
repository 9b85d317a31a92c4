// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package chunk implements the text-splitting, markdown-code-extraction,
// and code/text routing stages of the chunking pipeline: a recursive
// separator-hierarchy splitter with overlap (TextChunk), a fenced-code-aware
// markdown segmenter, and the smart chunker that composes both with the
// code detector to attach a model-routing hint per chunk.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// TextChunk is a single output segment of the recursive splitter, offsets
// are byte positions into the originating text.
type TextChunk struct {
	Text      string
	StartChar int
	EndChar   int
}

// separators is the fixed priority hierarchy tried by the recursive
// splitter, from coarsest semantic unit to character-level fallback.
var separators = []string{
	"\n\n\n", // section breaks
	"\n\n",   // paragraph breaks
	"\n",     // line breaks
	". ",     // sentence ends
	"! ",     // exclamation ends
	"? ",     // question ends
	"; ",     // semicolon
	", ",     // comma
	" ",      // space
	"",       // character-level fallback
}

var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// Splitter splits text into overlapping chunks while preserving semantic
// boundaries, preferring header sections over arbitrary separators.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter validates chunk_size/chunk_overlap at construction — an
// overlap ≥ size is a configuration error, not a runtime one.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", chunkOverlap, chunkSize)
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split splits text into an ordered sequence of overlapping TextChunks
// covering [0, len(text)).
func (s *Splitter) Split(text string) []TextChunk {
	if text == "" {
		return nil
	}
	chunks := s.splitWithHeaders(text)
	return s.applyOverlap(chunks, text)
}

func (s *Splitter) splitWithHeaders(text string) []TextChunk {
	headerLocs := headerPattern.FindAllStringIndex(text, -1)
	if len(headerLocs) == 0 {
		return s.splitRecursive(text, 0)
	}

	var chunks []TextChunk
	for i, loc := range headerLocs {
		start := loc[0]
		end := len(text)
		if i+1 < len(headerLocs) {
			end = headerLocs[i+1][0]
		}
		section := text[start:end]

		if len(section) <= s.ChunkSize {
			chunks = append(chunks, TextChunk{Text: section, StartChar: start, EndChar: end})
		} else {
			chunks = append(chunks, s.splitRecursive(section, start)...)
		}
	}

	if headerLocs[0][0] > 0 {
		prefix := text[:headerLocs[0][0]]
		prefixChunks := s.splitRecursive(prefix, 0)
		chunks = append(prefixChunks, chunks...)
	}

	return chunks
}

func (s *Splitter) splitRecursive(text string, offset int) []TextChunk {
	if len(text) <= s.ChunkSize {
		return []TextChunk{{Text: text, StartChar: offset, EndChar: offset + len(text)}}
	}

	for _, sep := range separators {
		if sep == "" {
			return s.splitByCharacters(text, offset)
		}
		if strings.Contains(text, sep) {
			if chunks := s.splitBySeparator(text, sep, offset); len(chunks) > 0 {
				return chunks
			}
		}
	}
	return s.splitByCharacters(text, offset)
}

func (s *Splitter) splitBySeparator(text, sep string, offset int) []TextChunk {
	parts := strings.Split(text, sep)
	var chunks []TextChunk
	current := ""
	currentStart := offset

	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}

		test := current + part
		if len(test) <= s.ChunkSize {
			current = test
			continue
		}

		if current != "" {
			chunks = append(chunks, TextChunk{
				Text:      current,
				StartChar: currentStart,
				EndChar:   currentStart + len(current),
			})
			currentStart += len(current)
		}

		if len(part) > s.ChunkSize {
			sub := s.splitByCharacters(part, currentStart)
			chunks = append(chunks, sub...)
			if len(sub) > 0 {
				currentStart = sub[len(sub)-1].EndChar
			}
			current = ""
		} else {
			current = part
		}
	}

	if current != "" {
		chunks = append(chunks, TextChunk{
			Text:      current,
			StartChar: currentStart,
			EndChar:   currentStart + len(current),
		})
	}

	return chunks
}

func (s *Splitter) splitByCharacters(text string, offset int) []TextChunk {
	var chunks []TextChunk
	for i := 0; i < len(text); i += s.ChunkSize {
		end := i + s.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, TextChunk{
			Text:      text[i:end],
			StartChar: offset + i,
			EndChar:   offset + end,
		})
	}
	return chunks
}

// applyOverlap extends every chunk after the first backward by up to
// ChunkOverlap characters, improving context continuity across the chunk
// boundary.
func (s *Splitter) applyOverlap(chunks []TextChunk, fullText string) []TextChunk {
	if len(chunks) == 0 || s.ChunkOverlap == 0 {
		return chunks
	}

	overlapped := make([]TextChunk, 0, len(chunks))
	for i, c := range chunks {
		if i == 0 {
			overlapped = append(overlapped, c)
			continue
		}
		overlapStart := c.StartChar - s.ChunkOverlap
		if overlapStart < 0 {
			overlapStart = 0
		}
		overlapped = append(overlapped, TextChunk{
			Text:      fullText[overlapStart:c.EndChar],
			StartChar: overlapStart,
			EndChar:   c.EndChar,
		})
	}
	return overlapped
}
