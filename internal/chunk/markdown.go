// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunk

import (
	"regexp"
	"strings"
)

// Segment is a contiguous piece of markdown content, either a fenced code
// block (IsCode=true, Language from the fence info string) or interleaved
// prose (IsCode=false, Language="markdown").
type Segment struct {
	Content  string
	IsCode   bool
	Language string
	StartPos int
	EndPos   int
}

// fencedCodePattern matches ```lang\n...code...\n``` blocks, languages
// being optional. (?s) makes '.' match newlines so the body can span lines;
// (?m) makes ^/$ match at line boundaries so the closing fence is found on
// its own line rather than at the end of the whole document.
var fencedCodePattern = regexp.MustCompile("(?ms)^```(\\w+)?[ \t]*\n(.*?)^```[ \t]*$")

// ExtractSegments splits markdown into an ordered sequence of text/code
// segments, preserving original character offsets. A markdown document
// with no fenced blocks becomes a single text segment covering the whole
// input.
func ExtractSegments(markdown string) []Segment {
	if markdown == "" {
		return nil
	}

	var segments []Segment
	lastEnd := 0

	matches := fencedCodePattern.FindAllStringSubmatchIndex(markdown, -1)
	for _, m := range matches {
		start, end := m[0], m[1]

		language := "unknown"
		if m[2] != -1 {
			language = markdown[m[2]:m[3]]
		}
		code := strings.TrimSpace(markdown[m[4]:m[5]])

		if start > lastEnd {
			text := strings.TrimSpace(markdown[lastEnd:start])
			if text != "" {
				segments = append(segments, Segment{
					Content: text, IsCode: false, Language: "markdown",
					StartPos: lastEnd, EndPos: start,
				})
			}
		}

		if code != "" {
			segments = append(segments, Segment{
				Content: code, IsCode: true, Language: language,
				StartPos: start, EndPos: end,
			})
		}

		lastEnd = end
	}

	if lastEnd < len(markdown) {
		text := strings.TrimSpace(markdown[lastEnd:])
		if text != "" {
			segments = append(segments, Segment{
				Content: text, IsCode: false, Language: "markdown",
				StartPos: lastEnd, EndPos: len(markdown),
			})
		}
	}

	if len(segments) == 0 {
		segments = append(segments, Segment{
			Content: markdown, IsCode: false, Language: "markdown",
			StartPos: 0, EndPos: len(markdown),
		})
	}

	return segments
}

// ContainsFencedCode reports whether markdown has at least one ``` fence,
// the signal the Smart Chunker uses to decide whether to delegate to the
// markdown-segment path instead of the plain recursive splitter.
func ContainsFencedCode(text string) bool {
	return strings.Contains(text, "```")
}
