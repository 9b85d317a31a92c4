// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package codedetect classifies a span of text as code or prose and, when
// code, identifies its language. Tree-sitter parsing is tried first — a
// clean parse is strong evidence of code — falling back to a per-language
// regex signature table plus language-agnostic indicators when tree-sitter
// can't confirm a language (or wasn't built with support for it).
package codedetect

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is the closed set of languages the detector recognizes. Any
// language outside this set (or an unrecognized hint) resolves to Unknown.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Go         Language = "go"
	Rust       Language = "rust"
	C          Language = "c"
	CPP        Language = "cpp"
	CSharp     Language = "csharp"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Swift      Language = "swift"
	Kotlin     Language = "kotlin"
	Scala      Language = "scala"
	R          Language = "r"
	Shell      Language = "shell"
	SQL        Language = "sql"
	HTML       Language = "html"
	CSS        Language = "css"
	Markdown   Language = "markdown"
	Unknown    Language = "unknown"
)

// Result is the outcome of analyzing one span of text.
type Result struct {
	IsCode     bool
	Language   Language
	Confidence float64
	Method     string
}

// syntaxPatterns are per-language regex signatures used when tree-sitter
// can't settle the question; each match contributes a fixed 0.25 to score,
// capped at 1.0.
var syntaxPatterns = map[Language][]*regexp.Regexp{
	Python: {
		regexp.MustCompile(`(?im)\bdef\s+\w+\s*\(`),
		regexp.MustCompile(`(?im)\bclass\s+\w+`),
		regexp.MustCompile(`(?im)\bimport\s+\w+`),
		regexp.MustCompile(`(?im)\bfrom\s+\w+\s+import`),
		regexp.MustCompile(`(?im)@\w+\s*\(`),
	},
	JavaScript: {
		regexp.MustCompile(`(?im)\bfunction\s+\w+\s*\(`),
		regexp.MustCompile(`(?im)\bconst\s+\w+\s*=`),
		regexp.MustCompile(`(?im)\blet\s+\w+\s*=`),
		regexp.MustCompile(`(?im)\bvar\s+\w+\s*=`),
		regexp.MustCompile(`=>`),
		regexp.MustCompile(`(?im)\bconsole\.log\(`),
	},
	TypeScript: {
		regexp.MustCompile(`(?im)\binterface\s+\w+`),
		regexp.MustCompile(`(?im)\btype\s+\w+\s*=`),
		regexp.MustCompile(`(?im):\s*\w+(\[\])?\s*[=;,)]`),
		regexp.MustCompile(`(?im)\bas\s+\w+`),
	},
	Java: {
		regexp.MustCompile(`(?im)\bpublic\s+class\s+\w+`),
		regexp.MustCompile(`(?im)\bprivate\s+\w+`),
		regexp.MustCompile(`(?im)\bprotected\s+\w+`),
		regexp.MustCompile(`(?im)\bstatic\s+void\s+main`),
		regexp.MustCompile(`(?im)\bpackage\s+[\w.]+;`),
	},
	Go: {
		regexp.MustCompile(`(?im)\bfunc\s+\w+\s*\(`),
		regexp.MustCompile(`(?im)\bpackage\s+\w+`),
		regexp.MustCompile(`(?im)\btype\s+\w+\s+struct`),
		regexp.MustCompile(`:=`),
	},
	Rust: {
		regexp.MustCompile(`(?im)\bfn\s+\w+\s*\(`),
		regexp.MustCompile(`(?im)\blet\s+mut\s+\w+`),
		regexp.MustCompile(`(?im)\bimpl\s+\w+`),
		regexp.MustCompile(`(?im)\bmatch\s+\w+\s*\{`),
	},
	C: {
		regexp.MustCompile(`(?im)\bint\s+main\s*\(`),
		regexp.MustCompile(`(?im)#include\s*<[\w.]+>`),
		regexp.MustCompile(`(?im)\bstruct\s+\w+`),
		regexp.MustCompile(`(?im)\bvoid\s+\w+\s*\(`),
	},
	CPP: {
		regexp.MustCompile(`(?im)\bclass\s+\w+`),
		regexp.MustCompile(`(?im)\btemplate\s*<`),
		regexp.MustCompile(`(?im)\bnamespace\s+\w+`),
		regexp.MustCompile(`std::`),
	},
	PHP: {
		regexp.MustCompile(`<\?php`),
		regexp.MustCompile(`\$\w+\s*=`),
		regexp.MustCompile(`(?im)\bfunction\s+\w+\s*\(`),
	},
	Ruby: {
		regexp.MustCompile(`(?im)\bdef\s+\w+`),
		regexp.MustCompile(`(?im)\bclass\s+\w+`),
		regexp.MustCompile(`(?im)\bend\b`),
		regexp.MustCompile(`@\w+`),
	},
	SQL: {
		regexp.MustCompile(`(?im)\bSELECT\s+`),
		regexp.MustCompile(`(?im)\bFROM\s+\w+`),
		regexp.MustCompile(`(?im)\bWHERE\s+`),
		regexp.MustCompile(`(?im)\bINSERT\s+INTO`),
		regexp.MustCompile(`(?im)\bUPDATE\s+\w+\s+SET`),
	},
	Shell: {
		regexp.MustCompile(`(?m)^#!/bin/(bash|sh)`),
		regexp.MustCompile(`\$\{?\w+\}?`),
		regexp.MustCompile(`\|\s*\w+`),
	},
}

// codeIndicators are language-agnostic signals, each worth a fixed bonus
// when present, used as a last resort when no language's patterns matched
// or the best language scored below 0.3.
var codeIndicators = []*regexp.Regexp{
	regexp.MustCompile(`[{}();]`),
	regexp.MustCompile(`\w+\s*=\s*[\w"']+`),
	regexp.MustCompile(`(?im)\b(if|else|for|while|return)\b`),
	regexp.MustCompile(`(?s)/\*.*?\*/`),
	regexp.MustCompile(`(?m)//.*$`),
}

var symbolChars = regexp.MustCompile(`[{}()\[\];,.]`)

// Detector classifies text as code or prose. The zero value is not usable;
// construct with New.
type Detector struct {
	enableTreeSitter bool
	parsers          map[Language]*sitter.Language
}

// New builds a Detector. When enableTreeSitter is true the detector parses
// with tree-sitter grammars for the languages it ships support for (Go,
// Python, JavaScript, TypeScript, Java) before falling back to heuristics;
// every other language in the syntax table is heuristic-only regardless.
func New(enableTreeSitter bool) *Detector {
	d := &Detector{enableTreeSitter: enableTreeSitter}
	if enableTreeSitter {
		d.parsers = map[Language]*sitter.Language{
			Go:         golang.GetLanguage(),
			Python:     python.GetLanguage(),
			JavaScript: javascript.GetLanguage(),
			TypeScript: typescript.GetLanguage(),
			Java:       java.GetLanguage(),
		}
	}
	return d
}

// Detect classifies text, optionally guided by a language hint (typically
// derived from a source file extension or a markdown fence's info string).
func (d *Detector) Detect(text string, hint Language) Result {
	if len(strings.TrimSpace(text)) < 10 {
		return Result{IsCode: false, Language: Unknown, Confidence: 0.0, Method: "text_too_short"}
	}

	if d.enableTreeSitter && len(d.parsers) > 0 {
		if result, ok := d.detectWithTreeSitter(text, hint); ok {
			return result
		}
	}

	return d.detectWithHeuristics(text, hint)
}

func (d *Detector) detectWithTreeSitter(text string, hint Language) (Result, bool) {
	candidates := make([]Language, 0, len(d.parsers))
	if hint != "" && hint != Unknown {
		if _, ok := d.parsers[hint]; ok {
			candidates = []Language{hint}
		}
	} else {
		for lang := range d.parsers {
			candidates = append(candidates, lang)
		}
	}

	var best Result
	bestScore := 0.0
	source := []byte(text)

	for _, lang := range candidates {
		tsLang := d.parsers[lang]
		parser := sitter.NewParser()
		parser.SetLanguage(tsLang)

		tree, err := parser.ParseCtx(context.Background(), nil, source)
		parser.Close()
		if err != nil || tree == nil {
			continue
		}
		root := tree.RootNode()
		nodeCount := countNodes(root)
		if nodeCount == 0 {
			continue
		}
		errCount := countErrors(root)
		confidence := 1.0 - float64(errCount)/float64(nodeCount)
		if confidence < 0 {
			confidence = 0
		}
		if errCount == 0 {
			confidence = minFloat(1.0, confidence+0.2)
		}
		if confidence > bestScore {
			bestScore = confidence
			best = Result{IsCode: true, Language: lang, Confidence: confidence, Method: "tree_sitter"}
		}
	}

	if bestScore > 0.5 {
		return best, true
	}
	return Result{}, false
}

func countNodes(n *sitter.Node) int {
	count := 1
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countNodes(n.Child(i))
	}
	return count
}

func countErrors(n *sitter.Node) int {
	count := 0
	if n.Type() == "ERROR" {
		count = 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countErrors(n.Child(i))
	}
	return count
}

func (d *Detector) detectWithHeuristics(text string, hint Language) Result {
	if hint != "" {
		if result := checkLanguagePatterns(text, hint); result.IsCode {
			return result
		}
	}

	var best Result
	bestScore := 0.0
	for lang, patterns := range syntaxPatterns {
		matches, score := scorePatterns(text, patterns)
		if matches == 0 {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = Result{IsCode: true, Language: lang, Confidence: score, Method: "heuristic"}
		}
	}

	if best.Language == "" || bestScore < 0.3 {
		if score := generalCodeScore(text); score > 0.3 {
			return Result{IsCode: true, Language: Unknown, Confidence: score, Method: "heuristic"}
		}
	}

	if best.Language != "" {
		return best
	}
	return Result{IsCode: false, Language: Unknown, Confidence: 0.9, Method: "heuristic"}
}

func checkLanguagePatterns(text string, lang Language) Result {
	patterns, ok := syntaxPatterns[lang]
	if !ok {
		return Result{IsCode: false, Language: Unknown, Confidence: 0.0, Method: "heuristic"}
	}
	matches := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			matches++
		}
	}
	if matches == 0 {
		return Result{IsCode: false, Language: Unknown, Confidence: 0.0, Method: "heuristic"}
	}
	return Result{IsCode: true, Language: lang, Confidence: minFloat(1.0, float64(matches)*0.25), Method: "heuristic"}
}

func scorePatterns(text string, patterns []*regexp.Regexp) (int, float64) {
	matches := 0
	score := 0.0
	for _, p := range patterns {
		if p.MatchString(text) {
			matches++
			score += 0.25
		}
	}
	return matches, minFloat(1.0, score)
}

func generalCodeScore(text string) float64 {
	score := 0.0
	for _, p := range codeIndicators {
		if p.MatchString(text) {
			score += 0.15
		}
	}

	if total := len(text); total > 0 {
		symbols := len(symbolChars.FindAllString(text, -1))
		if float64(symbols)/float64(total) > 0.1 {
			score += 0.2
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		indented := 0
		for _, line := range lines {
			if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
				indented++
			}
		}
		if float64(indented)/float64(len(lines)) > 0.3 {
			score += 0.15
		}
	}

	return minFloat(1.0, score)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// LanguageFromExtension maps a file path's extension to a Language, the
// same table the smart chunker uses to turn a source path into a hint.
func LanguageFromExtension(path string) Language {
	ext := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		ext = strings.ToLower(path[idx:])
	} else {
		return Unknown
	}
	switch ext {
	case ".py":
		return Python
	case ".js", ".jsx":
		return JavaScript
	case ".ts", ".tsx":
		return TypeScript
	case ".java":
		return Java
	case ".go":
		return Go
	case ".rs":
		return Rust
	case ".c", ".h":
		return C
	case ".cpp", ".cc", ".cxx", ".hpp":
		return CPP
	case ".cs":
		return CSharp
	case ".php":
		return PHP
	case ".rb":
		return Ruby
	case ".swift":
		return Swift
	case ".kt":
		return Kotlin
	case ".scala":
		return Scala
	case ".r":
		return R
	case ".sh", ".bash":
		return Shell
	case ".sql":
		return SQL
	case ".html":
		return HTML
	case ".css":
		return CSS
	case ".md":
		return Markdown
	default:
		return Unknown
	}
}
