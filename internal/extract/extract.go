// Package extract pulls the OPENROWSET(...) clause out of a view definition.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"rowsetstats/pkg/errors"
)

// Keyword marks the external-access clause inside a definition.
const Keyword = "OPENROWSET"

// Mode selects how the end of the clause is located.
type Mode string

const (
	// ModeShallow stops at the first ')' after the keyword. A clause with a nested
	// parenthesized expression is truncated at the inner ')'.
	ModeShallow Mode = "shallow"
	// ModeBalanced tracks parenthesis depth, skipping quoted literals and bracketed identifiers.
	ModeBalanced Mode = "balanced"
)

var shallowPattern = regexp.MustCompile(`OPENROWSET\([\s\S]*?\)`)

// ParseMode maps a config value onto a Mode. Empty means ModeShallow.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeShallow:
		return ModeShallow, nil
	case ModeBalanced:
		return ModeBalanced, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q", s)
	}
}

// Extractor locates and escapes clauses in a fixed mode.
type Extractor struct {
	mode Mode
}

// New returns an Extractor for mode. An empty mode behaves as ModeShallow.
func New(mode Mode) *Extractor {
	if mode == "" {
		mode = ModeShallow
	}
	return &Extractor{mode: mode}
}

// Mode reports the extractor's mode.
func (e *Extractor) Mode() Mode {
	return e.mode
}

// Extract returns the first clause in text and whether one was found.
func (e *Extractor) Extract(text string) (string, bool) {
	if e.mode == ModeBalanced {
		return extractBalanced(text)
	}
	return Extract(text)
}

// ExtractEscaped extracts the clause for view from text and doubles its single quotes.
// A missing clause is an ExtractionMiss error.
func (e *Extractor) ExtractEscaped(view, text string) (string, error) {
	clause, ok := e.Extract(text)
	if !ok {
		return "", errors.ExtractionMiss(view).WithContext("mode", string(e.mode))
	}
	return Escape(clause), nil
}

// Extract finds the first OPENROWSET clause with a non-greedy match up to the first ')'.
func Extract(text string) (string, bool) {
	match := shallowPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// Escape doubles single quotes so the clause can sit inside an N'...' literal.
func Escape(clause string) string {
	return strings.ReplaceAll(clause, "'", "''")
}

// Contains reports whether definition mentions the keyword. Case-sensitive.
func Contains(definition string) bool {
	return strings.Contains(definition, Keyword)
}

func extractBalanced(text string) (string, bool) {
	start := strings.Index(text, Keyword+"(")
	if start < 0 {
		return "", false
	}

	depth := 0
	inQuote := false
	inBracket := false
	for i := start + len(Keyword); i < len(text); i++ {
		c := text[i]
		switch {
		case inQuote:
			// '' inside a literal is an escaped quote and keeps the literal open
			if c == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					i++
				} else {
					inQuote = false
				}
			}
		case inBracket:
			if c == ']' {
				if i+1 < len(text) && text[i+1] == ']' {
					i++
				} else {
					inBracket = false
				}
			}
		case c == '\'':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
