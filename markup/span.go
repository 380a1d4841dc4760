package markup

import "unicode/utf8"

// Span represents a location in a source text
type Span struct {
	Offset int // Byte offset in the text
	Line   int // 1-based line number
	Column int // 1-based column number (in runes, not bytes)
	Length int // Length in bytes
}

// IsZero returns true if the span is uninitialized
func (s Span) IsZero() bool {
	return s.Offset == 0 && s.Line == 0 && s.Column == 0 && s.Length == 0
}

// End returns the end offset of the span
func (s Span) End() int {
	return s.Offset + s.Length
}

// spanAt builds a Span for text[start:end] and fills in its line and column.
func spanAt(text string, start, end int) Span {
	line, lineStart := 1, 0
	for i := 0; i < start; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return Span{
		Offset: start,
		Line:   line,
		Column: utf8.RuneCountInString(text[lineStart:start]) + 1,
		Length: end - start,
	}
}

// MatchResult is the outcome of locating a tag signature in a source text.
// When Found is false the Span is zero and must be ignored.
type MatchResult struct {
	Span  Span
	Found bool
}

// Start returns the byte offset of the first matched byte.
func (m MatchResult) Start() int { return m.Span.Offset }

// End returns the byte offset just past the match.
func (m MatchResult) End() int { return m.Span.End() }
