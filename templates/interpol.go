package templates

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"
)

const (
	eof        rune = -1
	leftDelim       = "${"
	rightDelim      = "}"
)

// Interpolate replaces every ${expr} placeholder in s with the result of
// evaluating expr against vars. Text without placeholders is returned as is.
func Interpolate(s string, vars map[string]any) (string, error) {
	items, err := lex(s)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, it := range items {
		switch it.typ {
		case itemText:
			b.WriteString(it.val)
		case itemExpr:
			prg, err := expr.Compile(it.val, expr.Env(vars))
			if err != nil {
				return "", fmt.Errorf("compile ${%s}: %w", it.val, err)
			}
			v, err := expr.Run(prg, vars)
			if err != nil {
				return "", fmt.Errorf("eval ${%s}: %w", it.val, err)
			}
			if v != nil {
				fmt.Fprint(&b, v)
			}
		}
	}
	return b.String(), nil
}

// The lexer follows https://go.dev/talks/2011/lex.slide

type lexer struct {
	input       string
	start       int
	pos         int
	width       int
	bracesDepth int
	items       []item
	err         error
}

func lex(s string) ([]item, error) {
	l := &lexer{input: s}
	for state := lexText; state != nil; {
		state = state(l)
	}
	return l.items, l.err
}

func (l *lexer) emit(t itemType) {
	if l.pos > l.start {
		l.items = append(l.items, item{t, l.input[l.start:l.pos]})
	}
	l.start = l.pos
}

func (l *lexer) errorf(format string, args ...any) stateFn {
	l.err = fmt.Errorf(format, args...)
	return nil
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *lexer) scanString(quote rune) bool {
	for ch := l.next(); ch != quote; ch = l.next() {
		if ch == '\n' || ch == eof {
			return false
		}
		if ch == '\\' {
			l.next()
		}
	}
	return true
}

func (l *lexer) atRightDelim() bool {
	return l.bracesDepth == 0 && strings.HasPrefix(l.input[l.pos:], rightDelim)
}

func lexText(l *lexer) stateFn {
	if x := strings.Index(l.input[l.pos:], leftDelim); x >= 0 {
		l.pos += x
		l.emit(itemText)
		l.pos += len(leftDelim)
		l.start = l.pos
		return lexExpr
	}
	l.pos = len(l.input)
	l.emit(itemText)
	return nil
}

func lexExpr(l *lexer) stateFn {
	if l.atRightDelim() {
		if strings.TrimSpace(l.input[l.start:l.pos]) == "" {
			return l.errorf("empty placeholder at offset %d", l.start-len(leftDelim))
		}
		l.emit(itemExpr)
		l.pos += len(rightDelim)
		l.start = l.pos
		return lexText
	}
	switch r := l.next(); {
	case r == eof:
		return l.errorf("unclosed placeholder at offset %d", l.start-len(leftDelim))
	case r == '\'' || r == '"':
		if !l.scanString(r) {
			return l.errorf("unterminated string in placeholder at offset %d", l.start-len(leftDelim))
		}
	case r == '{':
		l.bracesDepth++
	case r == '}':
		l.bracesDepth--
	}
	return lexExpr
}

type itemType int

const (
	itemText itemType = iota
	itemExpr
)

type item struct {
	typ itemType
	val string
}

type stateFn func(*lexer) stateFn
