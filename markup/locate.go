package markup

import (
	"regexp"
	"strings"
)

// Locate finds the first opening tag in text that satisfies sig.
//
// A candidate must start with '<' followed by the tag name (case-insensitive) and contain
// every attribute of the signature, in any order, with its value matched verbatim. Attribute
// order and incidental whitespace are ignored. When several tags qualify the first one in
// document order wins, so a signature without attributes resolves to the first occurrence
// of its tag. Ambiguous matches are not reported.
func Locate(sig Signature, text string) MatchResult {
	if sig.Tag == "" {
		return MatchResult{}
	}

	start := regexp.MustCompile(`<(?i:` + regexp.QuoteMeta(sig.Tag) + `)(?:[\s/>]|$)`)

	attrs := make([]*regexp.Regexp, len(sig.Attrs))
	for i, a := range sig.Attrs {
		attrs[i] = attrPattern(a)
	}

	for _, loc := range start.FindAllStringIndex(text, -1) {
		nameEnd := loc[0] + 1 + len(sig.Tag)
		end := scanTagEnd(text, nameEnd)
		if end < 0 {
			continue
		}

		tag := text[loc[0]:end]
		if matchAll(attrs, tag) {
			return MatchResult{Span: spanAt(text, loc[0], end), Found: true}
		}
	}

	return MatchResult{}
}

func matchAll(attrs []*regexp.Regexp, tag string) bool {
	for _, re := range attrs {
		if !re.MatchString(tag) {
			return false
		}
	}
	return true
}

// attrPattern compiles an existence check for a single attribute inside an opening tag.
// The value is matched literally, except that each character with an HTML escape also
// matches its entity spellings, because rendering surfaces report decoded values.
func attrPattern(a Attr) *regexp.Regexp {
	name := `[\s/](?i:` + regexp.QuoteMeta(a.Name) + `)`

	if a.Value == "" {
		return regexp.MustCompile(name + `(?:\s*=\s*(?:""|''))?(?:[\s/>]|$)`)
	}

	v := valuePattern(a.Value)
	return regexp.MustCompile(name + `\s*=\s*(?:"` + v + `"|'` + v + `'|` + v + `(?:[\s/>]|$))`)
}

var entitySpellings = map[rune][]string{
	'&':  {"&amp;", "&#38;", "&#x26;"},
	'<':  {"&lt;", "&#60;", "&#x3c;"},
	'>':  {"&gt;", "&#62;", "&#x3e;"},
	'"':  {"&quot;", "&#34;", "&#x22;"},
	'\'': {"&apos;", "&#39;", "&#x27;"},
}

func valuePattern(value string) string {
	var b strings.Builder
	for _, r := range value {
		spellings, ok := entitySpellings[r]
		if !ok {
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		b.WriteString(`(?:` + regexp.QuoteMeta(string(r)))
		for _, e := range spellings {
			b.WriteString(`|(?i:` + regexp.QuoteMeta(e) + `)`)
		}
		b.WriteString(`)`)
	}
	return b.String()
}
