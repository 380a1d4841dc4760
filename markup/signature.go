package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Attr is a single attribute of a tag signature.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Signature is the structural fingerprint of a rendered element: its tag name and
// attributes in the order the rendering surface reported them.
type Signature struct {
	Tag   string `json:"tag"`
	Attrs []Attr `json:"attrs,omitempty"`
}

// SignatureOf extracts the signature of an element node. Namespaced attributes keep their
// prefix ("xlink:href").
func SignatureOf(n *html.Node) Signature {
	sig := Signature{Tag: n.Data}
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		sig.Attrs = append(sig.Attrs, Attr{Name: name, Value: a.Val})
	}
	return sig
}

// ParseSignature parses a serialized opening tag such as `<p class="b">`. Anything after
// the first tag is ignored.
func ParseSignature(raw string) (Signature, error) {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return Signature{}, fmt.Errorf("parse signature %q: no opening tag", raw)
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			sig := Signature{Tag: t.Data}
			for _, a := range t.Attr {
				sig.Attrs = append(sig.Attrs, Attr{Name: a.Key, Value: a.Val})
			}
			return sig, nil
		}
	}
}

// String serializes the signature back to an opening tag.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(s.Tag)
	for _, a := range s.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}
