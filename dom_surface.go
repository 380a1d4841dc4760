package liveedit

import (
	"fmt"
	"strings"

	"github.com/dpotapov/go-liveedit/markup"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOMSurface is an in-process rendering surface backed by an HTML node tree. It is used for
// headless sessions and tests; Click and Mutate play the role of user interaction.
type DOMSurface struct {
	handlerSlot

	doc  *html.Node
	head *html.Node
	body *html.Node

	headHTML string
	bodyHTML string

	stats SurfaceStats
}

// SurfaceStats counts the writes a surface received.
type SurfaceStats struct {
	Loads      int
	HeadWrites int
	BodyWrites int
}

var _ Surface = (*DOMSurface)(nil)

func NewDOMSurface() *DOMSurface {
	return &DOMSurface{}
}

func (s *DOMSurface) Load(doc string) error {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	s.doc = root
	s.head = findElement(root, atom.Head)
	s.body = findElement(root, atom.Body)
	if s.head == nil || s.body == nil {
		return fmt.Errorf("parse document: missing head or body element")
	}

	// The serialized form of a region is the text it was written from, empty when the
	// document does not delimit it.
	regions := markup.Split(doc)
	s.headHTML = regions.Head
	s.bodyHTML = regions.Body

	s.stats.Loads++
	return nil
}

func (s *DOMSurface) Head() string { return s.headHTML }
func (s *DOMSurface) Body() string { return s.bodyHTML }

func (s *DOMSurface) SetHead(content string) error {
	if err := replaceChildren(s.head, content); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	s.headHTML = content
	s.stats.HeadWrites++
	return nil
}

func (s *DOMSurface) SetBody(content string) error {
	if err := replaceChildren(s.body, content); err != nil {
		return fmt.Errorf("set body: %w", err)
	}
	s.bodyHTML = content
	s.stats.BodyWrites++
	return nil
}

// Stats returns the number of loads and region writes so far.
func (s *DOMSurface) Stats() SurfaceStats {
	return s.stats
}

// BodyNode returns the rendered content region.
func (s *DOMSurface) BodyNode() *html.Node {
	return s.body
}

// Elements returns the elements of the content region with the given tag, in document order.
func (s *DOMSurface) Elements(tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if s.body != nil {
		walk(s.body)
	}
	return out
}

// Click simulates a click on a rendered element.
func (s *DOMSurface) Click(n *html.Node) bool {
	return s.Dispatch(InspectEvent{Signature: markup.SignatureOf(n)})
}

// Mutate applies fn to the content region, re-serializes it and reports the mutation to
// the installed handlers, the way an editable body reports user input. The body is left
// alone unless live-edit handlers are installed.
func (s *DOMSurface) Mutate(fn func(body *html.Node)) bool {
	if s.body == nil {
		return false
	}
	if _, ok := s.Installed().(LiveEditHandlers); !ok {
		return false
	}
	fn(s.body)
	s.bodyHTML = renderChildren(s.body)
	return s.Dispatch(LiveEditEvent{Body: s.bodyHTML})
}

func replaceChildren(parent *html.Node, content string) error {
	if parent == nil {
		return fmt.Errorf("surface not loaded")
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), parent)
	if err != nil {
		return err
	}
	for c := parent.FirstChild; c != nil; c = parent.FirstChild {
		parent.RemoveChild(c)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
