// Package templates holds the catalog of starter documents a session can
// load or reset to.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
)

//go:embed catalog.xml
var builtin []byte

// DefaultName is the template a new session starts from.
const DefaultName = "basic"

var ErrUnknownTemplate = errors.New("unknown template")

// Template is a named starter document.
type Template struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Body  string `json:"-"`
}

// Catalog is an ordered, read-only set of templates.
type Catalog struct {
	items []Template
	Now   func() time.Time
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("templates: builtin catalog: %v", err))
	}
	return c
}

// Parse reads a catalog document:
//
//	<catalog>
//	  <template name="basic" title="Basic Starter"><![CDATA[...]]></template>
//	</catalog>
func Parse(data []byte) (*Catalog, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	root := doc.SelectElement("catalog")
	if root == nil {
		return nil, errors.New("parse catalog: missing <catalog> root")
	}

	c := &Catalog{}
	seen := map[string]bool{}
	for _, el := range root.SelectElements("template") {
		t := Template{
			Name:  el.SelectAttrValue("name", ""),
			Title: el.SelectAttrValue("title", ""),
			Body:  strings.TrimSpace(el.Text()),
		}
		if t.Name == "" {
			return nil, fmt.Errorf("parse catalog: template #%d has no name", len(c.items)+1)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("parse catalog: duplicate template %q", t.Name)
		}
		if t.Title == "" {
			t.Title = t.Name
		}
		if _, err := lex(t.Body); err != nil {
			return nil, fmt.Errorf("parse catalog: template %q: %w", t.Name, err)
		}
		seen[t.Name] = true
		c.items = append(c.items, t)
	}
	if len(c.items) == 0 {
		return nil, errors.New("parse catalog: no templates")
	}
	return c, nil
}

// List returns the templates in catalog order.
func (c *Catalog) List() []Template {
	out := make([]Template, len(c.items))
	copy(out, c.items)
	return out
}

// Render returns the document text of the named template with its
// placeholders evaluated. Extra vars override the defaults (year, month).
func (c *Catalog) Render(name string, vars map[string]any) (string, error) {
	for _, t := range c.items {
		if t.Name != name {
			continue
		}
		env := c.defaultVars()
		for k, v := range vars {
			env[k] = v
		}
		s, err := Interpolate(t.Body, env)
		if err != nil {
			return "", fmt.Errorf("render template %q: %w", name, err)
		}
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
}

func (c *Catalog) defaultVars() map[string]any {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	return map[string]any{
		"year":  t.Year(),
		"month": t.Month().String(),
	}
}
