package liveedit

import (
	"bytes"
	"embed"
	"fmt"
	"hash/fnv"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed client
var clientFS embed.FS

// asset is a static file served under a content-versioned path.
type asset struct {
	name        string
	content     []byte
	contentType string
	version     string // FNV-1a hash of content, hex
	servePath   string // e.g. "/assets/editor.0123456789abcdef.js"
}

// assetSet serves a fixed set of files. Each file is reachable under its versioned path
// with immutable caching, and under its plain name.
type assetSet struct {
	prefix string
	byName map[string]*asset
	byPath map[string]*asset
}

func newAssetSet(prefix string, fsys fs.FS) (*assetSet, error) {
	s := &assetSet{
		prefix: "/" + strings.Trim(prefix, "/"),
		byName: map[string]*asset{},
		byPath: map[string]*asset{},
	}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", p, err)
		}
		s.add(p, content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *assetSet) add(name string, content []byte) {
	h := fnv.New64a()
	h.Write(content)
	version := fmt.Sprintf("%016x", h.Sum64())

	ext := path.Ext(name)
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		ct = "application/octet-stream"
	}
	a := &asset{
		name:        name,
		content:     content,
		contentType: ct,
		version:     version,
		servePath:   fmt.Sprintf("%s/%s.%s%s", s.prefix, strings.TrimSuffix(name, ext), version, ext),
	}
	s.byName[name] = a
	s.byPath[a.servePath] = a
	s.byPath[s.prefix+"/"+name] = a
}

// Path returns the versioned path of the named asset, or "" if there is none.
func (s *assetSet) Path(name string) string {
	if a, ok := s.byName[name]; ok {
		return a.servePath
	}
	return ""
}

func (s *assetSet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, ok := s.byPath[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("ETag", `"`+a.version+`"`)
	if r.URL.Path == a.servePath {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}

	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, a.version) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(a.content)
}

// rewritePage replaces the src of local scripts and the href of local stylesheets in page
// with their versioned paths.
func (s *assetSet) rewritePage(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var key string
			switch n.DataAtom {
			case atom.Script:
				key = "src"
			case atom.Link:
				key = "href"
			}
			for i, a := range n.Attr {
				if key != "" && a.Key == key {
					if p := s.Path(a.Val); p != "" {
						n.Attr[i].Val = p
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// clientAssets returns the embedded browser client and its rendered index page.
func clientAssets(prefix string) (*assetSet, []byte, error) {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		return nil, nil, err
	}
	set, err := newAssetSet(prefix, sub)
	if err != nil {
		return nil, nil, err
	}
	page, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		return nil, nil, err
	}
	page, err = set.rewritePage(page)
	if err != nil {
		return nil, nil, err
	}
	return set, page, nil
}
