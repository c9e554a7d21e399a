// Package dom holds a session's HTML document on the server.
//
// Components mutate elements through Element handles; every mutation is also
// recorded as a Patch so the browser copy can be brought in line. Events
// reported by the browser are dispatched to handlers bound by element id or by
// data-action.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page plus its id index, handlers and pending patches.
// It is not safe for concurrent use; a session event loop owns it.
type Document struct {
	root     *html.Node
	byID     map[string]*html.Node
	patches  []Patch
	handlers map[handlerKey][]Handler
	actions  map[handlerKey][]Handler
	flusher  func([]Patch) uint64
}

// Parse reads a full HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{
		root:     root,
		byID:     map[string]*html.Node{},
		handlers: map[handlerKey][]Handler{},
		actions:  map[handlerKey][]Handler{},
	}
	d.index(root)
	return d, nil
}

// MustParseString parses markup and panics on failure. It is meant for
// embedded skeletons and tests.
func MustParseString(markup string) *Document {
	d, err := Parse(strings.NewReader(markup))
	if err != nil {
		panic(err)
	}
	return d
}

// ByID returns the element with id, or nil.
func (d *Document) ByID(id string) *Element {
	if d == nil {
		return nil
	}
	n, ok := d.byID[strings.TrimSpace(id)]
	if !ok {
		return nil
	}
	return &Element{doc: d, node: n}
}

// Body returns the body element.
func (d *Document) Body() *Element {
	return d.firstByAtom(atom.Body)
}

// Root returns the html element.
func (d *Document) Root() *Element {
	return d.firstByAtom(atom.Html)
}

// QueryAttr returns every element carrying the attribute, in document order.
func (d *Document) QueryAttr(name string) []*Element {
	if d == nil {
		return nil
	}
	return (&Element{doc: d, node: d.root}).QueryAttr(name)
}

// Render writes the full page.
func (d *Document) Render(w io.Writer) error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	return html.Render(w, d.root)
}

// TakePatches returns and clears the pending patches.
func (d *Document) TakePatches() []Patch {
	if d == nil || len(d.patches) == 0 {
		return nil
	}
	out := d.patches
	d.patches = nil
	return out
}

// SetFlusher installs the sink Flush hands pending patches to. fn returns the
// sequence of the newest batch it holds.
func (d *Document) SetFlusher(fn func([]Patch) uint64) {
	if d != nil {
		d.flusher = fn
	}
}

// Flush hands the pending patches to the flusher and returns its sequence.
// Without a flusher the patches stay pending and Flush returns 0.
func (d *Document) Flush() uint64 {
	if d == nil || d.flusher == nil {
		return 0
	}
	return d.flusher(d.TakePatches())
}

// DropPatches discards pending patches, used after a full page render.
func (d *Document) DropPatches() {
	if d != nil {
		d.patches = nil
	}
}

func (d *Document) firstByAtom(a atom.Atom) *Element {
	if d == nil {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Element{doc: d, node: found}
}

func (d *Document) record(p Patch) {
	d.patches = append(d.patches, p)
}

func (d *Document) index(n *html.Node) {
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode {
			if id := attrOf(c, "id"); id != "" {
				d.byID[id] = c
			}
		}
		return true
	})
}

func (d *Document) unindex(n *html.Node) {
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode {
			if id := attrOf(c, "id"); id != "" && d.byID[id] == c {
				delete(d.byID, id)
			}
		}
		return true
	})
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attrOf(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return true
		}
	}
	return false
}
