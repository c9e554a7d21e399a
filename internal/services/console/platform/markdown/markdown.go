// Package markdown renders backend narrative and chunk text to HTML.
package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns markdown into HTML.
type Renderer interface {
	Render(source string) string
}

// Goldmark renders GitHub-flavored markdown. Raw HTML in the source is
// dropped.
type Goldmark struct {
	md goldmark.Markdown
}

// New returns the default renderer.
func New() *Goldmark {
	return &Goldmark{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render converts source; on failure the escaped source is returned as one
// paragraph.
func (g *Goldmark) Render(source string) string {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(source), &buf); err != nil {
		return "<p>" + html.EscapeString(source) + "</p>"
	}
	return buf.String()
}
