// Package views holds markup helpers shared by console components.
//
// Components are templ.Component values written with templ.ComponentFunc;
// every interpolated value goes through templ.EscapeString.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Esc escapes text and attribute values.
func Esc(s string) string {
	return templ.EscapeString(s)
}

// SafeURL returns an escaped URL attribute value; unsafe schemes are replaced.
func SafeURL(raw string) string {
	return Esc(string(templ.URL(raw)))
}

// Func adapts a writer callback that reports the first write error.
func Func(render func(w *Writer)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &Writer{out: out}
		render(w)
		return w.err
	})
}

// Writer accumulates markup and keeps the first error.
type Writer struct {
	out io.Writer
	err error
}

// Raw writes markup unchanged.
func (w *Writer) Raw(markup string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.out, markup)
}

// Rawf writes formatted markup; callers escape arguments.
func (w *Writer) Rawf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

// Text writes escaped text.
func (w *Writer) Text(text string) {
	w.Raw(Esc(text))
}

// Option is one <option>.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Options renders <option> elements, with an optional empty placeholder first.
func Options(options []Option, placeholder string) templ.Component {
	return Func(func(w *Writer) {
		if placeholder != "" {
			w.Rawf(`<option value="">%s</option>`, Esc(placeholder))
		}
		for _, o := range options {
			label := o.Label
			if label == "" {
				label = o.Value
			}
			selected := ""
			if o.Selected {
				selected = " selected"
			}
			w.Rawf(`<option value="%s"%s>%s</option>`, Esc(o.Value), selected, Esc(label))
		}
	})
}

// DatalistOptions renders value-only options for a <datalist>.
func DatalistOptions(values []string) templ.Component {
	return Func(func(w *Writer) {
		for _, v := range values {
			w.Rawf(`<option value="%s"></option>`, Esc(v))
		}
	})
}

// Empty renders a muted placeholder line.
func Empty(text string) templ.Component {
	return Func(func(w *Writer) {
		w.Rawf(`<p class="empty">%s</p>`, Esc(text))
	})
}

// DataAttr renders data-<name>="value" pairs in the given order.
func DataAttr(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, ` data-%s="%s"`, pairs[i], Esc(pairs[i+1]))
	}
	return b.String()
}
