package dom

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a handle to one node of a Document. Methods on a nil handle are
// no-ops returning zero values, so lookups of absent ids never panic.
type Element struct {
	doc  *Document
	node *html.Node
}

// Option is one <option> of a select or datalist.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// ID returns the element id.
func (e *Element) ID() string {
	if e == nil {
		return ""
	}
	return attrOf(e.node, "id")
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	if e == nil {
		return ""
	}
	return e.node.Data
}

// Attr returns an attribute value or "".
func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return attrOf(e.node, name)
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	if e == nil {
		return false
	}
	return hasAttr(e.node, name)
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name string, value string) {
	if e == nil {
		return
	}
	if name == "id" {
		e.doc.unindex(e.node)
	}
	setAttr(e.node, name, value)
	if name == "id" {
		e.doc.index(e.node)
	}
	e.emit(Patch{Op: OpAttr, Name: name, Value: value})
}

// RemoveAttr deletes an attribute when present.
func (e *Element) RemoveAttr(name string) {
	if e == nil || !hasAttr(e.node, name) {
		return
	}
	removeAttr(e.node, name)
	e.emit(Patch{Op: OpRemoveAttr, Name: name})
}

// Dataset returns the data-* attributes without their prefix.
func (e *Element) Dataset() map[string]string {
	out := map[string]string{}
	if e == nil {
		return out
	}
	for _, a := range e.node.Attr {
		if strings.HasPrefix(a.Key, "data-") {
			out[strings.TrimPrefix(a.Key, "data-")] = a.Val
		}
	}
	return out
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return textContent(e.node)
}

// SetText replaces all children with one text node.
func (e *Element) SetText(text string) {
	if e == nil {
		return
	}
	e.clearChildren()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.emit(Patch{Op: OpText, Value: text})
}

// InnerHTML renders the children.
func (e *Element) InnerHTML() string {
	if e == nil {
		return ""
	}
	return innerHTML(e.node)
}

// SetHTML replaces all children with parsed markup.
func (e *Element) SetHTML(markup string) error {
	if e == nil {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("parse fragment for #%s: %w", e.ID(), err)
	}
	e.clearChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
		e.doc.index(n)
	}
	e.emit(Patch{Op: OpHTML, Value: markup})
	return nil
}

// Append parses markup and appends it after the existing children.
func (e *Element) Append(markup string) error {
	if e == nil {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("parse fragment for #%s: %w", e.ID(), err)
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
		e.doc.index(n)
	}
	e.emit(Patch{Op: OpAppend, Value: markup})
	return nil
}

// Render replaces the children with a rendered component.
func (e *Element) Render(ctx context.Context, c templ.Component) error {
	markup, err := renderComponent(ctx, c)
	if err != nil {
		return err
	}
	return e.SetHTML(markup)
}

// AppendComponent appends a rendered component.
func (e *Element) AppendComponent(ctx context.Context, c templ.Component) error {
	markup, err := renderComponent(ctx, c)
	if err != nil {
		return err
	}
	return e.Append(markup)
}

// Show removes the hidden attribute.
func (e *Element) Show() {
	e.RemoveAttr("hidden")
}

// Hide sets the hidden attribute.
func (e *Element) Hide() {
	if e == nil || hasAttr(e.node, "hidden") {
		return
	}
	e.SetAttr("hidden", "")
}

// SetVisible shows or hides the element.
func (e *Element) SetVisible(visible bool) {
	if visible {
		e.Show()
		return
	}
	e.Hide()
}

// Hidden reports whether the hidden attribute is set.
func (e *Element) Hidden() bool {
	return e.HasAttr("hidden")
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	if e == nil {
		return nil
	}
	return strings.Fields(attrOf(e.node, "class"))
}

// HasClass reports class membership.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds a class when missing.
func (e *Element) AddClass(class string) {
	if e == nil || class == "" || e.HasClass(class) {
		return
	}
	setAttr(e.node, "class", strings.Join(append(e.Classes(), class), " "))
	e.emit(Patch{Op: OpAddClass, Value: class})
}

// RemoveClass removes a class when present.
func (e *Element) RemoveClass(class string) {
	if e == nil || !e.HasClass(class) {
		return
	}
	kept := make([]string, 0, len(e.Classes()))
	for _, c := range e.Classes() {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(e.node, "class", strings.Join(kept, " "))
	e.emit(Patch{Op: OpRemoveClass, Value: class})
}

// ToggleClass adds or removes a class.
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
		return
	}
	e.RemoveClass(class)
}

// Value returns the current value of an input, textarea or select.
func (e *Element) Value() string {
	if e == nil {
		return ""
	}
	switch e.node.DataAtom {
	case atom.Textarea:
		return textContent(e.node)
	case atom.Select:
		first, found := "", false
		for _, o := range optionNodes(e.node) {
			if hasAttr(o, "selected") {
				return optionValue(o)
			}
			if !found {
				first, found = optionValue(o), true
			}
		}
		return first
	default:
		return attrOf(e.node, "value")
	}
}

// SetValue sets the value of an input, textarea or select.
func (e *Element) SetValue(value string) {
	e.setValue(value, true)
}

func (e *Element) setValue(value string, record bool) {
	if e == nil {
		return
	}
	switch e.node.DataAtom {
	case atom.Textarea:
		e.clearChildren()
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	case atom.Select:
		for _, o := range optionNodes(e.node) {
			if optionValue(o) == value {
				setAttr(o, "selected", "")
			} else {
				removeAttr(o, "selected")
			}
		}
	default:
		setAttr(e.node, "value", value)
	}
	if record {
		e.emit(Patch{Op: OpValue, Value: value})
	}
}

// Checked reports the checked state of a checkbox or radio.
func (e *Element) Checked() bool {
	return e.HasAttr("checked")
}

// SetChecked sets the checked state; checking a radio unchecks its group.
func (e *Element) SetChecked(on bool) {
	e.setChecked(on, true)
}

func (e *Element) setChecked(on bool, record bool) {
	if e == nil {
		return
	}
	if on {
		setAttr(e.node, "checked", "")
		if strings.EqualFold(attrOf(e.node, "type"), "radio") {
			e.uncheckGroup()
		}
	} else {
		removeAttr(e.node, "checked")
	}
	if record {
		e.emit(Patch{Op: OpChecked, Value: fmt.Sprint(on)})
	}
}

func (e *Element) uncheckGroup() {
	name := attrOf(e.node, "name")
	if name == "" {
		return
	}
	walk(e.doc.root, func(n *html.Node) bool {
		if n != e.node && n.DataAtom == atom.Input && strings.EqualFold(attrOf(n, "type"), "radio") && attrOf(n, "name") == name {
			removeAttr(n, "checked")
		}
		return true
	})
}

// SetDisabled toggles the disabled attribute.
func (e *Element) SetDisabled(disabled bool) {
	if disabled {
		if !e.HasAttr("disabled") {
			e.SetAttr("disabled", "")
		}
		return
	}
	e.RemoveAttr("disabled")
}

// Disabled reports whether the disabled attribute is set.
func (e *Element) Disabled() bool {
	return e.HasAttr("disabled")
}

// ScrollToBottom asks the browser to scroll the element to its end.
func (e *Element) ScrollToBottom() {
	if e == nil {
		return
	}
	if target, ok := targetOf(e.node); ok {
		e.doc.record(Patch{Op: OpScroll, Target: target})
	}
}

// Parent returns the parent element, or nil at the root.
func (e *Element) Parent() *Element {
	if e == nil || e.node.Parent == nil || e.node.Parent.Type != html.ElementNode {
		return nil
	}
	return &Element{doc: e.doc, node: e.node.Parent}
}

// Children returns the child elements.
func (e *Element) Children() []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{doc: e.doc, node: c})
		}
	}
	return out
}

// Options returns the options of a select or datalist.
func (e *Element) Options() []Option {
	if e == nil {
		return nil
	}
	nodes := optionNodes(e.node)
	out := make([]Option, 0, len(nodes))
	for _, o := range nodes {
		out = append(out, Option{
			Value:    optionValue(o),
			Label:    strings.TrimSpace(textContent(o)),
			Selected: hasAttr(o, "selected"),
		})
	}
	return out
}

// QueryAttr returns descendants carrying the attribute, in document order.
func (e *Element) QueryAttr(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	walk(e.node, func(n *html.Node) bool {
		if n != e.node && n.Type == html.ElementNode && hasAttr(n, name) {
			out = append(out, &Element{doc: e.doc, node: n})
		}
		return true
	})
	return out
}

// QueryClass returns descendants carrying the class, in document order.
func (e *Element) QueryClass(class string) []*Element {
	var out []*Element
	for _, el := range e.QueryAttr("class") {
		if el.HasClass(class) {
			out = append(out, el)
		}
	}
	return out
}

func (e *Element) clearChildren() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.doc.unindex(c)
		e.node.RemoveChild(c)
		c = next
	}
}

// emit records p against this element. Mutations of elements without an
// addressable target resync the closest addressable ancestor instead.
func (e *Element) emit(p Patch) {
	if !e.attached() {
		return
	}
	if target, ok := targetOf(e.node); ok {
		p.Target = target
		e.doc.record(p)
		return
	}
	for n := e.node.Parent; n != nil; n = n.Parent {
		if target, ok := targetOf(n); ok {
			e.doc.record(Patch{Op: OpHTML, Target: target, Value: innerHTML(n)})
			return
		}
	}
}

func (e *Element) attached() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

func targetOf(n *html.Node) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	if id := attrOf(n, "id"); id != "" {
		return id, true
	}
	switch n.DataAtom {
	case atom.Body:
		return TargetBody, true
	case atom.Html:
		return TargetRoot, true
	}
	return "", false
}

func renderComponent(ctx context.Context, c templ.Component) (string, error) {
	if c == nil {
		return "", nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render component: %w", err)
	}
	return buf.String(), nil
}

func setAttr(n *html.Node, name string, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func optionNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == atom.Option {
			out = append(out, c)
		}
		return true
	})
	return out
}

func optionValue(o *html.Node) string {
	if hasAttr(o, "value") {
		return attrOf(o, "value")
	}
	return strings.TrimSpace(textContent(o))
}
