package library

import (
	"fmt"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
)

// Node is one section of the mind map.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Page  int    `json:"page"`
}

// Edge links two sections. Sequence edges have no label; co-entity edges
// carry the shared entity.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Graph is the mind map of one knowledge base.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type mindmapItem struct {
	section  string
	page     apiclient.FlexInt
	entities []string
}

// BuildGraph derives the mind map from summaries for deep knowledge bases
// and from documents otherwise. Nodes are distinct section titles ordered by
// their lowest page; consecutive nodes are linked, and every pair of sections
// mentioning the same entity gets one labeled edge per entity.
func BuildGraph(ex apiclient.Explore, deep bool) Graph {
	var items []mindmapItem
	if deep && len(ex.Summaries) > 0 {
		for _, c := range SummaryCards(ex) {
			items = append(items, mindmapItem{section: c.SectionTitle, page: c.Page, entities: ParseEntities(c.Entities)})
		}
	} else {
		for _, ch := range ex.Documents {
			items = append(items, mindmapItem{section: ch.SectionTitle, page: ch.PageStart, entities: ParseEntities(ch.Entities)})
		}
	}

	type section struct {
		title    string
		page     int
		paged    bool
		order    int
		entities map[string]bool
	}
	byTitle := map[string]*section{}
	var sections []*section
	for _, it := range items {
		title := strings.TrimSpace(it.section)
		if title == "" {
			continue
		}
		s, ok := byTitle[title]
		if !ok {
			s = &section{title: title, order: len(sections), entities: map[string]bool{}}
			byTitle[title] = s
			sections = append(sections, s)
		}
		if it.page.Valid && (!s.paged || it.page.Value < s.page) {
			s.page, s.paged = it.page.Value, true
		}
		for _, e := range it.entities {
			s.entities[e] = true
		}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		a, b := sections[i], sections[j]
		if a.paged != b.paged {
			return a.paged
		}
		if a.paged && a.page != b.page {
			return a.page < b.page
		}
		return a.order < b.order
	})

	var g Graph
	for i, s := range sections {
		g.Nodes = append(g.Nodes, Node{ID: fmt.Sprintf("n%d", i), Label: s.title, Page: s.page})
		if i > 0 {
			g.Edges = append(g.Edges, Edge{From: g.Nodes[i-1].ID, To: g.Nodes[i].ID})
		}
	}
	seen := map[string]bool{}
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			var shared []string
			for e := range sections[i].entities {
				if sections[j].entities[e] {
					shared = append(shared, e)
				}
			}
			sort.Strings(shared)
			for _, e := range shared {
				key := g.Nodes[i].ID + "|" + g.Nodes[j].ID + "|" + e
				if seen[key] {
					continue
				}
				seen[key] = true
				g.Edges = append(g.Edges, Edge{From: g.Nodes[i].ID, To: g.Nodes[j].ID, Label: e})
			}
		}
	}
	return g
}

// GraphRenderer turns a graph into markup.
type GraphRenderer interface {
	RenderGraph(g Graph) templ.Component
}

// PanZoom makes a rendered graph navigable.
type PanZoom interface {
	Enable(el *dom.Element)
}

// Mermaid renders graphs as Mermaid flowcharts for the browser to draw.
type Mermaid struct{}

// RenderGraph writes a <pre class="mermaid"> block.
func (Mermaid) RenderGraph(g Graph) templ.Component {
	return views.Func(func(w *views.Writer) {
		w.Raw(`<pre class="mermaid">`)
		w.Text(MermaidSource(g))
		w.Raw(`</pre>`)
	})
}

// MermaidSource returns the flowchart definition of g.
func MermaidSource(g Graph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", n.ID, mermaidLabel(n.Label))
	}
	for _, e := range g.Edges {
		if e.Label == "" {
			fmt.Fprintf(&b, "  %s --> %s\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&b, "  %s -. \"%s\" .- %s\n", e.From, mermaidLabel(e.Label), e.To)
	}
	return b.String()
}

var mermaidEscaper = strings.NewReplacer(`"`, "#quot;", "\n", " ")

func mermaidLabel(s string) string {
	return mermaidEscaper.Replace(s)
}

// AttrPanZoom flags the container for the browser's pan and zoom hook.
type AttrPanZoom struct{}

// Enable sets data-panzoom on el.
func (AttrPanZoom) Enable(el *dom.Element) {
	el.SetAttr("data-panzoom", "on")
}
