package library

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/markdown"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
)

// Card id prefixes per container.
const (
	PrefixContent = "cc-"
	PrefixEntity  = "ec-"
	PrefixSearch  = "sr-"
)

type cardOptions struct {
	prefix   string
	md       markdown.Renderer
	tr       Translator
	filter   Filter
	expanded map[string]string
}

func cardID(prefix string, key string) string {
	return prefix + domID(key)
}

func cardsView(cards []Card, o cardOptions, emptyKey string) templ.Component {
	return views.Func(func(w *views.Writer) {
		writeCards(w, cards, o, emptyKey)
	})
}

func writeCards(w *views.Writer, cards []Card, o cardOptions, emptyKey string) {
	if len(cards) == 0 {
		w.Rawf(`<p class="empty">%s</p>`, views.Esc(o.tr.T(emptyKey, nil)))
		return
	}
	for _, c := range cards {
		writeCard(w, c, o)
	}
}

func flowView(sections []Section, o cardOptions, emptyKey string) templ.Component {
	return views.Func(func(w *views.Writer) {
		if len(sections) == 0 {
			w.Rawf(`<p class="empty">%s</p>`, views.Esc(o.tr.T(emptyKey, nil)))
			return
		}
		for _, s := range sections {
			w.Rawf(`<h3 class="flow-section">%s</h3>`, views.Esc(s.Title))
			for _, c := range s.Cards {
				writeCard(w, c, o)
			}
		}
	})
}

func writeCard(w *views.Writer, c Card, o cardOptions) {
	id := cardID(o.prefix, c.Key)
	hidden := ""
	if !o.filter.Matches(c) {
		hidden = " hidden"
	}
	w.Rawf(`<article class="chunk-card" id="%s"%s%s>`, id, views.DataAttr("chunk", c.ChunkID), hidden)

	w.Raw(`<nav class="breadcrumb">`)
	if c.SourceFile != "" {
		w.Rawf(`<span class="crumb source">%s</span>`, views.Esc(c.SourceFile))
	}
	if c.SectionTitle != "" {
		w.Rawf(`<a class="crumb" data-action="%s"%s>%s</a>`, ActionSectionFilter, views.DataAttr("section", c.SectionTitle), views.Esc(c.SectionTitle))
	}
	if c.Page.Valid {
		w.Rawf(`<span class="crumb page">%s</span>`, views.Esc(o.tr.T("library_page", map[string]string{"page": strconv.Itoa(c.Page.Value)})))
	}
	if c.Score != nil {
		w.Rawf(`<span class="score">%s</span>`, views.Esc(strconv.FormatFloat(*c.Score, 'f', 2, 64)))
	}
	w.Raw(`</nav>`)

	if len(c.Tags) > 0 {
		w.Raw(`<ul class="tags">`)
		for _, tag := range c.Tags {
			active := ""
			if o.filter.Kind == FilterTag && o.filter.Value == tag {
				active = " active"
			}
			w.Rawf(`<li class="tag%s" data-action="%s"%s>%s</li>`, active, ActionTagFilter, views.DataAttr("tag", tag), views.Esc(tag))
		}
		w.Raw(`</ul>`)
	}

	content := c.Content
	expanded := false
	if full, ok := o.expanded[c.Key]; ok {
		content = full
		expanded = true
	}
	w.Rawf(`<div class="chunk-content" id="%s-body">%s</div>`, id, o.md.Render(content))

	w.Raw(`<footer class="chunk-meta">`)
	if len(c.KeyTerms) > 0 {
		w.Raw(`<span class="key-terms">`)
		for _, term := range c.KeyTerms {
			w.Rawf(`<span class="key-term">%s</span>`, views.Esc(term))
		}
		w.Raw(`</span>`)
	}
	if hasPayload(c.Links) {
		w.Rawf(`<span class="icon" data-action="%s"%s title="%s">&#128279;</span>`, ActionTooltip,
			views.DataAttr("kind", TooltipLinks, "payload", string(c.Links)), views.Esc(o.tr.T("library_links", nil)))
	}
	if hasPayload(c.Stats) {
		w.Rawf(`<span class="icon" data-action="%s"%s title="%s">&#128202;</span>`, ActionTooltip,
			views.DataAttr("kind", TooltipStats, "payload", string(c.Stats)), views.Esc(o.tr.T("library_stats", nil)))
	}
	if c.Expandable {
		label := "library_expand"
		if expanded {
			label = "library_collapse"
		}
		w.Rawf(`<button class="expand" id="%s-expand" data-action="%s"%s>%s</button>`, id, ActionExpand,
			views.DataAttr("card", c.Key), views.Esc(o.tr.T(label, nil)))
	}
	w.Raw(`</footer></article>`)
}

func hasPayload(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != `""` && s != "[]" && s != "{}"
}

func kbListView(tr Translator, kbs []apiclient.KnowledgeBase, selected string) templ.Component {
	if len(kbs) == 0 {
		return views.Empty(tr.T("library_no_kbs", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, kb := range kbs {
			class := "item"
			if kb.Name == selected {
				class += " active"
			}
			w.Rawf(`<li class="%s" data-action="%s"%s><span class="item-name">%s</span> <span class="muted">%s</span> <span class="badge">%d</span></li>`,
				class, ActionSelectKB, views.DataAttr("kb", kb.Name), views.Esc(kb.Name),
				views.Esc(kb.Metadata.KBType), kb.Count)
		}
	})
}

func entityListView(tr Translator, names []string, selected string) templ.Component {
	if len(names) == 0 {
		return views.Empty(tr.T("library_no_entities", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, name := range names {
			class := "item"
			if name == selected {
				class += " active"
			}
			w.Rawf(`<li class="%s" data-action="%s"%s>%s</li>`, class, ActionSelectEntity, views.DataAttr("entity", name), views.Esc(name))
		}
	})
}

func assetGridView(tr Translator, assets []apiclient.Asset) templ.Component {
	if len(assets) == 0 {
		return views.Empty(tr.T("library_no_assets", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, a := range assets {
			w.Rawf(`<figure class="asset" title="%s">`, views.Esc(a.Description))
			w.Rawf(`<img src="%s" alt="%s" data-action="%s"%s>`, views.SafeURL(a.ThumbURL), views.Esc(a.Description),
				ActionOpenAsset, views.DataAttr("full", a.FullURL))
			w.Rawf(`<figcaption>%s</figcaption>`, views.Esc(a.Classification))
			w.Rawf(`<button class="item-delete" data-action="%s"%s title="%s">&times;</button>`, ActionDeleteAsset,
				views.DataAttr("thumb", ThumbFilename(a.ThumbURL)), views.Esc(tr.T("delete", nil)))
			w.Raw(`</figure>`)
		}
	})
}

func scopeOptions(tr Translator, kb string) templ.Component {
	return views.Func(func(w *views.Writer) {
		selected := ""
		if kb == "" {
			selected = " selected"
		}
		w.Rawf(`<option value="%s" data-i18n="search_scope_all"%s>%s</option>`, ScopeAll, selected, views.Esc(tr.T("search_scope_all", nil)))
		if kb != "" {
			w.Rawf(`<option value="%s" selected>%s</option>`, views.Esc(kb), views.Esc(kb))
		}
	})
}
