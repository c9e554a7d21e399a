// Package library is the knowledge base explorer: a list of knowledge bases
// with dashboard, content, entity, asset and mind map views, plus search.
package library

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library/cache"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/markdown"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/status"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"github.com/rs/zerolog"
	"golang.org/x/text/message"
)

// SearchDelay is the quiet period before a search runs.
const SearchDelay = 300 * time.Millisecond

// API is the backend surface of the hub.
type API interface {
	ListKnowledgeBases(ctx context.Context) ([]apiclient.KnowledgeBase, error)
	Dashboard(ctx context.Context, kb string) (apiclient.Dashboard, error)
	Explore(ctx context.Context, kb string) (apiclient.Explore, error)
	Entities(ctx context.Context, kb string) ([]string, error)
	Chunk(ctx context.Context, kb string, chunkID string) (apiclient.Chunk, error)
	DeleteKnowledgeBase(ctx context.Context, kb string) error
	DeleteAsset(ctx context.Context, kb string, thumbFilename string) error
	UploadAsset(ctx context.Context, kb string, file apiclient.FormFile) error
	Search(ctx context.Context, query string, scope string) (apiclient.SearchResults, error)
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// Confirmer asks the user for a yes or no.
type Confirmer interface {
	Confirm(titleKey string, messageKey string, replacements map[string]string) (*status.Deferred, error)
}

// Translator resolves labels and formats numbers for the session language.
type Translator interface {
	T(key string, replacements map[string]string) string
	Printer() *message.Printer
}

// Deps are the hub's collaborators. Zero Cache, Markdown, Graph and PanZoom
// get in-memory, goldmark, Mermaid and attribute defaults.
type Deps struct {
	Doc      *dom.Document
	API      API
	Status   Status
	Confirm  Confirmer
	Tr       Translator
	Sched    eventloop.Scheduler
	Cache    *cache.Cache
	Markdown markdown.Renderer
	Graph    GraphRenderer
	PanZoom  PanZoom
	Logger   zerolog.Logger
}

// Hub owns #library-modal.
type Hub struct {
	deps Deps

	kbs            []apiclient.KnowledgeBase
	selectedKB     string
	selectedEntity string
	entityQuery    string
	mode           ContentMode
	tab            Tab
	filter         Filter
	expanded       map[string]string

	search    *eventloop.Debouncer
	query     string
	searching bool
}

// New returns a closed hub.
func New(deps Deps) *Hub {
	if deps.Cache == nil {
		deps.Cache = cache.New(nil, "", nil, deps.Logger)
	}
	if deps.Markdown == nil {
		deps.Markdown = markdown.New()
	}
	if deps.Graph == nil {
		deps.Graph = Mermaid{}
	}
	if deps.PanZoom == nil {
		deps.PanZoom = AttrPanZoom{}
	}
	h := &Hub{deps: deps, expanded: map[string]string{}}
	h.search = eventloop.NewDebouncer(deps.Sched, SearchDelay, h.runSearch)
	return h
}

// Bind attaches the hub handlers.
func (h *Hub) Bind() {
	doc := h.deps.Doc
	doc.On(CloseID, dom.EventClick, func(context.Context, dom.Event) { h.Close() })
	doc.OnAction(ActionSelectKB, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.SelectKB(ctx, ev.Datum("kb"))
	})
	doc.OnAction(ActionTab, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		if tab, ok := ParseTab(ev.Datum("tab")); ok {
			h.ShowTab(ctx, tab)
		}
	})
	doc.On(ModeListID, dom.EventClick, func(ctx context.Context, _ dom.Event) { h.SetMode(ctx, ModeList) })
	doc.On(ModeFlowID, dom.EventClick, func(ctx context.Context, _ dom.Event) { h.SetMode(ctx, ModeFlow) })
	doc.OnAction(ActionTagFilter, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.ApplyFilter(ctx, Filter{Kind: FilterTag, Value: ev.Datum("tag")})
	})
	doc.OnAction(ActionSectionFilter, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.ApplyFilter(ctx, Filter{Kind: FilterSection, Value: ev.Datum("section")})
	})
	doc.On(FilterClearID, dom.EventClick, func(ctx context.Context, _ dom.Event) { h.ClearFilter(ctx) })
	doc.OnAction(ActionExpand, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.ToggleExpand(ctx, ev.Datum("card"))
	})
	doc.OnAction(ActionTooltip, dom.EventMouseOver, func(_ context.Context, ev dom.Event) { h.ShowTooltip(ev) })
	doc.OnAction(ActionTooltip, dom.EventMouseOut, func(context.Context, dom.Event) { h.HideTooltip() })
	doc.On(EntityFilterID, dom.EventInput, func(ctx context.Context, _ dom.Event) {
		h.FilterEntities(ctx, doc.ByID(EntityFilterID).Value())
	})
	doc.OnAction(ActionSelectEntity, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.SelectEntity(ctx, ev.Datum("entity"))
	})
	doc.On(DropzoneID, dom.EventDrop, func(ctx context.Context, ev dom.Event) { h.Upload(ctx, ev.Files) })
	doc.OnAction(ActionOpenAsset, dom.EventClick, func(_ context.Context, ev dom.Event) { h.OpenLightbox(ev.Datum("full")) })
	doc.OnAction(ActionDeleteAsset, dom.EventClick, func(_ context.Context, ev dom.Event) { h.DeleteAsset(ev.Datum("thumb")) })
	doc.On(LightboxID, dom.EventClick, func(_ context.Context, ev dom.Event) {
		if ev.Target == LightboxID || ev.Target == LightboxCloseID {
			h.CloseLightbox()
		}
	})
	doc.On(SearchID, dom.EventInput, func(ctx context.Context, _ dom.Event) {
		h.SearchInput(ctx, doc.ByID(SearchID).Value())
	})
	doc.On(ScopeID, dom.EventChange, func(ctx context.Context, _ dom.Event) {
		h.SearchInput(ctx, doc.ByID(SearchID).Value())
	})
	doc.On(KBDeleteID, dom.EventClick, func(context.Context, dom.Event) { h.DeleteKB() })
}

// SelectedKB returns the knowledge base on screen.
func (h *Hub) SelectedKB() string { return h.selectedKB }

// SelectedEntity returns the entity on screen.
func (h *Hub) SelectedEntity() string { return h.selectedEntity }

// ActiveTab returns the inspector tab.
func (h *Hub) ActiveTab() Tab { return h.tab }

// Mode returns the content layout.
func (h *Hub) Mode() ContentMode { return h.mode }

// ActiveFilter returns the content filter.
func (h *Hub) ActiveFilter() Filter { return h.filter }

// Searching reports whether search results replace the inspector.
func (h *Hub) Searching() bool { return h.searching }

// Open shows the hub with a fresh knowledge base list.
func (h *Hub) Open(ctx context.Context) {
	doc := h.deps.Doc
	doc.ByID(ModalID).Show()
	doc.ByID(OverlayID).Show()
	_ = h.reloadKBs(ctx)
}

// Close hides the hub and drops a pending search.
func (h *Hub) Close() {
	h.search.Stop()
	h.HideTooltip()
	h.CloseLightbox()
	h.deps.Doc.ByID(ModalID).Hide()
	h.deps.Doc.ByID(OverlayID).Hide()
}

func (h *Hub) reloadKBs(ctx context.Context) error {
	kbs, err := h.deps.API.ListKnowledgeBases(ctx)
	if err != nil {
		return err
	}
	h.kbs = kbs
	if h.selectedKB != "" && !h.knows(h.selectedKB) {
		h.reset()
	}
	doc := h.deps.Doc
	_ = doc.ByID(KBListID).Render(ctx, kbListView(h.deps.Tr, kbs, h.selectedKB))
	_ = doc.ByID(ScopeID).Render(ctx, scopeOptions(h.deps.Tr, h.selectedKB))
	doc.ByID(KBDeleteID).SetDisabled(h.selectedKB == "")
	return nil
}

func (h *Hub) knows(name string) bool {
	for _, kb := range h.kbs {
		if kb.Name == name {
			return true
		}
	}
	return false
}

func (h *Hub) deep() bool {
	for _, kb := range h.kbs {
		if kb.Name == h.selectedKB {
			return kb.Deep()
		}
	}
	return false
}

func (h *Hub) reset() {
	h.selectedKB = ""
	h.selectedEntity = ""
	h.entityQuery = ""
	h.mode = ModeList
	h.filter = Filter{}
	h.expanded = map[string]string{}
}

// SelectKB makes name the current knowledge base: selection state resets,
// its cache entry is cleared, the dashboard is shown, entities load and the
// content is fetched into the cache.
func (h *Hub) SelectKB(ctx context.Context, name string) {
	if name == "" {
		return
	}
	h.reset()
	h.selectedKB = name
	h.deps.Cache.Clear(ctx, name)

	doc := h.deps.Doc
	for _, li := range doc.ByID(KBListID).QueryAttr("data-kb") {
		li.ToggleClass("active", li.Attr("data-kb") == name)
	}
	doc.ByID(KBDeleteID).SetDisabled(false)
	_ = doc.ByID(ScopeID).Render(ctx, scopeOptions(h.deps.Tr, name))
	doc.ByID(EntityFilterID).SetValue("")
	_ = doc.ByID(EntityCardsID).SetHTML("")
	h.renderBanner()

	h.ShowTab(ctx, TabDashboard)
	h.renderEntityList(ctx)
	_, _ = h.explore(ctx, name)
}

func (h *Hub) explore(ctx context.Context, kb string) (apiclient.Explore, bool) {
	var ex apiclient.Explore
	if h.deps.Cache.Load(ctx, kb, cache.BucketExplore, &ex) {
		return ex, true
	}
	ex, err := h.deps.API.Explore(ctx, kb)
	if err != nil {
		return ex, false
	}
	h.deps.Cache.Save(ctx, kb, cache.BucketExplore, ex)
	return ex, true
}

func (h *Hub) dashboard(ctx context.Context, kb string) (apiclient.Dashboard, bool) {
	var d apiclient.Dashboard
	if h.deps.Cache.Load(ctx, kb, cache.BucketDashboard, &d) {
		return d, true
	}
	d, err := h.deps.API.Dashboard(ctx, kb)
	if err != nil {
		return d, false
	}
	h.deps.Cache.Save(ctx, kb, cache.BucketDashboard, d)
	return d, true
}

func (h *Hub) entities(ctx context.Context, kb string) ([]string, bool) {
	var names []string
	if h.deps.Cache.Load(ctx, kb, cache.BucketEntities, &names) {
		return names, true
	}
	names, err := h.deps.API.Entities(ctx, kb)
	if err != nil {
		return nil, false
	}
	h.deps.Cache.Save(ctx, kb, cache.BucketEntities, names)
	return names, true
}

func (h *Hub) graph(ctx context.Context, kb string) (Graph, bool) {
	var g Graph
	if h.deps.Cache.Load(ctx, kb, cache.BucketMindmap, &g) {
		return g, true
	}
	ex, ok := h.explore(ctx, kb)
	if !ok {
		return g, false
	}
	g = BuildGraph(ex, h.deep())
	h.deps.Cache.Save(ctx, kb, cache.BucketMindmap, g)
	return g, true
}

// ShowTab switches the inspector to tab and renders it.
func (h *Hub) ShowTab(ctx context.Context, tab Tab) {
	h.tab = tab
	doc := h.deps.Doc
	for _, t := range Tabs {
		doc.ByID(t.buttonID()).ToggleClass("active", t == tab)
		doc.ByID(t.paneID()).SetVisible(t == tab)
	}
	if h.selectedKB == "" {
		return
	}
	switch tab {
	case TabDashboard:
		h.renderDashboard(ctx)
	case TabContent:
		h.renderContent(ctx)
	case TabEntities:
		h.renderEntityList(ctx)
		h.renderEntityCards(ctx)
	case TabAssets:
		h.renderAssets(ctx)
	case TabMindmap:
		h.renderMindmap(ctx)
	}
}

func (h *Hub) renderDashboard(ctx context.Context) {
	d, ok := h.dashboard(ctx, h.selectedKB)
	if !ok {
		return
	}
	p := h.deps.Tr.Printer()
	doc := h.deps.Doc
	doc.ByID(ChunkCountID).SetText(p.Sprintf("%d", d.ChunkCount))
	_ = doc.ByID(EntityChartID).Render(ctx, entityChartView(h.deps.Tr, p, d.EntityDistribution))
	_ = doc.ByID(WordCloudID).Render(ctx, wordCloudView(h.deps.Tr, p, d.KeyTermsWordCloud))
}

func (h *Hub) cardOptions(prefix string, filter Filter) cardOptions {
	return cardOptions{prefix: prefix, md: h.deps.Markdown, tr: h.deps.Tr, filter: filter, expanded: h.expanded}
}

func (h *Hub) contentCards(ctx context.Context) ([]Card, bool) {
	ex, ok := h.explore(ctx, h.selectedKB)
	if !ok {
		return nil, false
	}
	return ContentCards(ex, h.deep()), true
}

func (h *Hub) renderContent(ctx context.Context) {
	doc := h.deps.Doc
	doc.ByID(ModeListID).ToggleClass("active", h.mode == ModeList)
	doc.ByID(ModeFlowID).ToggleClass("active", h.mode == ModeFlow)
	h.renderBanner()
	cards, ok := h.contentCards(ctx)
	if !ok {
		return
	}
	opts := h.cardOptions(PrefixContent, h.filter)
	var view templ.Component
	if h.mode == ModeFlow {
		view = flowView(GroupBySection(cards, h.deps.Tr.T("library_uncategorized", nil)), opts, "library_no_content")
	} else {
		view = cardsView(cards, opts, "library_no_content")
	}
	_ = doc.ByID(ContentCardsID).Render(ctx, view)
}

// SetMode switches the content layout.
func (h *Hub) SetMode(ctx context.Context, mode ContentMode) {
	h.mode = mode
	if h.tab == TabContent && h.selectedKB != "" {
		h.renderContent(ctx)
	}
}

// ApplyFilter shows the content view narrowed by f.
func (h *Hub) ApplyFilter(ctx context.Context, f Filter) {
	if f.Value == "" {
		return
	}
	h.filter = f
	h.ShowTab(ctx, TabContent)
	h.renderBanner()
}

// ClearFilter removes the content filter.
func (h *Hub) ClearFilter(ctx context.Context) {
	h.filter = Filter{}
	h.renderBanner()
	if h.tab == TabContent && h.selectedKB != "" {
		h.renderContent(ctx)
	}
}

func (h *Hub) renderBanner() {
	doc := h.deps.Doc
	banner := doc.ByID(BannerID)
	if !h.filter.Active() {
		banner.Hide()
		return
	}
	key := "filter_tag"
	if h.filter.Kind == FilterSection {
		key = "filter_section"
	}
	doc.ByID(BannerTextID).SetText(h.deps.Tr.T(key, map[string]string{"value": h.filter.Value}))
	banner.Show()
}

// ToggleExpand swaps a summary card between its summary and the full text
// of its chunks.
func (h *Hub) ToggleExpand(ctx context.Context, key string) {
	cards, ok := h.contentCards(ctx)
	if !ok {
		return
	}
	var card *Card
	for i := range cards {
		if cards[i].Key == key {
			card = &cards[i]
			break
		}
	}
	if card == nil || !card.Expandable {
		return
	}
	id := cardID(PrefixContent, key)
	doc := h.deps.Doc
	if _, open := h.expanded[key]; open {
		delete(h.expanded, key)
		_ = doc.ByID(id+"-body").SetHTML(h.deps.Markdown.Render(card.Content))
		doc.ByID(id + "-expand").SetText(h.deps.Tr.T("library_expand", nil))
		return
	}
	parts := make([]string, 0, len(card.ChildIDs))
	for _, childID := range card.ChildIDs {
		ch, err := h.deps.API.Chunk(ctx, h.selectedKB, childID)
		if err != nil {
			return
		}
		parts = append(parts, ch.Document)
	}
	full := strings.Join(parts, "\n\n")
	h.expanded[key] = full
	_ = doc.ByID(id+"-body").SetHTML(h.deps.Markdown.Render(full))
	doc.ByID(id + "-expand").SetText(h.deps.Tr.T("library_collapse", nil))
}

// MatchEntities returns the names containing query, ignoring case.
func MatchEntities(names []string, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return names
	}
	var out []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), query) {
			out = append(out, n)
		}
	}
	return out
}

func (h *Hub) renderEntityList(ctx context.Context) {
	names, ok := h.entities(ctx, h.selectedKB)
	if !ok {
		return
	}
	_ = h.deps.Doc.ByID(EntityListID).Render(ctx, entityListView(h.deps.Tr, MatchEntities(names, h.entityQuery), h.selectedEntity))
}

// FilterEntities narrows the entity list.
func (h *Hub) FilterEntities(ctx context.Context, query string) {
	h.entityQuery = query
	if h.selectedKB != "" {
		h.renderEntityList(ctx)
	}
}

// SelectEntity shows the cards mentioning name.
func (h *Hub) SelectEntity(ctx context.Context, name string) {
	if name == "" || h.selectedKB == "" {
		return
	}
	h.selectedEntity = name
	for _, li := range h.deps.Doc.ByID(EntityListID).QueryAttr("data-entity") {
		li.ToggleClass("active", li.Attr("data-entity") == name)
	}
	h.renderEntityCards(ctx)
}

func (h *Hub) renderEntityCards(ctx context.Context) {
	el := h.deps.Doc.ByID(EntityCardsID)
	if h.selectedEntity == "" {
		_ = el.Render(ctx, views.Empty(h.deps.Tr.T("library_pick_entity", nil)))
		return
	}
	ex, ok := h.explore(ctx, h.selectedKB)
	if !ok {
		return
	}
	var cards []Card
	for _, ch := range ex.Documents {
		if HasEntity(ch.Entities, h.selectedEntity) {
			cards = append(cards, ChunkCard(ch))
		}
	}
	_ = el.Render(ctx, cardsView(cards, h.cardOptions(PrefixEntity, Filter{}), "library_no_content"))
}

func (h *Hub) renderAssets(ctx context.Context) {
	ex, ok := h.explore(ctx, h.selectedKB)
	if !ok {
		return
	}
	_ = h.deps.Doc.ByID(AssetGridID).Render(ctx, assetGridView(h.deps.Tr, ex.Assets))
}

// Upload sends dropped images to the selected knowledge base. Files that are
// not images are skipped.
func (h *Hub) Upload(ctx context.Context, files []dom.File) {
	if h.selectedKB == "" {
		h.deps.Status.SetText("library_select_kb", true, nil)
		return
	}
	kb := h.selectedKB
	uploaded := 0
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			continue
		}
		err := h.deps.API.UploadAsset(ctx, kb, apiclient.FormFile{Field: "file", Name: f.Name, ContentType: f.ContentType, Data: f.Data})
		if err != nil {
			break
		}
		uploaded++
	}
	if uploaded == 0 {
		if len(files) > 0 && !anyImage(files) {
			h.deps.Status.SetText("asset_not_image", true, nil)
		}
		return
	}
	h.deps.Cache.Drop(ctx, kb, cache.BucketExplore)
	h.deps.Status.SetText("asset_uploaded", false, map[string]string{"count": strconv.Itoa(uploaded)})
	if h.tab == TabAssets {
		h.renderAssets(ctx)
	}
}

func anyImage(files []dom.File) bool {
	for _, f := range files {
		if strings.HasPrefix(f.ContentType, "image/") {
			return true
		}
	}
	return false
}

// ThumbFilename returns the file name part of a thumbnail URL.
func ThumbFilename(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	return path.Base(raw)
}

// DeleteAsset asks for confirmation and deletes the asset.
func (h *Hub) DeleteAsset(thumb string) {
	kb := h.selectedKB
	if kb == "" || thumb == "" {
		return
	}
	answer, err := h.deps.Confirm.Confirm("confirm_delete_title", "confirm_delete_asset", map[string]string{"name": thumb})
	if err != nil {
		return
	}
	answer.Then(func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := h.deps.API.DeleteAsset(ctx, kb, thumb); err != nil {
			return
		}
		h.deps.Cache.Drop(ctx, kb, cache.BucketExplore)
		if h.selectedKB == kb && h.tab == TabAssets {
			h.renderAssets(ctx)
		}
	})
}

// OpenLightbox shows the full image.
func (h *Hub) OpenLightbox(full string) {
	if full == "" {
		return
	}
	h.deps.Doc.ByID(LightboxImageID).SetAttr("src", string(templ.URL(full)))
	h.deps.Doc.ByID(LightboxID).Show()
}

// CloseLightbox hides the lightbox.
func (h *Hub) CloseLightbox() {
	h.deps.Doc.ByID(LightboxID).Hide()
}

func (h *Hub) renderMindmap(ctx context.Context) {
	g, ok := h.graph(ctx, h.selectedKB)
	if !ok {
		return
	}
	el := h.deps.Doc.ByID(MindmapID)
	el.RemoveAttr("data-panzoom")
	if len(g.Nodes) == 0 {
		_ = el.Render(ctx, views.Empty(h.deps.Tr.T("library_no_mindmap", nil)))
		return
	}
	_ = el.Render(ctx, h.deps.Graph.RenderGraph(g))
	h.deps.PanZoom.Enable(el)
}

// ShowTooltip shows the payload of a tooltip element near the cursor.
func (h *Hub) ShowTooltip(ev dom.Event) {
	text, ok := TooltipText(ev.Datum("kind"), ev.Datum("payload"))
	if !ok {
		text = h.deps.Tr.T("tooltip_invalid", nil)
	}
	place := Place(ev.X, ev.Y, ev.ViewportW, ev.ViewportH)
	tip := h.deps.Doc.ByID(TooltipID)
	tip.SetText(text)
	tip.SetAttr("style", place.Style())
	tip.ToggleClass("flip-x", place.FlipX)
	tip.ToggleClass("flip-y", place.FlipY)
	tip.Show()
}

// HideTooltip hides the tooltip.
func (h *Hub) HideTooltip() {
	h.deps.Doc.ByID(TooltipID).Hide()
}

// SearchInput (re)starts the search delay; an empty query restores the
// inspector right away.
func (h *Hub) SearchInput(_ context.Context, query string) {
	h.query = strings.TrimSpace(query)
	if h.query == "" {
		h.search.Stop()
		h.restoreInspector()
		return
	}
	h.search.Trigger()
}

func (h *Hub) runSearch(ctx context.Context) {
	query := h.query
	if query == "" {
		return
	}
	scope := h.deps.Doc.ByID(ScopeID).Value()
	if scope == "" {
		scope = ScopeAll
	}
	results, err := h.deps.API.Search(ctx, query, scope)
	if err != nil || h.query != query {
		return
	}
	cards := make([]Card, 0, len(results))
	for _, hit := range results {
		cards = append(cards, HitCard(hit))
	}
	doc := h.deps.Doc
	_ = doc.ByID(ResultsID).Render(ctx, views.Func(func(w *views.Writer) {
		w.Rawf(`<p class="results-count">%s</p>`, views.Esc(h.deps.Tr.T("search_results", map[string]string{
			"count": strconv.Itoa(len(cards)),
			"query": query,
		})))
		writeCards(w, cards, h.cardOptions(PrefixSearch, Filter{}), "search_none")
	}))
	h.HideTooltip()
	doc.ByID(InspectorID).Hide()
	doc.ByID(ResultsID).Show()
	h.searching = true
}

func (h *Hub) restoreInspector() {
	if !h.searching {
		return
	}
	h.searching = false
	h.deps.Doc.ByID(ResultsID).Hide()
	h.deps.Doc.ByID(InspectorID).Show()
}

// DeleteKB asks for confirmation and deletes the selected knowledge base.
func (h *Hub) DeleteKB() {
	kb := h.selectedKB
	if kb == "" {
		return
	}
	answer, err := h.deps.Confirm.Confirm("confirm_delete_title", "confirm_delete_kb", map[string]string{"name": kb})
	if err != nil {
		return
	}
	answer.Then(func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := h.deps.API.DeleteKnowledgeBase(ctx, kb); err != nil {
			return
		}
		h.deps.Cache.Clear(ctx, kb)
		if h.selectedKB == kb {
			h.reset()
			h.clearPanes()
		}
		h.deps.Status.SetText("kb_deleted", false, map[string]string{"name": kb})
		_ = h.reloadKBs(ctx)
	})
}

func (h *Hub) clearPanes() {
	doc := h.deps.Doc
	doc.ByID(ChunkCountID).SetText("0")
	for _, id := range []string{EntityChartID, WordCloudID, ContentCardsID, EntityListID, EntityCardsID, AssetGridID, MindmapID} {
		_ = doc.ByID(id).SetHTML("")
	}
	h.renderBanner()
}
