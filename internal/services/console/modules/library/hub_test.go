package library

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/consoletest"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
)

const coreExplore = `{
	"documents": [
		{"chunk_id": 1, "document": "Goblins lurk in the **caves**.", "section_title": "Monsters", "page_start": 40,
		 "tags": ["combat", "monster"], "entities": {"Goblin": ["npc"]}, "linked_chunks": "[2]", "structured_stats": "{\"hp\": 7}"},
		{"chunk_id": 2, "document": "Roll initiative.", "section_title": "Combat", "page_start": 12, "tags": "[\"combat\"]"},
		{"chunk_id": 3, "document": "Loose note."}
	],
	"assets": [{"thumb_url": "/static/kb/core/thumb_map.png", "full_url": "/static/kb/core/map.png", "description": "Map"}]
}`

func newHub(t *testing.T) (*consoletest.Env, *Hub) {
	t.Helper()
	env := consoletest.New(t)
	env.Backend.JSON(http.MethodGet, "/api/knowledge/", http.StatusOK, []map[string]any{
		{"name": "core", "count": 3, "metadata": map[string]string{"kb_type": "rules"}},
		{"name": "lore", "count": 2, "metadata": map[string]string{"kb_type": "setting", "indexing_strategy": "deep"}},
	})
	env.Backend.JSON(http.MethodGet, "/api/knowledge/dashboard/core", http.StatusOK, map[string]any{
		"chunk_count":          1234,
		"entity_distribution":  map[string]int{"Goblin": 3, "Dragon": 1},
		"key_terms_word_cloud": []map[string]any{{"text": "initiative", "value": 1}, {"text": "goblin", "value": 5}},
	})
	env.Backend.Handle(http.MethodGet, "/api/knowledge/explore/core", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(coreExplore))
	})
	env.Backend.JSON(http.MethodGet, "/api/knowledge/entities/core", http.StatusOK, []string{"Goblin", "Dragon"})

	h := New(Deps{
		Doc:     env.Doc,
		API:     env.API,
		Status:  env.Bar,
		Confirm: env.Modal,
		Tr:      env.I18n,
		Sched:   env.Sched,
	})
	h.Bind()
	h.Open(env.Ctx)
	return env, h
}

func selectKB(env *consoletest.Env, name string) {
	env.Action(dom.EventClick, ActionSelectKB, KBListID, map[string]string{"kb": name})
}

func TestOpenListsKnowledgeBases(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	if env.Doc.ByID(ModalID).Hidden() {
		t.Fatal("library modal hidden after Open")
	}
	list := env.Doc.ByID(KBListID).InnerHTML()
	if !strings.Contains(list, `data-kb="core"`) || !strings.Contains(list, `data-kb="lore"`) {
		t.Fatalf("kb list = %q", list)
	}
	if !env.Doc.ByID(KBDeleteID).Disabled() {
		t.Fatal("kb delete enabled without a selection")
	}
	if h.SelectedKB() != "" {
		t.Fatalf("selected = %q, want none", h.SelectedKB())
	}
}

func TestSelectKBLoadsDashboardAndCaches(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	selectKB(env, "core")

	if h.SelectedKB() != "core" || h.ActiveTab() != TabDashboard {
		t.Fatalf("selected = %q tab = %v", h.SelectedKB(), h.ActiveTab())
	}
	if got := env.Doc.ByID(ChunkCountID).Text(); got != "1,234" {
		t.Fatalf("chunk count = %q, want %q", got, "1,234")
	}
	chart := env.Doc.ByID(EntityChartID).InnerHTML()
	if !strings.Contains(chart, "Goblin") || !strings.Contains(chart, "75.0%") {
		t.Fatalf("entity chart = %q", chart)
	}
	if !strings.Contains(env.Doc.ByID(WordCloudID).InnerHTML(), "font-size:2.00rem") {
		t.Fatalf("word cloud = %q", env.Doc.ByID(WordCloudID).InnerHTML())
	}
	if env.Doc.ByID(KBDeleteID).Disabled() {
		t.Fatal("kb delete disabled after selection")
	}
	if got := env.Doc.ByID(ScopeID).Value(); got != "core" {
		t.Fatalf("search scope = %q, want core", got)
	}

	env.Action(dom.EventClick, ActionTab, "tab-content", map[string]string{"tab": "content"})
	env.Action(dom.EventClick, ActionTab, "tab-mindmap", map[string]string{"tab": "mindmap"})
	env.Action(dom.EventClick, ActionTab, "tab-dashboard", map[string]string{"tab": "dashboard"})
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/explore/core"); got != 1 {
		t.Fatalf("explore calls = %d, want 1", got)
	}
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/dashboard/core"); got != 1 {
		t.Fatalf("dashboard calls = %d, want 1", got)
	}

	selectKB(env, "core")
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/explore/core"); got != 2 {
		t.Fatalf("explore calls after reselect = %d, want 2", got)
	}
}

func TestTabsTogglePanes(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	selectKB(env, "core")
	env.Action(dom.EventClick, ActionTab, "tab-entities", map[string]string{"tab": "entities"})

	if h.ActiveTab() != TabEntities {
		t.Fatalf("tab = %v, want entities", h.ActiveTab())
	}
	if env.Doc.ByID("pane-entities").Hidden() || !env.Doc.ByID("pane-dashboard").Hidden() {
		t.Fatal("entities pane not the only visible pane")
	}
	if !env.Doc.ByID("tab-entities").HasClass("active") || env.Doc.ByID("tab-dashboard").HasClass("active") {
		t.Fatal("active tab class not moved")
	}
}

func TestContentFiltersAndModes(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	selectKB(env, "core")
	env.Action(dom.EventClick, ActionTagFilter, "cc-1", map[string]string{"tag": "monster"})

	if h.ActiveTab() != TabContent || h.ActiveFilter() != (Filter{Kind: FilterTag, Value: "monster"}) {
		t.Fatalf("tab = %v filter = %+v", h.ActiveTab(), h.ActiveFilter())
	}
	if env.Doc.ByID(BannerID).Hidden() || !strings.Contains(env.Doc.ByID(BannerTextID).Text(), "monster") {
		t.Fatalf("banner = %q hidden = %v", env.Doc.ByID(BannerTextID).Text(), env.Doc.ByID(BannerID).Hidden())
	}
	if env.Doc.ByID("cc-1").Hidden() || !env.Doc.ByID("cc-2").Hidden() || !env.Doc.ByID("cc-3").Hidden() {
		t.Fatal("tag filter did not hide non-matching cards")
	}

	env.Action(dom.EventClick, ActionSectionFilter, "cc-2", map[string]string{"section": "Combat"})
	if !env.Doc.ByID("cc-1").Hidden() || env.Doc.ByID("cc-2").Hidden() {
		t.Fatal("section filter did not replace tag filter")
	}

	env.Click(FilterClearID)
	if !env.Doc.ByID(BannerID).Hidden() || env.Doc.ByID("cc-2").Hidden() || env.Doc.ByID("cc-1").Hidden() {
		t.Fatal("clear did not restore every card")
	}

	env.Click(ModeFlowID)
	if h.Mode() != ModeFlow || !env.Doc.ByID(ModeFlowID).HasClass("active") {
		t.Fatalf("mode = %v", h.Mode())
	}
	cards := env.Doc.ByID(ContentCardsID).InnerHTML()
	combat := strings.Index(cards, ">Combat</h3>")
	monsters := strings.Index(cards, ">Monsters</h3>")
	misc := strings.Index(cards, ">Uncategorized</h3>")
	if combat < 0 || monsters < combat || misc < monsters {
		t.Fatalf("flow sections out of order: combat=%d monsters=%d misc=%d", combat, monsters, misc)
	}

	selectKB(env, "core")
	if h.Mode() != ModeList || h.ActiveFilter().Active() {
		t.Fatalf("selection kept mode = %v filter = %+v", h.Mode(), h.ActiveFilter())
	}
}

func TestTooltipShowsPayload(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	selectKB(env, "core")
	env.Doc.Dispatch(env.Ctx, dom.Event{
		Type: dom.EventMouseOver, Target: "cc-1", Action: ActionTooltip,
		Data: map[string]string{"kind": TooltipStats, "payload": `"{\"hp\": 7}"`},
		X:    900, Y: 100, ViewportW: 1000, ViewportH: 800,
	})

	tip := env.Doc.ByID(TooltipID)
	if tip.Hidden() || !strings.Contains(tip.Text(), `"hp": 7`) {
		t.Fatalf("tooltip = %q hidden = %v", tip.Text(), tip.Hidden())
	}
	if !tip.HasClass("flip-x") || tip.Attr("style") != "left:568px;top:112px" {
		t.Fatalf("tooltip style = %q classes = %v", tip.Attr("style"), tip.Classes())
	}

	env.Action(dom.EventMouseOut, ActionTooltip, "cc-1", nil)
	if !tip.Hidden() {
		t.Fatal("tooltip visible after mouseout")
	}

	env.Doc.Dispatch(env.Ctx, dom.Event{
		Type: dom.EventMouseOver, Target: "cc-1", Action: ActionTooltip,
		Data: map[string]string{"kind": TooltipLinks, "payload": "[oops"},
	})
	if got := tip.Text(); got != "Invalid data" {
		t.Fatalf("tooltip = %q, want %q", got, "Invalid data")
	}
}

func TestDeepExpandFetchesChildren(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	env.Backend.Handle(http.MethodGet, "/api/knowledge/explore/lore", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"documents": [
				{"chunk_id": "c1", "parent_id": "p1", "document": "First part.", "section_title": "Gods", "page_start": 3},
				{"chunk_id": "c2", "parent_id": "p1", "document": "Second part."}
			],
			"summaries": [{"parent_id": "p1", "document": "Gods summary."}]
		}`))
	})
	env.Backend.JSON(http.MethodGet, "/api/knowledge/chunk/lore/c1", http.StatusOK, map[string]any{"chunk_id": "c1", "document": "Full first."})
	env.Backend.JSON(http.MethodGet, "/api/knowledge/chunk/lore/c2", http.StatusOK, map[string]any{"chunk_id": "c2", "document": "Full second."})

	selectKB(env, "lore")
	env.Action(dom.EventClick, ActionTab, "tab-content", map[string]string{"tab": "content"})
	body := env.Doc.ByID("cc-p1-body")
	if !strings.Contains(body.InnerHTML(), "Gods summary.") {
		t.Fatalf("summary body = %q", body.InnerHTML())
	}
	if env.Doc.ByID("cc-c1") != nil {
		t.Fatal("child chunk rendered as its own card")
	}

	env.Action(dom.EventClick, ActionExpand, "cc-p1-expand", map[string]string{"card": "p1"})
	html := body.InnerHTML()
	if !strings.Contains(html, "Full first.") || !strings.Contains(html, "Full second.") {
		t.Fatalf("expanded body = %q", html)
	}
	if got := env.Doc.ByID("cc-p1-expand").Text(); got != "Show summary" {
		t.Fatalf("expand label = %q, want %q", got, "Show summary")
	}

	env.Action(dom.EventClick, ActionExpand, "cc-p1-expand", map[string]string{"card": "p1"})
	if !strings.Contains(body.InnerHTML(), "Gods summary.") || env.Doc.ByID("cc-p1-expand").Text() != "Show full text" {
		t.Fatalf("collapsed body = %q", body.InnerHTML())
	}
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/chunk/lore/c1"); got != 1 {
		t.Fatalf("chunk calls = %d, want 1", got)
	}
}

func TestEntitiesFilterAndSelect(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	selectKB(env, "core")
	env.Action(dom.EventClick, ActionTab, "tab-entities", map[string]string{"tab": "entities"})
	env.Input(EntityFilterID, "gob")

	list := env.Doc.ByID(EntityListID).InnerHTML()
	if !strings.Contains(list, "Goblin") || strings.Contains(list, "Dragon") {
		t.Fatalf("entity list = %q", list)
	}

	env.Action(dom.EventClick, ActionSelectEntity, EntityListID, map[string]string{"entity": "Goblin"})
	if h.SelectedEntity() != "Goblin" {
		t.Fatalf("entity = %q, want Goblin", h.SelectedEntity())
	}
	if env.Doc.ByID("ec-1") == nil || env.Doc.ByID("ec-2") != nil {
		t.Fatalf("entity cards = %q", env.Doc.ByID(EntityCardsID).InnerHTML())
	}
}

func TestAssetsUploadAndDelete(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/core/upload-asset", http.StatusOK, map[string]string{"status": "ok"})
	env.Backend.JSON(http.MethodDelete, "/api/knowledge/core/asset/thumb_map.png", http.StatusOK, map[string]string{"status": "ok"})
	selectKB(env, "core")
	env.Action(dom.EventClick, ActionTab, "tab-assets", map[string]string{"tab": "assets"})

	if !strings.Contains(env.Doc.ByID(AssetGridID).InnerHTML(), `data-thumb="thumb_map.png"`) {
		t.Fatalf("asset grid = %q", env.Doc.ByID(AssetGridID).InnerHTML())
	}

	env.Doc.Dispatch(env.Ctx, dom.Event{Type: dom.EventDrop, Target: DropzoneID, Files: []dom.File{
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("x")},
		{Name: "map.png", ContentType: "image/png", Data: []byte("png")},
	}})
	uploads := env.Backend.Requests(http.MethodPost, "/api/knowledge/core/upload-asset")
	if len(uploads) != 1 || !strings.HasPrefix(uploads[0].ContentType, "multipart/form-data") {
		t.Fatalf("uploads = %+v", uploads)
	}
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/explore/core"); got != 2 {
		t.Fatalf("explore calls after upload = %d, want 2", got)
	}

	env.Action(dom.EventClick, ActionDeleteAsset, AssetGridID, map[string]string{"thumb": "thumb_map.png"})
	env.Confirm(false)
	if got := env.Backend.Count(http.MethodDelete, ""); got != 0 {
		t.Fatalf("deletes after cancel = %d, want 0", got)
	}
	env.Action(dom.EventClick, ActionDeleteAsset, AssetGridID, map[string]string{"thumb": "thumb_map.png"})
	env.Confirm(true)
	if got := env.Backend.Count(http.MethodDelete, "/api/knowledge/core/asset/thumb_map.png"); got != 1 {
		t.Fatalf("deletes = %d, want 1", got)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	selectKB(env, "core")
	env.Doc.Dispatch(env.Ctx, dom.Event{Type: dom.EventDrop, Target: DropzoneID, Files: []dom.File{
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("x")},
	}})
	if got := env.Backend.Count(http.MethodPost, ""); got != 0 {
		t.Fatalf("uploads = %d, want 0", got)
	}
	if !env.StatusIsError() {
		t.Fatalf("status = %q, want an error", env.Status())
	}
}

func TestLightbox(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	env.Action(dom.EventClick, ActionOpenAsset, AssetGridID, map[string]string{"full": "/static/kb/core/map.png"})
	lightbox := env.Doc.ByID(LightboxID)
	if lightbox.Hidden() || env.Doc.ByID(LightboxImageID).Attr("src") != "/static/kb/core/map.png" {
		t.Fatalf("lightbox hidden = %v src = %q", lightbox.Hidden(), env.Doc.ByID(LightboxImageID).Attr("src"))
	}
	env.Click(LightboxImageID)
	if lightbox.Hidden() {
		t.Fatal("image click closed the lightbox")
	}
	env.Click(LightboxCloseID)
	if !lightbox.Hidden() {
		t.Fatal("close button left the lightbox open")
	}
}

func TestMindmapRendersWithPanZoom(t *testing.T) {
	t.Parallel()

	env, _ := newHub(t)
	selectKB(env, "core")
	env.Action(dom.EventClick, ActionTab, "tab-mindmap", map[string]string{"tab": "mindmap"})

	el := env.Doc.ByID(MindmapID)
	if !strings.Contains(el.InnerHTML(), `<pre class="mermaid">`) || !strings.Contains(el.InnerHTML(), "Monsters") {
		t.Fatalf("mindmap = %q", el.InnerHTML())
	}
	if el.Attr("data-panzoom") != "on" {
		t.Fatalf("data-panzoom = %q, want on", el.Attr("data-panzoom"))
	}
}

func TestSearchIsDebounced(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	env.Backend.JSON(http.MethodGet, "/api/search", http.StatusOK, map[string]any{"results": []map[string]any{
		{"chunk_id": 1, "kb": "core", "document": "Goblins lurk.", "score": 0.91},
	}})

	env.Input(SearchID, "gob")
	env.Sched.Advance(200 * time.Millisecond)
	env.Input(SearchID, "gobl")
	env.Sched.Advance(299 * time.Millisecond)
	if got := env.Backend.Count(http.MethodGet, "/api/search"); got != 0 {
		t.Fatalf("searches before delay = %d, want 0", got)
	}
	env.Sched.Advance(time.Millisecond)

	reqs := env.Backend.Requests(http.MethodGet, "/api/search")
	if len(reqs) != 1 || reqs[0].Query != "q=gobl&scope=all" {
		t.Fatalf("searches = %+v", reqs)
	}
	if !h.Searching() || env.Doc.ByID(ResultsID).Hidden() || !env.Doc.ByID(InspectorID).Hidden() {
		t.Fatal("results did not replace the inspector")
	}
	if env.Doc.ByID("sr-core-1") == nil || !strings.Contains(env.Doc.ByID(ResultsID).InnerHTML(), "0.91") {
		t.Fatalf("results = %q", env.Doc.ByID(ResultsID).InnerHTML())
	}

	env.Input(SearchID, "  ")
	if h.Searching() || !env.Doc.ByID(ResultsID).Hidden() || env.Doc.ByID(InspectorID).Hidden() {
		t.Fatal("empty query did not restore the inspector")
	}
	if env.Sched.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0", env.Sched.Pending())
	}
}

func TestDeleteKnowledgeBase(t *testing.T) {
	t.Parallel()

	env, h := newHub(t)
	env.Backend.JSON(http.MethodDelete, "/api/knowledge/core", http.StatusOK, map[string]string{"status": "ok"})
	selectKB(env, "core")

	env.Click(KBDeleteID)
	env.Confirm(false)
	if got := env.Backend.Count(http.MethodDelete, "/api/knowledge/core"); got != 0 {
		t.Fatalf("deletes after cancel = %d", got)
	}

	env.Click(KBDeleteID)
	env.Confirm(true)
	if got := env.Backend.Count(http.MethodDelete, "/api/knowledge/core"); got != 1 {
		t.Fatalf("deletes = %d, want 1", got)
	}
	if h.SelectedKB() != "" || !env.Doc.ByID(KBDeleteID).Disabled() {
		t.Fatalf("selected = %q after delete", h.SelectedKB())
	}
	if got := env.Status(); !strings.Contains(got, "core") || env.StatusIsError() {
		t.Fatalf("status = %q", got)
	}
	if got := env.Backend.Count(http.MethodGet, "/api/knowledge/"); got != 2 {
		t.Fatalf("kb list loads = %d, want 2", got)
	}
}
