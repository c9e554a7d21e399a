package library

import "fmt"

// Tab is one inspector view.
type Tab int

const (
	TabDashboard Tab = iota
	TabContent
	TabEntities
	TabAssets
	TabMindmap
)

var tabNames = [...]string{"dashboard", "content", "entities", "assets", "mindmap"}

// Tabs lists every tab in display order.
var Tabs = []Tab{TabDashboard, TabContent, TabEntities, TabAssets, TabMindmap}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return fmt.Sprintf("Tab(%d)", int(t))
	}
	return tabNames[t]
}

// ParseTab resolves a tab name.
func ParseTab(name string) (Tab, bool) {
	for i, n := range tabNames {
		if n == name {
			return Tab(i), true
		}
	}
	return TabDashboard, false
}

func (t Tab) buttonID() string { return "tab-" + t.String() }
func (t Tab) paneID() string   { return "pane-" + t.String() }

// ContentMode is the layout of the content view.
type ContentMode int

const (
	ModeList ContentMode = iota
	ModeFlow
)

// FilterKind says what a Filter matches on.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterTag
	FilterSection
)

// Filter narrows the content view.
type Filter struct {
	Kind  FilterKind
	Value string
}

// Active reports whether the filter hides anything.
func (f Filter) Active() bool {
	return f.Kind != FilterNone
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c Card) bool {
	switch f.Kind {
	case FilterTag:
		return c.HasTag(f.Value)
	case FilterSection:
		return c.SectionTitle == f.Value
	default:
		return true
	}
}

// ScopeAll searches every knowledge base.
const ScopeAll = "all"

// Actions.
const (
	ActionSelectKB      = "select-kb"
	ActionTab           = "library-tab"
	ActionTagFilter     = "tag-filter"
	ActionSectionFilter = "section-filter"
	ActionExpand        = "expand-chunk"
	ActionTooltip       = "tooltip"
	ActionSelectEntity  = "select-entity"
	ActionOpenAsset     = "open-asset"
	ActionDeleteAsset   = "delete-asset"
)

// Tooltip kinds.
const (
	TooltipLinks = "links"
	TooltipStats = "stats"
)

// DOM ids.
const (
	ModalID         = "library-modal"
	OverlayID       = "modal-overlay"
	CloseID         = "library-close"
	SearchID        = "library-search"
	ScopeID         = "library-search-scope"
	KBListID        = "kb-list"
	KBDeleteID      = "kb-delete"
	InspectorID     = "library-inspector"
	ResultsID       = "library-search-results"
	BannerID        = "filter-banner"
	BannerTextID    = "filter-banner-text"
	FilterClearID   = "filter-clear"
	ChunkCountID    = "dash-chunk-count"
	EntityChartID   = "dash-entity-chart"
	WordCloudID     = "dash-word-cloud"
	ModeListID      = "content-mode-list"
	ModeFlowID      = "content-mode-flow"
	ContentCardsID  = "content-cards"
	EntityFilterID  = "entity-filter"
	EntityListID    = "entity-list"
	EntityCardsID   = "entity-cards"
	DropzoneID      = "asset-dropzone"
	AssetGridID     = "asset-grid"
	MindmapID       = "mindmap-container"
	LightboxID      = "lightbox"
	LightboxImageID = "lightbox-image"
	LightboxCloseID = "lightbox-close"
	TooltipID       = "tooltip"
)
