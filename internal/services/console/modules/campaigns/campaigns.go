// Package campaigns lists saved campaigns and resumes one.
package campaigns

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/gameplay"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/markdown"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
)

// DOM ids and actions.
const (
	ModalID    = "load-modal"
	OverlayID  = "modal-overlay"
	CloseID    = "load-close"
	ListID     = "campaign-list"
	RecapID    = "campaign-recap"
	ContinueID = "load-continue"

	ActionSelect = "select-campaign"
)

// API is the backend surface of the loader.
type API interface {
	ListCampaigns(ctx context.Context) ([]apiclient.Campaign, error)
	LatestSession(ctx context.Context, campaignID string) (apiclient.Session, error)
	CampaignState(ctx context.Context, campaignID string) (apiclient.CampaignState, error)
}

// Translator resolves labels.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Starter opens the game view.
type Starter interface {
	StartGame(ctx context.Context, config apiclient.GameConfig, recovered *gameplay.Recovered)
}

// Deps are the loader's collaborators.
type Deps struct {
	Doc      *dom.Document
	API      API
	Tr       Translator
	Starter  Starter
	Markdown markdown.Renderer
}

// Loader owns #load-modal.
type Loader struct {
	deps      Deps
	campaigns []apiclient.Campaign
	selected  string
}

// New returns a closed loader. A nil renderer uses goldmark.
func New(deps Deps) *Loader {
	if deps.Markdown == nil {
		deps.Markdown = markdown.New()
	}
	return &Loader{deps: deps}
}

// Bind attaches the loader handlers.
func (l *Loader) Bind() {
	doc := l.deps.Doc
	doc.On(CloseID, dom.EventClick, func(context.Context, dom.Event) { l.Close() })
	doc.OnAction(ActionSelect, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		l.Select(ctx, ev.Datum("campaign"))
	})
	doc.On(ContinueID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		_ = l.Continue(ctx)
	})
}

// Open lists campaigns newest first.
func (l *Loader) Open(ctx context.Context) {
	l.selected = ""
	doc := l.deps.Doc
	doc.ByID(RecapID).SetHTML("")
	doc.ByID(ContinueID).SetDisabled(true)
	doc.ByID(ModalID).Show()
	doc.ByID(OverlayID).Show()

	campaigns, err := l.deps.API.ListCampaigns(ctx)
	if err != nil {
		return
	}
	SortNewestFirst(campaigns)
	l.campaigns = campaigns
	_ = doc.ByID(ListID).Render(ctx, campaignList(l.deps.Tr, campaigns))
}

// Close hides the loader.
func (l *Loader) Close() {
	l.deps.Doc.ByID(ModalID).Hide()
	l.deps.Doc.ByID(OverlayID).Hide()
}

// Selected returns the campaign on screen.
func (l *Loader) Selected() string {
	return l.selected
}

// SortNewestFirst orders campaigns by updated_at, descending. Timestamps
// that do not parse sort last, in their original order.
func SortNewestFirst(campaigns []apiclient.Campaign) {
	sort.SliceStable(campaigns, func(i, j int) bool {
		ti, okI := parseTime(campaigns[i].UpdatedAt)
		tj, okJ := parseTime(campaigns[j].UpdatedAt)
		switch {
		case okI && okJ:
			return ti.After(tj)
		default:
			return okI && !okJ
		}
	})
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Select shows the latest session recap of campaign id. A campaign without
// sessions can still be continued.
func (l *Loader) Select(ctx context.Context, id string) {
	if id == "" {
		return
	}
	l.selected = id
	doc := l.deps.Doc
	for _, li := range doc.ByID(ListID).QueryAttr("data-campaign") {
		li.ToggleClass("active", li.Attr("data-campaign") == id)
	}
	doc.ByID(ContinueID).SetDisabled(false)

	recap := doc.ByID(RecapID)
	session, err := l.deps.API.LatestSession(ctx, id)
	switch {
	case errors.Is(err, apiclient.ErrAbsent):
		_ = recap.Render(ctx, views.Empty(l.deps.Tr.T("load_no_sessions", nil)))
	case err != nil:
		_ = recap.SetHTML("")
	default:
		_ = recap.Render(ctx, sessionRecap(l.deps.Tr, session, l.deps.Markdown.Render(session.JournalRecap)))
	}
}

// Continue fetches the selected campaign's state and resumes it.
func (l *Loader) Continue(ctx context.Context) error {
	if l.selected == "" {
		return nil
	}
	state, err := l.deps.API.CampaignState(ctx, l.selected)
	if err != nil {
		return err
	}
	l.Close()
	l.deps.Starter.StartGame(ctx, state.GameConfig, &gameplay.Recovered{NarrativeHTML: state.NarrativeLog})
	return nil
}

func campaignList(tr Translator, campaigns []apiclient.Campaign) templ.Component {
	if len(campaigns) == 0 {
		return views.Empty(tr.T("load_none", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, c := range campaigns {
			w.Rawf(`<li class="item" data-action="%s"%s><span class="item-name">%s</span>`,
				ActionSelect, views.DataAttr("campaign", string(c.ID)), views.Esc(c.Name))
			if c.Description != "" {
				w.Rawf(`<span class="muted">%s</span>`, views.Esc(c.Description))
			}
			w.Rawf(`<time class="muted">%s</time></li>`, views.Esc(c.UpdatedAt))
		}
	})
}

func sessionRecap(tr Translator, s apiclient.Session, rendered string) templ.Component {
	return views.Func(func(w *views.Writer) {
		w.Rawf(`<h4>%s</h4>`, views.Esc(tr.T("load_session", map[string]string{"number": strconv.Itoa(s.SessionNumber)})))
		w.Rawf(`<div class="recap-body">%s</div>`, rendered)
	})
}
