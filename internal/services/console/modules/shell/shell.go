// Package shell builds the console components for one session and switches
// between the welcome and game views.
package shell

import (
	"context"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/platform/i18n/catalog"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/campaigns"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/diceroller"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/gameplay"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/importwizard"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library/cache"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/newgame"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/party"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/settings"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/markdown"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/status"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"github.com/rs/zerolog"
)

// DOM ids.
const (
	WelcomeID    = "welcome-view"
	GameID       = "game-view"
	QuickThemeID = "quick-theme"
	ExitGameID   = "btn-exit-game"

	NewGameButtonID  = "btn-new-game"
	LoadGameButtonID = "btn-load-game"
	ImportButtonID   = "btn-import"
	PartyButtonID    = "btn-party"
	SettingsButtonID = "btn-settings"
	LibraryButtonID  = "btn-library"

	ActionAccordion = "accordion"
)

// Deps are the session services the shell hands to components.
type Deps struct {
	Doc      *dom.Document
	API      *apiclient.Client
	I18n     *i18n.Service
	Bar      *status.Bar
	Modal    *status.Modal
	Sched    eventloop.Scheduler
	Cache    *cache.Cache
	Markdown markdown.Renderer
	Seed     diceroller.SeedFunc
	Logger   zerolog.Logger
}

// Shell owns every component of one session.
type Shell struct {
	deps     Deps
	settings apiclient.Settings
	bound    bool

	Settings  *settings.Manager
	Gameplay  *gameplay.Handler
	Dice      *diceroller.Roller
	Import    *importwizard.Wizard
	Party     *party.Hub
	NewGame   *newgame.Wizard
	Campaigns *campaigns.Loader
	Library   *library.Hub
}

// New constructs the components. Nothing touches the document until Boot.
func New(deps Deps) *Shell {
	if deps.Markdown == nil {
		deps.Markdown = markdown.New()
	}
	s := &Shell{deps: deps, settings: settings.Empty()}
	s.Settings = settings.New(settings.Deps{
		Doc:      deps.Doc,
		API:      deps.API,
		Status:   deps.Bar,
		Language: deps.I18n,
		Store:    s,
		Sched:    deps.Sched,
		Logger:   deps.Logger.With().Str("component", "settings").Logger(),
	})
	s.Gameplay = gameplay.New(deps.Doc, deps.API, deps.I18n, deps.Markdown, deps.Logger.With().Str("component", "gameplay").Logger())
	s.Dice = diceroller.New(deps.Doc, s.Gameplay, deps.Bar, deps.Seed)
	s.Import = importwizard.New(importwizard.Deps{
		Doc:    deps.Doc,
		API:    deps.API,
		Status: deps.Bar,
		Tr:     deps.I18n,
		Sched:  deps.Sched,
		Logger: deps.Logger.With().Str("component", "import").Logger(),
	})
	s.Party = party.New(party.Deps{
		Doc:     deps.Doc,
		API:     deps.API,
		Status:  deps.Bar,
		Confirm: deps.Modal,
		Tr:      deps.I18n,
		Logger:  deps.Logger.With().Str("component", "party").Logger(),
	})
	s.NewGame = newgame.New(newgame.Deps{
		Doc:      deps.Doc,
		API:      deps.API,
		Status:   deps.Bar,
		Tr:       deps.I18n,
		Starter:  s,
		Settings: s,
	})
	s.Campaigns = campaigns.New(campaigns.Deps{
		Doc:      deps.Doc,
		API:      deps.API,
		Tr:       deps.I18n,
		Starter:  s,
		Markdown: deps.Markdown,
	})
	s.Library = library.New(library.Deps{
		Doc:      deps.Doc,
		API:      deps.API,
		Status:   deps.Bar,
		Confirm:  deps.Modal,
		Tr:       deps.I18n,
		Sched:    deps.Sched,
		Cache:    deps.Cache,
		Markdown: deps.Markdown,
		Logger:   deps.Logger.With().Str("component", "library").Logger(),
	})
	return s
}

// CurrentSettings returns a copy of the last loaded or saved settings.
func (s *Shell) CurrentSettings() apiclient.Settings {
	return s.settings.Clone()
}

// SetSettings records the settings published by the settings manager.
func (s *Shell) SetSettings(bag apiclient.Settings) {
	s.settings = bag
}

// Boot loads settings, applies theme and language, and binds every
// component. A failed settings load leaves the defaults in place.
func (s *Shell) Boot(ctx context.Context) {
	loaded, err := s.Settings.Load(ctx)
	if err != nil {
		s.deps.Logger.Warn().Err(err).Msg("load settings")
	}
	s.settings = loaded
	settings.ApplyTheme(s.deps.Doc, loaded.Get(settings.SectionAppearance, settings.KeyTheme))

	lang := loaded.Get(settings.SectionAppearance, settings.KeyLanguage)
	if err := s.deps.I18n.Init(lang); err != nil {
		s.deps.Logger.Warn().Err(err).Str("language", lang).Msg("init language")
		if err := s.deps.I18n.Init(catalog.BaseLocale); err != nil {
			s.deps.Logger.Error().Err(err).Msg("init base language")
		}
	}
	s.deps.I18n.TranslatePage()
	_ = s.deps.Doc.ByID(QuickThemeID).Render(ctx, quickThemeOptions(s.deps.Doc, s.deps.I18n))
	s.bind()
}

func (s *Shell) bind() {
	if s.bound {
		return
	}
	s.bound = true
	s.deps.Modal.Init()
	s.Settings.Bind()
	s.Gameplay.Bind()
	s.Dice.Bind()
	s.Import.Bind()
	s.Party.Bind()
	s.NewGame.Bind()
	s.Campaigns.Bind()
	s.Library.Bind()

	doc := s.deps.Doc
	doc.On(NewGameButtonID, dom.EventClick, func(ctx context.Context, _ dom.Event) { s.NewGame.Open(ctx) })
	doc.On(LoadGameButtonID, dom.EventClick, func(ctx context.Context, _ dom.Event) { s.Campaigns.Open(ctx) })
	doc.On(ImportButtonID, dom.EventClick, func(context.Context, dom.Event) { s.Import.Open() })
	doc.On(PartyButtonID, dom.EventClick, func(ctx context.Context, _ dom.Event) { s.Party.Open(ctx) })
	doc.On(SettingsButtonID, dom.EventClick, func(ctx context.Context, _ dom.Event) { s.Settings.Open(ctx) })
	doc.On(LibraryButtonID, dom.EventClick, func(ctx context.Context, _ dom.Event) { s.Library.Open(ctx) })
	doc.On(ExitGameID, dom.EventClick, func(context.Context, dom.Event) { s.ExitGame() })
	doc.On(QuickThemeID, dom.EventChange, func(ctx context.Context, _ dom.Event) {
		s.QuickTheme(ctx, doc.ByID(QuickThemeID).Value())
	})
	doc.OnAction(ActionAccordion, dom.EventClick, func(_ context.Context, ev dom.Event) {
		ToggleAccordion(doc, ev.Datum("target"))
	})
}

// StartGame swaps the welcome view for the game view and starts gameplay.
func (s *Shell) StartGame(ctx context.Context, config apiclient.GameConfig, recovered *gameplay.Recovered) {
	s.deps.Doc.ByID(WelcomeID).Hide()
	s.deps.Doc.ByID(GameID).Show()
	s.Dice.Clear()
	s.Gameplay.Start(ctx, config, recovered)
	s.deps.Logger.Info().Str("mode", config.Mode).Str("rules", config.Rules).Msg("game started")
}

// ExitGame stops gameplay and returns to the welcome view.
func (s *Shell) ExitGame() {
	s.Gameplay.Stop()
	s.Dice.Clear()
	s.deps.Doc.ByID(GameID).Hide()
	s.deps.Doc.ByID(WelcomeID).Show()
}

// QuickTheme applies theme and saves it. The placeholder does nothing.
func (s *Shell) QuickTheme(ctx context.Context, theme string) {
	if theme == "" {
		return
	}
	settings.ApplyTheme(s.deps.Doc, theme)
	_ = s.Settings.SaveTheme(ctx, theme)
}

// ToggleAccordion shows or hides the panel with id.
func ToggleAccordion(doc *dom.Document, id string) {
	panel := doc.ByID(id)
	if panel == nil {
		return
	}
	panel.SetVisible(panel.Hidden())
}

// quickThemeOptions copies the settings theme options behind a placeholder,
// keeping their translation keys.
func quickThemeOptions(doc *dom.Document, tr i18n.Translator) templ.Component {
	source := doc.ByID(settings.ThemeID).Children()
	return views.Func(func(w *views.Writer) {
		w.Rawf(`<option value="" data-i18n="quick_theme_placeholder" selected>%s</option>`, views.Esc(tr.T("quick_theme_placeholder", nil)))
		for _, o := range source {
			label := o.Text()
			if key := o.Attr(i18n.KeyAttr); key != "" {
				w.Rawf(`<option value="%s" data-i18n="%s">%s</option>`, views.Esc(o.Attr("value")), views.Esc(key), views.Esc(tr.T(key, nil)))
				continue
			}
			w.Rawf(`<option value="%s">%s</option>`, views.Esc(o.Attr("value")), views.Esc(label))
		}
	})
}
