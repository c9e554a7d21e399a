// Package newgame composes a game config from knowledge bases and a party.
package newgame

import (
	"context"
	"strings"

	"github.com/louisbranch/gmconsole/internal/services/console/modules/gameplay"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/settings"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
)

// DOM ids.
const (
	ModalID       = "new-game-modal"
	OverlayID     = "modal-overlay"
	CloseID       = "new-game-close"
	RulesID       = "ng-rules"
	ModuleID      = "ng-module"
	SettingID     = "ng-setting"
	PartyID       = "ng-party"
	ModelID       = "ng-model"
	LanguageID    = "ng-language"
	ModeModuleID  = "ng-mode-module"
	ModeFreeID    = "ng-mode-freestyle"
	ModulePaneID  = "ng-module-pane"
	SettingPaneID = "ng-setting-pane"
	StartID       = "ng-start"
)

// API is the backend surface of the wizard.
type API interface {
	ListKnowledgeBases(ctx context.Context) ([]apiclient.KnowledgeBase, error)
	ListParties(ctx context.Context) ([]apiclient.Party, error)
	ListModels(ctx context.Context) ([]apiclient.Model, error)
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// Translator resolves placeholders.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Starter opens the game view.
type Starter interface {
	StartGame(ctx context.Context, config apiclient.GameConfig, recovered *gameplay.Recovered)
}

// SettingsSource returns the shared settings bag.
type SettingsSource interface {
	CurrentSettings() apiclient.Settings
}

// Deps are the wizard's collaborators.
type Deps struct {
	Doc      *dom.Document
	API      API
	Status   Status
	Tr       Translator
	Starter  Starter
	Settings SettingsSource
}

// Wizard owns #new-game-modal.
type Wizard struct {
	deps Deps
}

// New returns a closed wizard.
func New(deps Deps) *Wizard {
	return &Wizard{deps: deps}
}

// Bind attaches the wizard handlers.
func (w *Wizard) Bind() {
	doc := w.deps.Doc
	doc.On(CloseID, dom.EventClick, func(context.Context, dom.Event) { w.Close() })
	doc.On(ModeModuleID, dom.EventChange, func(context.Context, dom.Event) { w.syncMode() })
	doc.On(ModeFreeID, dom.EventChange, func(context.Context, dom.Event) { w.syncMode() })
	doc.On(StartID, dom.EventClick, func(ctx context.Context, _ dom.Event) { w.Start(ctx) })
}

// Open fills the selectors and shows the wizard.
func (w *Wizard) Open(ctx context.Context) {
	doc := w.deps.Doc
	doc.ByID(ModalID).Show()
	doc.ByID(OverlayID).Show()
	w.syncMode()

	var defaults apiclient.Settings
	if w.deps.Settings != nil {
		defaults = w.deps.Settings.CurrentSettings()
	}
	if kbs, err := w.deps.API.ListKnowledgeBases(ctx); err == nil {
		buckets := Bucket(kbs)
		w.fill(ctx, RulesID, buckets[apiclient.KBRules], defaults.Get(settings.SectionGame, settings.KeyDefaultRuleset))
		w.fill(ctx, ModuleID, buckets[apiclient.KBModule], "")
		w.fill(ctx, SettingID, buckets[apiclient.KBSetting], defaults.Get(settings.SectionGame, settings.KeyDefaultSetting))
	}
	if parties, err := w.deps.API.ListParties(ctx); err == nil {
		opts := make([]views.Option, 0, len(parties))
		for _, p := range parties {
			opts = append(opts, views.Option{Value: string(p.ID), Label: p.Name})
		}
		_ = doc.ByID(PartyID).Render(ctx, views.Options(opts, w.deps.Tr.T("ng_select_placeholder", nil)))
	}
	if models, err := w.deps.API.ListModels(ctx); err == nil {
		var opts []views.Option
		for _, m := range models {
			if m.TypeHint == "" || m.TypeHint == "text" {
				opts = append(opts, views.Option{Value: m.Name})
			}
		}
		_ = doc.ByID(ModelID).Render(ctx, views.Options(opts, w.deps.Tr.T("ng_model_default", nil)))
	}
}

// Close hides the wizard.
func (w *Wizard) Close() {
	w.deps.Doc.ByID(ModalID).Hide()
	w.deps.Doc.ByID(OverlayID).Hide()
}

// Bucket groups knowledge base names by metadata.kb_type.
func Bucket(kbs []apiclient.KnowledgeBase) map[string][]string {
	out := map[string][]string{}
	for _, kb := range kbs {
		kind := kb.Metadata.KBType
		if kind != apiclient.KBRules && kind != apiclient.KBModule && kind != apiclient.KBSetting {
			continue
		}
		out[kind] = append(out[kind], kb.Name)
	}
	return out
}

func (w *Wizard) fill(ctx context.Context, id string, names []string, preferred string) {
	opts := make([]views.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, views.Option{Value: name, Selected: name == preferred})
	}
	_ = w.deps.Doc.ByID(id).Render(ctx, views.Options(opts, w.deps.Tr.T("ng_select_placeholder", nil)))
}

// Mode returns the checked mode.
func (w *Wizard) Mode() string {
	if w.deps.Doc.ByID(ModeFreeID).Checked() {
		return apiclient.ModeFreestyle
	}
	return apiclient.ModeModule
}

func (w *Wizard) syncMode() {
	module := w.Mode() == apiclient.ModeModule
	w.deps.Doc.ByID(ModulePaneID).SetVisible(module)
	w.deps.Doc.ByID(SettingPaneID).SetVisible(!module)
}

// Config reads the form.
func (w *Wizard) Config() apiclient.GameConfig {
	doc := w.deps.Doc
	config := apiclient.GameConfig{
		Mode:     w.Mode(),
		Rules:    strings.TrimSpace(doc.ByID(RulesID).Value()),
		Party:    strings.TrimSpace(doc.ByID(PartyID).Value()),
		LLMModel: strings.TrimSpace(doc.ByID(ModelID).Value()),
		Language: strings.TrimSpace(doc.ByID(LanguageID).Value()),
	}
	if config.Mode == apiclient.ModeModule {
		config.Module = strings.TrimSpace(doc.ByID(ModuleID).Value())
	} else {
		config.Setting = strings.TrimSpace(doc.ByID(SettingID).Value())
	}
	return config
}

// Start validates the form and opens the game.
func (w *Wizard) Start(ctx context.Context) bool {
	config := w.Config()
	if !config.Valid() {
		key := "ng_missing_source"
		switch {
		case config.Rules == "":
			key = "ng_missing_rules"
		case config.Party == "":
			key = "ng_missing_party"
		}
		w.deps.Status.SetText(key, true, nil)
		return false
	}
	w.Close()
	w.deps.Starter.StartGame(ctx, config, nil)
	return true
}
