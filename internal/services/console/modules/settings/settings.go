// Package settings loads, edits and autosaves the settings bag.
package settings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"github.com/rs/zerolog"
)

// DOM ids.
const (
	ModalID    = "settings-modal"
	ContentID  = "settings-content"
	CloseID    = "settings-close"
	ThemeID    = "setting-theme"
	LanguageID = "setting-language"
	OverlayID  = "modal-overlay"

	ModelsTextID      = "models-text"
	ModelsVisionID    = "models-vision"
	ModelsEmbeddingID = "models-embedding"
	KBDatalistID      = "kb-datalist"
)

// Sections and keys of the bag.
const (
	SectionAppearance      = "Appearance"
	SectionGame            = "Game"
	SectionOllamaGame      = "OllamaGame"
	SectionOllamaIngestion = "OllamaIngestion"

	KeyTheme          = "theme"
	KeyLanguage       = "language"
	KeyDefaultRuleset = "default_ruleset"
	KeyDefaultSetting = "default_setting"
	KeyURL            = "url"
	KeyModelsJSON     = "models_json"

	DefaultTheme = "default"
)

// Sections lists every section of the bag.
var Sections = []string{SectionAppearance, SectionGame, SectionOllamaGame, SectionOllamaIngestion}

// AutosaveDelay is the quiet period before a change is saved.
const AutosaveDelay = 500 * time.Millisecond

// API is the backend surface the manager uses.
type API interface {
	GetSettings(ctx context.Context) (apiclient.Settings, error)
	SaveSettings(ctx context.Context, settings apiclient.Settings) error
	ListModels(ctx context.Context) ([]apiclient.Model, error)
	ListKnowledgeBases(ctx context.Context) ([]apiclient.KnowledgeBase, error)
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// Language switches the session language.
type Language interface {
	SetLanguage(lang string) error
}

// Store receives the settings after every load and save.
type Store interface {
	SetSettings(settings apiclient.Settings)
}

// Deps are the manager's collaborators.
type Deps struct {
	Doc      *dom.Document
	API      API
	Status   Status
	Language Language
	Store    Store
	Sched    eventloop.Scheduler
	Logger   zerolog.Logger
}

// Manager owns #settings-modal.
type Manager struct {
	deps     Deps
	current  apiclient.Settings
	autosave *eventloop.Debouncer
}

// New returns an unbound manager.
func New(deps Deps) *Manager {
	m := &Manager{deps: deps, current: Empty()}
	m.autosave = eventloop.NewDebouncer(deps.Sched, AutosaveDelay, func(ctx context.Context) {
		_ = m.Save(ctx)
	})
	return m
}

// Empty returns a bag with every section present.
func Empty() apiclient.Settings {
	out := apiclient.Settings{}
	for _, s := range Sections {
		out[s] = map[string]string{}
	}
	return out
}

// Bind attaches the change and close handlers.
func (m *Manager) Bind() {
	doc := m.deps.Doc
	doc.On(ContentID, dom.EventChange, func(context.Context, dom.Event) {
		m.autosave.Trigger()
	})
	doc.On(CloseID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		m.Close(ctx)
	})
}

// Current returns the last loaded or saved bag.
func (m *Manager) Current() apiclient.Settings {
	return m.current.Clone()
}

// Load fetches the bag, fills the form and publishes it to the store.
func (m *Manager) Load(ctx context.Context) (apiclient.Settings, error) {
	loaded, err := m.deps.API.GetSettings(ctx)
	if err != nil {
		return m.Current(), err
	}
	for _, s := range Sections {
		if loaded[s] == nil {
			loaded[s] = map[string]string{}
		}
	}
	m.current = loaded
	m.Populate(loaded)
	if m.deps.Store != nil {
		m.deps.Store.SetSettings(loaded.Clone())
	}
	return m.Current(), nil
}

// Open shows the modal with fresh values and suggestions.
func (m *Manager) Open(ctx context.Context) {
	m.deps.Doc.ByID(ModalID).Show()
	m.deps.Doc.ByID(OverlayID).Show()
	if _, err := m.Load(ctx); err != nil {
		return
	}
	m.PopulateSuggestions(ctx)
}

// Close saves a pending change right away and hides the modal.
func (m *Manager) Close(ctx context.Context) {
	m.autosave.Flush(ctx)
	m.deps.Doc.ByID(ModalID).Hide()
	m.deps.Doc.ByID(OverlayID).Hide()
}

// StopAutosave abandons a pending save.
func (m *Manager) StopAutosave() bool {
	return m.autosave.Stop()
}

// AutosavePending reports whether a save is scheduled.
func (m *Manager) AutosavePending() bool {
	return m.autosave.Pending()
}

// Save posts the form values and applies their side effects.
func (m *Manager) Save(ctx context.Context) error {
	m.autosave.Stop()
	next := m.Collect()
	if err := m.deps.API.SaveSettings(ctx, next); err != nil {
		return err
	}
	m.current = next
	m.apply(next)
	m.deps.Status.SetText("settings_saved", false, nil)
	return nil
}

// SaveTheme stores a theme picked outside the form.
func (m *Manager) SaveTheme(ctx context.Context, theme string) error {
	m.deps.Doc.ByID(ThemeID).SetValue(theme)
	return m.Save(ctx)
}

func (m *Manager) apply(saved apiclient.Settings) {
	if m.deps.Store != nil {
		m.deps.Store.SetSettings(saved.Clone())
	}
	ApplyTheme(m.deps.Doc, saved.Get(SectionAppearance, KeyTheme))
	if lang := saved.Get(SectionAppearance, KeyLanguage); lang != "" && m.deps.Language != nil {
		if err := m.deps.Language.SetLanguage(lang); err != nil {
			m.deps.Logger.Warn().Err(err).Str("language", lang).Msg("switch language")
		}
	}
}

// field is one form input addressed by section, optional role, and key.
type field struct {
	el      *dom.Element
	section string
	role    string
	key     string
}

func (m *Manager) fields() []field {
	var out []field
	for _, el := range m.deps.Doc.ByID(ContentID).QueryAttr("data-section") {
		key := el.Attr("data-key")
		if key == "" {
			continue
		}
		out = append(out, field{el: el, section: el.Attr("data-section"), role: el.Attr("data-role"), key: key})
	}
	return out
}

// Populate writes bag values into the form.
func (m *Manager) Populate(settings apiclient.Settings) {
	models := map[string]roleModels{}
	for _, f := range m.fields() {
		if f.role == "" {
			f.el.SetValue(settings.Get(f.section, f.key))
			continue
		}
		rm, ok := models[f.section]
		if !ok {
			rm = decodeModels(settings.Get(f.section, KeyModelsJSON))
			models[f.section] = rm
		}
		f.el.SetValue(rm.text(f.role, f.key))
	}
}

// Collect reads the form over the last loaded bag, so keys without inputs
// survive a save.
func (m *Manager) Collect() apiclient.Settings {
	out := m.current.Clone()
	for _, s := range Sections {
		if out[s] == nil {
			out[s] = map[string]string{}
		}
	}
	models := map[string]roleModels{}
	for _, f := range m.fields() {
		if f.role == "" {
			out.Set(f.section, f.key, f.el.Value())
			continue
		}
		rm, ok := models[f.section]
		if !ok {
			rm = decodeModels(out.Get(f.section, KeyModelsJSON))
			models[f.section] = rm
		}
		rm.set(f.role, f.key, f.el.Value())
	}
	for section, rm := range models {
		original := out.Get(section, KeyModelsJSON)
		if rm.encode() == decodeModels(original).encode() {
			continue
		}
		out.Set(section, KeyModelsJSON, rm.encode())
	}
	return out
}

// PopulateSuggestions fills the model and KB datalists.
func (m *Manager) PopulateSuggestions(ctx context.Context) {
	if models, err := m.deps.API.ListModels(ctx); err == nil {
		buckets := map[string][]string{}
		for _, model := range models {
			buckets[datalistFor(model.TypeHint)] = append(buckets[datalistFor(model.TypeHint)], model.Name)
		}
		for _, id := range []string{ModelsTextID, ModelsVisionID, ModelsEmbeddingID} {
			_ = m.deps.Doc.ByID(id).Render(ctx, views.DatalistOptions(buckets[id]))
		}
	}
	if kbs, err := m.deps.API.ListKnowledgeBases(ctx); err == nil {
		names := make([]string, 0, len(kbs))
		for _, kb := range kbs {
			names = append(names, kb.Name)
		}
		_ = m.deps.Doc.ByID(KBDatalistID).Render(ctx, views.DatalistOptions(names))
	}
}

func datalistFor(typeHint string) string {
	switch strings.ToLower(strings.TrimSpace(typeHint)) {
	case "vision":
		return ModelsVisionID
	case "embedding":
		return ModelsEmbeddingID
	default:
		return ModelsTextID
	}
}

// ApplyTheme sets body class theme-<name>; "default" or "" leaves none.
func ApplyTheme(doc *dom.Document, theme string) {
	body := doc.Body()
	if body == nil {
		return
	}
	theme = strings.TrimSpace(theme)
	for _, class := range body.Classes() {
		if strings.HasPrefix(class, "theme-") && class != "theme-"+theme {
			body.RemoveClass(class)
		}
	}
	if theme != "" && theme != DefaultTheme {
		body.AddClass("theme-" + theme)
	}
}

// roleModels is the decoded models_json mapping. Values keep their original
// JSON so numbers and booleans survive a round trip.
type roleModels map[string]map[string]json.RawMessage

func decodeModels(raw string) roleModels {
	out := roleModels{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return roleModels{}
	}
	return out
}

func (r roleModels) text(role string, key string) string {
	value, ok := r[role][key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	return string(value)
}

func (r roleModels) set(role string, key string, value string) {
	_, exists := r[role][key]
	if (exists && r.text(role, key) == value) || (!exists && value == "") {
		return
	}
	if r[role] == nil {
		r[role] = map[string]json.RawMessage{}
	}
	encoded, _ := json.Marshal(value)
	r[role][key] = encoded
}

func (r roleModels) encode() string {
	data, err := json.Marshal(map[string]map[string]json.RawMessage(r))
	if err != nil {
		return "{}"
	}
	return string(data)
}
