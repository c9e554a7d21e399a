// Package party manages parties and their characters.
package party

import (
	"context"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/status"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"github.com/rs/zerolog"
)

// DOM ids and actions.
const (
	ModalID      = "party-modal"
	OverlayID    = "modal-overlay"
	CloseID      = "party-close"
	ListID       = "party-list"
	NameInputID  = "party-name-input"
	CreateID     = "party-create"
	DetailID     = "party-detail"
	DetailNameID = "party-detail-name"

	CharacterListID = "character-list"
	CharNameID      = "char-name"
	CharClassID     = "char-class"
	CharLevelID     = "char-level"
	CharCreateID    = "char-create"
	AIDescriptionID = "char-ai-description"
	AIRulesID       = "char-ai-rules"
	AIGenerateID    = "char-ai-generate"

	ActionSelectParty     = "select-party"
	ActionDeleteParty     = "delete-party"
	ActionDeleteCharacter = "delete-character"
)

// API is the backend surface of the party hub.
type API interface {
	ListParties(ctx context.Context) ([]apiclient.Party, error)
	CreateParty(ctx context.Context, name string) (apiclient.Party, error)
	DeleteParty(ctx context.Context, id string) error
	ListCharacters(ctx context.Context, partyID string) ([]apiclient.Character, error)
	CreateCharacter(ctx context.Context, partyID string, character apiclient.Character) (apiclient.Character, error)
	DeleteCharacter(ctx context.Context, id string) error
	GenerateCharacter(ctx context.Context, req apiclient.GenerateCharacterRequest) (apiclient.Character, error)
	ListKnowledgeBases(ctx context.Context) ([]apiclient.KnowledgeBase, error)
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// Confirmer asks the user for a yes or no.
type Confirmer interface {
	Confirm(titleKey string, messageKey string, replacements map[string]string) (*status.Deferred, error)
}

// Translator resolves labels.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Deps are the hub's collaborators.
type Deps struct {
	Doc     *dom.Document
	API     API
	Status  Status
	Confirm Confirmer
	Tr      Translator
	Logger  zerolog.Logger
}

// Hub owns #party-modal.
type Hub struct {
	deps       Deps
	parties    []apiclient.Party
	characters []apiclient.Character
	selected   string
	generating bool
}

// New returns a closed hub.
func New(deps Deps) *Hub {
	return &Hub{deps: deps}
}

// Bind attaches the hub handlers.
func (h *Hub) Bind() {
	doc := h.deps.Doc
	doc.On(CloseID, dom.EventClick, func(context.Context, dom.Event) { h.Close() })
	doc.On(CreateID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		_ = h.CreateParty(ctx, doc.ByID(NameInputID).Value())
	})
	doc.On(NameInputID, dom.EventKeyDown, func(ctx context.Context, ev dom.Event) {
		if ev.Key == "Enter" {
			_ = h.CreateParty(ctx, doc.ByID(NameInputID).Value())
		}
	})
	doc.OnAction(ActionSelectParty, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.SelectParty(ctx, ev.Datum("party"))
	})
	doc.OnAction(ActionDeleteParty, dom.EventClick, func(_ context.Context, ev dom.Event) {
		h.DeleteParty(ev.Datum("party"), ev.Datum("name"))
	})
	doc.OnAction(ActionDeleteCharacter, dom.EventClick, func(_ context.Context, ev dom.Event) {
		h.DeleteCharacter(ev.Datum("character"), ev.Datum("name"))
	})
	doc.On(CharCreateID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		_ = h.CreateCharacter(ctx)
	})
	doc.On(AIGenerateID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		_ = h.GenerateCharacter(ctx)
	})
}

// Open shows the hub with a fresh party list.
func (h *Hub) Open(ctx context.Context) {
	h.selected = ""
	h.characters = nil
	doc := h.deps.Doc
	doc.ByID(DetailID).Hide()
	doc.ByID(NameInputID).SetValue("")
	doc.ByID(ModalID).Show()
	doc.ByID(OverlayID).Show()
	_ = h.Reload(ctx)
	h.loadRules(ctx)
}

// Close hides the hub.
func (h *Hub) Close() {
	h.deps.Doc.ByID(ModalID).Hide()
	h.deps.Doc.ByID(OverlayID).Hide()
}

// Selected returns the id of the party on screen.
func (h *Hub) Selected() string {
	return h.selected
}

// Parties returns the last listed parties.
func (h *Hub) Parties() []apiclient.Party {
	return append([]apiclient.Party(nil), h.parties...)
}

// Characters returns the selected party's characters.
func (h *Hub) Characters() []apiclient.Character {
	return append([]apiclient.Character(nil), h.characters...)
}

// Reload lists parties.
func (h *Hub) Reload(ctx context.Context) error {
	parties, err := h.deps.API.ListParties(ctx)
	if err != nil {
		return err
	}
	h.parties = parties
	return h.deps.Doc.ByID(ListID).Render(ctx, partyList(h.deps.Tr, parties, h.selected))
}

func (h *Hub) loadRules(ctx context.Context) {
	kbs, err := h.deps.API.ListKnowledgeBases(ctx)
	if err != nil {
		return
	}
	var opts []views.Option
	for _, kb := range kbs {
		if kb.Metadata.KBType == apiclient.KBRules {
			opts = append(opts, views.Option{Value: kb.Name})
		}
	}
	_ = h.deps.Doc.ByID(AIRulesID).Render(ctx, views.Options(opts, h.deps.Tr.T("char_ai_rules_placeholder", nil)))
}

// CreateParty adds a party named name.
func (h *Hub) CreateParty(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		h.deps.Status.SetText("party_name_required", true, nil)
		return nil
	}
	party, err := h.deps.API.CreateParty(ctx, name)
	if err != nil {
		return err
	}
	h.deps.Doc.ByID(NameInputID).SetValue("")
	h.deps.Status.SetText("party_created", false, map[string]string{"name": name})
	h.deps.Logger.Info().Str("party", string(party.ID)).Msg("party created")
	return h.Reload(ctx)
}

// DeleteParty asks for confirmation and then deletes the party.
func (h *Hub) DeleteParty(id string, name string) {
	if id == "" {
		return
	}
	answer, err := h.deps.Confirm.Confirm("confirm_delete_title", "confirm_delete_party", map[string]string{"name": name})
	if err != nil {
		return
	}
	answer.Then(func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := h.deps.API.DeleteParty(ctx, id); err != nil {
			return
		}
		if h.selected == id {
			h.selected = ""
			h.characters = nil
			h.deps.Doc.ByID(DetailID).Hide()
		}
		h.deps.Status.SetText("party_deleted", false, map[string]string{"name": name})
		_ = h.Reload(ctx)
	})
}

// SelectParty shows the characters of party id.
func (h *Hub) SelectParty(ctx context.Context, id string) {
	if id == "" {
		return
	}
	h.selected = id
	name := id
	for _, p := range h.parties {
		if string(p.ID) == id {
			name = p.Name
		}
	}
	doc := h.deps.Doc
	doc.ByID(DetailNameID).SetText(name)
	doc.ByID(DetailID).Show()
	for _, li := range doc.ByID(ListID).QueryAttr("data-party") {
		if li.Attr("data-action") == ActionSelectParty {
			li.ToggleClass("active", li.Attr("data-party") == id)
		}
	}
	_ = h.reloadCharacters(ctx)
}

func (h *Hub) reloadCharacters(ctx context.Context) error {
	characters, err := h.deps.API.ListCharacters(ctx, h.selected)
	if err != nil {
		return err
	}
	h.characters = characters
	return h.deps.Doc.ByID(CharacterListID).Render(ctx, characterList(h.deps.Tr, characters))
}

// CreateCharacter saves the manual character form to the selected party.
func (h *Hub) CreateCharacter(ctx context.Context) error {
	if h.selected == "" {
		return nil
	}
	doc := h.deps.Doc
	character := apiclient.Character{
		Name:  strings.TrimSpace(doc.ByID(CharNameID).Value()),
		Class: strings.TrimSpace(doc.ByID(CharClassID).Value()),
		Level: apiclient.Int(1),
	}
	if level, err := strconv.Atoi(strings.TrimSpace(doc.ByID(CharLevelID).Value())); err == nil && level > 0 {
		character.Level = apiclient.Int(level)
	}
	if character.Name == "" {
		h.deps.Status.SetText("character_name_required", true, nil)
		return nil
	}
	if _, err := h.deps.API.CreateCharacter(ctx, h.selected, character); err != nil {
		return err
	}
	doc.ByID(CharNameID).SetValue("")
	doc.ByID(CharClassID).SetValue("")
	doc.ByID(CharLevelID).SetValue("1")
	h.deps.Status.SetText("character_created", false, map[string]string{"name": character.Name})
	return h.reloadCharacters(ctx)
}

// GenerateCharacter drafts a character from a description and saves it to
// the selected party. The button shows a busy label until the call ends.
func (h *Hub) GenerateCharacter(ctx context.Context) error {
	if h.selected == "" || h.generating {
		return nil
	}
	doc := h.deps.Doc
	req := apiclient.GenerateCharacterRequest{
		Description: strings.TrimSpace(doc.ByID(AIDescriptionID).Value()),
		RulesKB:     doc.ByID(AIRulesID).Value(),
	}
	if req.Description == "" || req.RulesKB == "" {
		h.deps.Status.SetText("character_ai_required", true, nil)
		return nil
	}

	button := doc.ByID(AIGenerateID)
	h.generating = true
	button.SetDisabled(true)
	h.label(button, "char_ai_generating")
	defer func() {
		h.generating = false
		button.SetDisabled(false)
		h.label(button, "char_ai_generate")
	}()

	drafted, err := h.deps.API.GenerateCharacter(ctx, req)
	if err != nil {
		return err
	}
	drafted.ID = ""
	saved, err := h.deps.API.CreateCharacter(ctx, h.selected, drafted)
	if err != nil {
		return err
	}
	if saved.Name == "" {
		saved.Name = drafted.Name
	}
	doc.ByID(AIDescriptionID).SetValue("")
	h.deps.Status.SetText("character_created", false, map[string]string{"name": saved.Name})
	return h.reloadCharacters(ctx)
}

// Generating reports whether an AI draft is in flight.
func (h *Hub) Generating() bool {
	return h.generating
}

// DeleteCharacter asks for confirmation and then deletes the character.
func (h *Hub) DeleteCharacter(id string, name string) {
	if id == "" {
		return
	}
	answer, err := h.deps.Confirm.Confirm("confirm_delete_title", "confirm_delete_character", map[string]string{"name": name})
	if err != nil {
		return
	}
	answer.Then(func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := h.deps.API.DeleteCharacter(ctx, id); err != nil {
			return
		}
		_ = h.reloadCharacters(ctx)
	})
}

func (h *Hub) label(el *dom.Element, key string) {
	el.SetAttr(i18n.KeyAttr, key)
	el.SetText(h.deps.Tr.T(key, nil))
}

func partyList(tr Translator, parties []apiclient.Party, selected string) templ.Component {
	if len(parties) == 0 {
		return views.Empty(tr.T("party_none", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, p := range parties {
			id := string(p.ID)
			class := "item"
			if id == selected {
				class += " active"
			}
			w.Rawf(`<li class="%s" data-action="%s"%s><span class="item-name">%s</span>`,
				class, ActionSelectParty, views.DataAttr("party", id, "name", p.Name), views.Esc(p.Name))
			w.Rawf(`<button class="item-delete" data-action="%s"%s title="%s">&times;</button></li>`,
				ActionDeleteParty, views.DataAttr("party", id, "name", p.Name), views.Esc(tr.T("delete", nil)))
		}
	})
}

func characterList(tr Translator, characters []apiclient.Character) templ.Component {
	if len(characters) == 0 {
		return views.Empty(tr.T("character_none", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, c := range characters {
			level := ""
			if c.Level.Valid {
				level = tr.T("character_level", map[string]string{"level": strconv.Itoa(c.Level.Value)})
			}
			w.Rawf(`<li class="item character"><span class="item-name">%s</span> <span class="muted">%s %s</span>`,
				views.Esc(c.Name), views.Esc(c.Class), views.Esc(level))
			if c.Description != "" {
				w.Rawf(`<p class="character-description">%s</p>`, views.Esc(c.Description))
			}
			w.Rawf(`<button class="item-delete" data-action="%s"%s title="%s">&times;</button></li>`,
				ActionDeleteCharacter, views.DataAttr("character", string(c.ID), "name", c.Name), views.Esc(tr.T("delete", nil)))
		}
	})
}
