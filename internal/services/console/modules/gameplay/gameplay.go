// Package gameplay runs the narrative log and command bar of a game.
package gameplay

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/markdown"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"github.com/rs/zerolog"
)

// DOM ids.
const (
	PanelID  = "knowledge-panel"
	LogID    = "narrative-log"
	InputID  = "command-input"
	SubmitID = "command-submit"
)

// API sends commands to the backend.
type API interface {
	Command(ctx context.Context, req apiclient.CommandRequest) (apiclient.CommandResponse, error)
}

// Translator resolves labels.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Recovered carries the narrative of a resumed campaign.
type Recovered struct {
	NarrativeHTML string
}

// Handler owns #game-view's log and command bar.
type Handler struct {
	doc     *dom.Document
	api     API
	tr      Translator
	md      markdown.Renderer
	logger  zerolog.Logger
	config  apiclient.GameConfig
	running bool
	busy    bool
	bound   bool
	// readyAt is the patch sequence that re-enabled the command bar. Submits
	// sent by a browser that had not applied it yet are stale.
	readyAt uint64
}

// New returns an idle handler. A nil renderer uses goldmark.
func New(doc *dom.Document, api API, tr Translator, md markdown.Renderer, logger zerolog.Logger) *Handler {
	if md == nil {
		md = markdown.New()
	}
	return &Handler{doc: doc, api: api, tr: tr, md: md, logger: logger}
}

// Bind attaches the command bar handlers once.
func (h *Handler) Bind() {
	if h.bound {
		return
	}
	h.bound = true
	h.doc.On(InputID, dom.EventKeyDown, func(ctx context.Context, ev dom.Event) {
		if ev.Key == "Enter" && !ev.Shift {
			h.submitInput(ctx, ev)
		}
	})
	h.doc.On(SubmitID, dom.EventClick, func(ctx context.Context, ev dom.Event) {
		h.submitInput(ctx, ev)
	})
}

// Start opens a game. A recovered narrative is placed in the log before any
// command is sent; otherwise the log starts empty.
func (h *Handler) Start(ctx context.Context, config apiclient.GameConfig, recovered *Recovered) {
	h.Bind()
	h.config = config
	h.running = true
	h.logger.Info().Str("mode", config.Mode).Str("rules", config.Rules).Msg("game started")

	_ = h.doc.ByID(PanelID).Render(ctx, knowledgePanel(h.tr, config))
	log := h.doc.ByID(LogID)
	narrative := ""
	if recovered != nil {
		narrative = recovered.NarrativeHTML
	}
	if err := log.SetHTML(narrative); err != nil {
		h.logger.Warn().Err(err).Msg("recovered narrative rejected")
		_ = log.SetHTML("")
	}
	h.doc.ByID(InputID).SetValue("")
	h.setBusy(false)
	log.ScrollToBottom()
}

// Stop ends the game; later submits are ignored.
func (h *Handler) Stop() {
	h.running = false
	h.config = apiclient.GameConfig{}
}

// Running reports whether a game is open.
func (h *Handler) Running() bool {
	return h.running
}

// Config returns the running game's config.
func (h *Handler) Config() apiclient.GameConfig {
	return h.config
}

func (h *Handler) submitInput(ctx context.Context, ev dom.Event) {
	if h.busy || ev.Seen < h.readyAt {
		h.logger.Debug().Uint64("seen", ev.Seen).Uint64("ready_at", h.readyAt).Msg("stale submit dropped")
		return
	}
	input := h.doc.ByID(InputID)
	command := strings.TrimSpace(input.Value())
	if command == "" {
		return
	}
	input.SetValue("")
	h.Submit(ctx, command)
}

// Submit appends the player line, sends the command and appends the
// rendered reply. The command bar is disabled while the call is in flight.
func (h *Handler) Submit(ctx context.Context, command string) {
	command = strings.TrimSpace(command)
	if !h.running || command == "" {
		return
	}
	log := h.doc.ByID(LogID)
	_ = log.AppendComponent(ctx, playerLine(h.tr, command))
	log.ScrollToBottom()

	h.setBusy(true)
	resp, err := h.api.Command(ctx, apiclient.CommandRequest{Command: command, Config: h.config})
	if err != nil {
		h.logger.Debug().Err(err).Msg("command failed")
	} else {
		_ = log.AppendComponent(ctx, narratorLine(h.md.Render(resp.Response)))
		log.ScrollToBottom()
	}
	h.setBusy(false)
	h.readyAt = h.doc.Flush()
}

func (h *Handler) setBusy(busy bool) {
	h.busy = busy
	h.doc.ByID(InputID).SetDisabled(busy)
	h.doc.ByID(SubmitID).SetDisabled(busy)
}

func knowledgePanel(tr Translator, config apiclient.GameConfig) templ.Component {
	return views.Func(func(w *views.Writer) {
		row := func(labelKey string, value string) {
			if strings.TrimSpace(value) == "" {
				return
			}
			w.Rawf(`<div class="kp-row"><span class="kp-label">%s</span><span class="kp-value">%s</span></div>`,
				views.Esc(tr.T(labelKey, nil)), views.Esc(value))
		}
		w.Rawf(`<h3>%s</h3>`, views.Esc(tr.T("kp_title", nil)))
		row("kp_rules", config.Rules)
		if config.Mode == apiclient.ModeModule {
			row("kp_module", config.Module)
		} else {
			row("kp_setting", config.Setting)
		}
		row("kp_party", config.Party)
		row("kp_model", config.LLMModel)
	})
}

func playerLine(tr Translator, command string) templ.Component {
	return views.Func(func(w *views.Writer) {
		w.Rawf(`<div class="log-entry player"><span class="speaker">%s</span> %s</div>`,
			views.Esc(tr.T("log_player", nil)), views.Esc(command))
	})
}

func narratorLine(rendered string) templ.Component {
	return views.Func(func(w *views.Writer) {
		w.Raw(`<div class="log-entry narrator">`)
		w.Raw(rendered)
		w.Raw(`</div>`)
	})
}
