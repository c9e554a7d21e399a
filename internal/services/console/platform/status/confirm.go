package status

import (
	"context"
	"errors"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
)

// ErrConfirmPending is returned when a confirmation is already open.
var ErrConfirmPending = errors.New("confirmation already pending")

// Modal is the session confirmation dialog.
type Modal struct {
	doc     *dom.Document
	tr      i18n.Translator
	pending *Deferred
	bound   bool
}

// NewModal returns an unbound modal; call Init once the document is ready.
func NewModal(doc *dom.Document, tr i18n.Translator) *Modal {
	return &Modal{doc: doc, tr: tr}
}

// Init binds the confirm and cancel buttons. Repeated calls are ignored.
func (m *Modal) Init() {
	if m.bound {
		return
	}
	m.bound = true
	m.doc.On(ConfirmOKID, dom.EventClick, func(ctx context.Context, _ dom.Event) { m.settle(ctx, true) })
	m.doc.On(ConfirmNoID, dom.EventClick, func(ctx context.Context, _ dom.Event) { m.settle(ctx, false) })
}

// Confirm opens the modal with translated title and message.
func (m *Modal) Confirm(titleKey string, messageKey string, replacements map[string]string) (*Deferred, error) {
	if m.pending != nil {
		return nil, ErrConfirmPending
	}
	m.Init()
	m.doc.ByID(ConfirmTitleID).SetText(m.tr.T(titleKey, replacements))
	m.doc.ByID(ConfirmTextID).SetText(m.tr.T(messageKey, replacements))
	m.doc.ByID(ConfirmID).Show()
	m.doc.ByID(OverlayID).Show()
	m.pending = NewDeferred()
	return m.pending, nil
}

// Pending reports whether a confirmation is open.
func (m *Modal) Pending() bool {
	return m.pending != nil
}

func (m *Modal) settle(ctx context.Context, value bool) {
	m.doc.ByID(ConfirmID).Hide()
	m.doc.ByID(OverlayID).Hide()
	pending := m.pending
	m.pending = nil
	if pending != nil {
		pending.Resolve(ctx, value)
	}
}
