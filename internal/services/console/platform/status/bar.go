// Package status owns the session status bar and the confirmation modal.
package status

import (
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
)

// DOM ids.
const (
	BarID          = "status-bar"
	OverlayID      = "modal-overlay"
	ConfirmID      = "confirm-modal"
	ConfirmTitleID = "confirm-title"
	ConfirmTextID  = "confirm-message"
	ConfirmOKID    = "confirm-ok"
	ConfirmNoID    = "confirm-cancel"

	errorClass = "error"
	// ErrorKey formats backend and transport failures.
	ErrorKey = "status_error"
)

// Bar writes translated messages to #status-bar.
type Bar struct {
	doc *dom.Document
	tr  i18n.Translator
}

// NewBar returns a bar bound to doc. The element is looked up on every call,
// so the bar can be built before the skeleton is attached.
func NewBar(doc *dom.Document, tr i18n.Translator) *Bar {
	return &Bar{doc: doc, tr: tr}
}

// SetText shows the translation of key, in error style when isError is set.
func (b *Bar) SetText(key string, isError bool, replacements map[string]string) {
	el := b.doc.ByID(BarID)
	if el == nil {
		return
	}
	text := key
	if b.tr != nil {
		text = b.tr.T(key, replacements)
	}
	el.SetText(text)
	el.ToggleClass(errorClass, isError)
}

// Clear empties the bar.
func (b *Bar) Clear() {
	el := b.doc.ByID(BarID)
	if el == nil {
		return
	}
	el.SetText("")
	el.RemoveClass(errorClass)
}

// ReportError shows "Error: <message>" in error style.
func (b *Bar) ReportError(message string) {
	b.SetText(ErrorKey, true, map[string]string{"message": message})
}
