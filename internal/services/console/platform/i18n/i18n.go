// Package i18n translates console text and keeps the session document in the
// selected language.
package i18n

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/louisbranch/gmconsole/internal/platform/i18n/catalog"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Attributes read by TranslatePage.
const (
	KeyAttr    = "data-i18n"
	TargetAttr = "data-i18n-attr"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Translator is the lookup capability other components depend on.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Service holds the current language and its messages.
type Service struct {
	doc      *dom.Document
	bundle   *catalog.Bundle
	lang     string
	messages map[string]string
}

// New returns a service with no language loaded. T returns keys until Init.
func New(doc *dom.Document, bundle *catalog.Bundle) *Service {
	if bundle == nil {
		bundle = catalog.Default()
	}
	return &Service{doc: doc, bundle: bundle, messages: map[string]string{}}
}

// Normalize reduces a language tag to its base language ("es-MX" -> "es").
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return catalog.BaseLocale
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	base, _ := tag.Base()
	return base.String()
}

// Init loads lang and marks the document with it.
func (s *Service) Init(lang string) error {
	if err := s.load(lang); err != nil {
		return err
	}
	s.markDocument()
	return nil
}

// SetLanguage switches language and re-translates the page. Setting the
// current language again does nothing.
func (s *Service) SetLanguage(lang string) error {
	if Normalize(lang) == s.lang && len(s.messages) > 0 {
		return nil
	}
	if err := s.load(lang); err != nil {
		return err
	}
	s.TranslatePage()
	s.markDocument()
	return nil
}

// Language returns the loaded language.
func (s *Service) Language() string {
	return s.lang
}

// T returns the template for key with {{name}} placeholders substituted.
// Missing keys return the key; unknown placeholders are left in place.
func (s *Service) T(key string, replacements map[string]string) string {
	template, ok := s.messages[key]
	if !ok {
		template = key
	}
	return Substitute(template, replacements)
}

// Substitute replaces every {{name}} that has a replacement.
func Substitute(template string, replacements map[string]string) string {
	if len(replacements) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := replacements[name]; ok {
			return value
		}
		return match
	})
}

// TranslatePage rewrites every element carrying data-i18n, either its text or
// the attribute named by data-i18n-attr.
func (s *Service) TranslatePage() {
	for _, el := range s.doc.QueryAttr(KeyAttr) {
		text := s.T(el.Attr(KeyAttr), nil)
		if attr := el.Attr(TargetAttr); attr != "" {
			if el.Attr(attr) != text {
				el.SetAttr(attr, text)
			}
			continue
		}
		if el.Text() != text {
			el.SetText(text)
		}
	}
}

// Printer formats numbers for the current language.
func (s *Service) Printer() *message.Printer {
	return message.NewPrinter(language.Make(s.lang))
}

func (s *Service) load(lang string) error {
	lang = Normalize(lang)
	messages, ok := s.bundle.Messages(lang)
	if !ok && lang != catalog.BaseLocale {
		lang = catalog.BaseLocale
		messages, ok = s.bundle.Messages(lang)
	}
	if !ok {
		return fmt.Errorf("load locale %q: no bundle", lang)
	}
	s.lang = lang
	s.messages = messages
	return nil
}

func (s *Service) markDocument() {
	if root := s.doc.Root(); root != nil && root.Attr("lang") != s.lang {
		root.SetAttr("lang", s.lang)
	}
}
