// Package catalog loads the console locale bundles.
//
// A bundle file is a flat mapping from message key to template, stored as
// locales/<lang>.json (or .yaml). Templates use {{name}} placeholders that the
// i18n service substitutes at lookup time.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// BaseLocale is the canonical source locale and the fallback bundle.
	BaseLocale = "en"
)

// Bundle contains all locale message maps loaded from disk.
type Bundle struct {
	locales map[string]map[string]string
}

//go:embed locales/*.json
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the process-wide embedded catalog bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads catalog files embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads locales/*.json and locales/*.yaml from the provided filesystem.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	var paths []string
	for _, pattern := range []string{"locales/*.json", "locales/*.yaml"} {
		matches, err := fs.Glob(catalogFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob locale catalogs: %w", err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		locale := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if err := bundle.addFile(p, locale, data); err != nil {
			return nil, err
		}
	}

	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return bundle, nil
}

func (b *Bundle) addFile(p string, locale string, data []byte) error {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if _, exists := b.locales[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", p, locale)
	}
	// YAML is a superset of JSON, so one decoder serves both bundle formats.
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse catalog %s: %w", p, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}
	messages := make(map[string]string, len(raw))
	for key, value := range raw {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if _, exists := messages[trimmed]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q", p, trimmed)
		}
		messages[trimmed] = value
	}
	b.locales[locale] = messages
	return nil
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Messages returns a copy of one locale's messages without fallback.
func (b *Bundle) Messages(locale string) (map[string]string, bool) {
	if b == nil {
		return nil, false
	}
	messages, ok := b.locales[strings.TrimSpace(locale)]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(messages))
	for key, value := range messages {
		out[key] = value
	}
	return out, true
}

// JSON encodes one locale bundle as served to browsers.
func (b *Bundle) JSON(locale string) ([]byte, bool) {
	messages, ok := b.Messages(locale)
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, false
	}
	return data, true
}

// MissingKeys lists base-locale keys absent from locale, sorted.
func (b *Bundle) MissingKeys(locale string) []string {
	base, ok := b.Messages(BaseLocale)
	if !ok {
		return nil
	}
	target, _ := b.Messages(locale)
	var missing []string
	for key := range base {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func mustLoadEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return bundle
}
