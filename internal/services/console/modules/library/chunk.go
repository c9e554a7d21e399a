package library

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
)

// decodeLenient decodes raw into out. raw may be the JSON value itself or a
// JSON string holding it. It reports false on any failure.
func decodeLenient(raw json.RawMessage, out any) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return false
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return false
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return false
		}
		trimmed = []byte(inner)
	}
	return json.Unmarshal(trimmed, out) == nil
}

// ParseList decodes a JSON array of strings or numbers. Anything else is
// empty.
func ParseList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if !decodeLenient(raw, &items) {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var n json.Number
		if json.Unmarshal(item, &n) == nil {
			out = append(out, n.String())
		}
	}
	return out
}

// ParseEntities decodes the entity mapping of a chunk into sorted names. A
// plain array of names is accepted too.
func ParseEntities(raw json.RawMessage) []string {
	var mapping map[string]json.RawMessage
	if decodeLenient(raw, &mapping) {
		names := make([]string, 0, len(mapping))
		for name := range mapping {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	names := ParseList(raw)
	sort.Strings(names)
	return names
}

// HasEntity reports whether the entity names of raw include name.
func HasEntity(raw json.RawMessage, name string) bool {
	for _, n := range ParseEntities(raw) {
		if n == name {
			return true
		}
	}
	return false
}

// FormatStats renders structured stats as indented JSON.
func FormatStats(raw json.RawMessage) (string, bool) {
	var value any
	if !decodeLenient(raw, &value) {
		return "", false
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

// FormatLinks renders linked chunk ids one per line.
func FormatLinks(raw json.RawMessage) (string, bool) {
	var items []json.RawMessage
	if !decodeLenient(raw, &items) {
		return "", false
	}
	return strings.Join(ParseList(raw), "\n"), true
}

// Card is the normalized view of a chunk, summary or search hit.
type Card struct {
	Key          string
	ChunkID      string
	ChildIDs     []string
	Content      string
	SectionTitle string
	Page         apiclient.FlexInt
	SourceFile   string
	Tags         []string
	KeyTerms     []string
	Links        json.RawMessage
	Stats        json.RawMessage
	Entities     json.RawMessage
	Score        *float64
	Expandable   bool
}

// HasTag reports whether the card carries tag.
func (c Card) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ChunkCard builds the card of one document chunk.
func ChunkCard(ch apiclient.Chunk) Card {
	id := string(ch.ChunkID)
	return Card{
		Key:          id,
		ChunkID:      id,
		Content:      ch.Document,
		SectionTitle: ch.SectionTitle,
		Page:         ch.PageStart,
		SourceFile:   ch.SourceFile,
		Tags:         ParseList(ch.Tags),
		KeyTerms:     ParseList(ch.KeyTerms),
		Links:        ch.LinkedChunks,
		Stats:        ch.StructuredStats,
		Entities:     ch.Entities,
	}
}

// SummaryCards builds one expandable card per summary. Metadata the summary
// lacks comes from the first chunk sharing its parent id.
func SummaryCards(ex apiclient.Explore) []Card {
	children := map[string][]apiclient.Chunk{}
	for _, ch := range ex.Documents {
		if p := string(ch.ParentID); p != "" {
			children[p] = append(children[p], ch)
		}
	}
	cards := make([]Card, 0, len(ex.Summaries))
	for _, s := range ex.Summaries {
		parent := string(s.ParentID)
		card := Card{
			Key:          parent,
			Content:      s.Document,
			SectionTitle: s.SectionTitle,
			Page:         s.PageStart,
			Entities:     s.Entities,
			Expandable:   len(children[parent]) > 0,
		}
		for i, ch := range children[parent] {
			card.ChildIDs = append(card.ChildIDs, string(ch.ChunkID))
			if i > 0 {
				continue
			}
			card.ChunkID = string(ch.ChunkID)
			if card.SectionTitle == "" {
				card.SectionTitle = ch.SectionTitle
			}
			if !card.Page.Valid {
				card.Page = ch.PageStart
			}
			if len(bytes.TrimSpace(card.Entities)) == 0 {
				card.Entities = ch.Entities
			}
			card.SourceFile = ch.SourceFile
			card.Tags = ParseList(ch.Tags)
			card.KeyTerms = ParseList(ch.KeyTerms)
			card.Links = ch.LinkedChunks
			card.Stats = ch.StructuredStats
		}
		cards = append(cards, card)
	}
	return cards
}

// HitCard builds the card of one search hit.
func HitCard(hit apiclient.SearchHit) Card {
	score := hit.Score
	id := string(hit.ChunkID)
	return Card{
		Key:          hit.KB + "-" + id,
		ChunkID:      id,
		Content:      hit.Document,
		SectionTitle: hit.SectionTitle,
		Page:         hit.PageStart,
		SourceFile:   hit.SourceFile,
		Tags:         ParseList(hit.Tags),
		KeyTerms:     ParseList(hit.KeyTerms),
		Score:        &score,
	}
}

// ContentCards returns the content cards of a knowledge base.
func ContentCards(ex apiclient.Explore, deep bool) []Card {
	if deep && len(ex.Summaries) > 0 {
		return SummaryCards(ex)
	}
	cards := make([]Card, 0, len(ex.Documents))
	for _, ch := range ex.Documents {
		cards = append(cards, ChunkCard(ch))
	}
	return cards
}

// Section groups cards under one section title.
type Section struct {
	Title string
	Cards []Card
}

// GroupBySection groups cards by section title, with untitled cards under
// fallback, ordered by each group's lowest page. Groups without pages keep
// their first-seen order after the paged ones.
func GroupBySection(cards []Card, fallback string) []Section {
	var sections []Section
	index := map[string]int{}
	minPage := map[string]int{}
	for _, c := range cards {
		title := strings.TrimSpace(c.SectionTitle)
		if title == "" {
			title = fallback
		}
		i, ok := index[title]
		if !ok {
			i = len(sections)
			index[title] = i
			sections = append(sections, Section{Title: title})
		}
		sections[i].Cards = append(sections[i].Cards, c)
		if c.Page.Valid {
			if p, seen := minPage[title]; !seen || c.Page.Value < p {
				minPage[title] = c.Page.Value
			}
		}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		pi, okI := minPage[sections[i].Title]
		pj, okJ := minPage[sections[j].Title]
		switch {
		case okI && okJ:
			return pi < pj
		default:
			return okI && !okJ
		}
	})
	return sections
}

// domID turns an arbitrary key into a safe element id fragment.
func domID(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteString("_" + strconv.Itoa(int(r)) + "_")
		}
	}
	return b.String()
}
