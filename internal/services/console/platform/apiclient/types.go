package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Settings is the section -> key -> value bag.
type Settings map[string]map[string]string

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for section, values := range s {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		out[section] = copied
	}
	return out
}

// Get returns one value or "".
func (s Settings) Get(section string, key string) string {
	if s == nil {
		return ""
	}
	return s[section][key]
}

// Set stores one value, creating the section as needed.
func (s Settings) Set(section string, key string, value string) {
	if s[section] == nil {
		s[section] = map[string]string{}
	}
	s[section][key] = value
}

// UnmarshalJSON accepts non-string scalars and stores them as text.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Settings, len(raw))
	for section, values := range raw {
		out[section] = make(map[string]string, len(values))
		for key, value := range values {
			out[section][key] = rawText(value)
		}
	}
	*s = out
	return nil
}

// FlexString decodes a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString(rawText(data))
	return nil
}

// FlexInt decodes a JSON number or numeric string; anything else is zero.
type FlexInt struct {
	Value int
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(rawText(data))
	if text == "" {
		*f = FlexInt{}
		return nil
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		*f = FlexInt{}
		return nil
	}
	*f = FlexInt{Value: int(n), Valid: true}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Int returns a valid FlexInt.
func Int(v int) FlexInt {
	return FlexInt{Value: v, Valid: true}
}

func rawText(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// Model is one backend model.
type Model struct {
	Name     string `json:"name"`
	TypeHint string `json:"type_hint"`
}

// KB types.
const (
	KBRules   = "rules"
	KBModule  = "module"
	KBSetting = "setting"
)

// IndexingDeep marks KBs whose chunks carry separate summaries.
const IndexingDeep = "deep"

// KBMetadata describes a knowledge base.
type KBMetadata struct {
	KBType           string `json:"kb_type"`
	Language         string `json:"language,omitempty"`
	IndexingStrategy string `json:"indexing_strategy,omitempty"`
	Description      string `json:"description,omitempty"`
}

// KnowledgeBase is one entry of the KB list.
type KnowledgeBase struct {
	Name     string     `json:"name"`
	Count    int        `json:"count"`
	Metadata KBMetadata `json:"metadata"`
}

// Deep reports whether the KB uses deep indexing.
func (kb KnowledgeBase) Deep() bool {
	return kb.Metadata.IndexingStrategy == IndexingDeep
}

// WordCloudTerm is one weighted key term.
type WordCloudTerm struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// Dashboard is the KB overview.
type Dashboard struct {
	ChunkCount         int             `json:"chunk_count"`
	EntityDistribution map[string]int  `json:"entity_distribution"`
	KeyTermsWordCloud  []WordCloudTerm `json:"key_terms_word_cloud"`
}

// Chunk is one retrieval fragment. Tags, KeyTerms, Entities, LinkedChunks
// and StructuredStats hold JSON text or already-decoded JSON and are parsed
// at render time.
type Chunk struct {
	ChunkID         FlexString      `json:"chunk_id"`
	ParentID        FlexString      `json:"parent_id,omitempty"`
	Document        string          `json:"document"`
	SectionTitle    string          `json:"section_title,omitempty"`
	PageStart       FlexInt         `json:"page_start"`
	Tags            json.RawMessage `json:"tags,omitempty"`
	KeyTerms        json.RawMessage `json:"key_terms,omitempty"`
	Entities        json.RawMessage `json:"entities,omitempty"`
	LinkedChunks    json.RawMessage `json:"linked_chunks,omitempty"`
	StructuredStats json.RawMessage `json:"structured_stats,omitempty"`
	SourceFile      string          `json:"source_file,omitempty"`
}

// Summary is the parent summary of deep-indexed chunks.
type Summary struct {
	ParentID     FlexString      `json:"parent_id"`
	Document     string          `json:"document"`
	SectionTitle string          `json:"section_title,omitempty"`
	PageStart    FlexInt         `json:"page_start"`
	Entities     json.RawMessage `json:"entities,omitempty"`
}

// Asset is one KB image.
type Asset struct {
	ThumbURL       string `json:"thumb_url"`
	FullURL        string `json:"full_url"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
}

// Explore is the full KB content.
type Explore struct {
	Documents []Chunk   `json:"documents"`
	Summaries []Summary `json:"summaries,omitempty"`
	Assets    []Asset   `json:"assets"`
}

// Party is a group of characters.
type Party struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

// Character is one party member.
type Character struct {
	ID          FlexString      `json:"id,omitempty"`
	Name        string          `json:"name"`
	Class       string          `json:"class"`
	Level       FlexInt         `json:"level"`
	Description string          `json:"description,omitempty"`
	Stats       json.RawMessage `json:"stats,omitempty"`
}

// Campaign is a saved game.
type Campaign struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   string     `json:"updated_at"`
}

// Session is one played session of a campaign.
type Session struct {
	SessionNumber int    `json:"session_number"`
	JournalRecap  string `json:"journal_recap"`
}

// Game modes.
const (
	ModeModule    = "module"
	ModeFreestyle = "freestyle"
)

// GameConfig parameterizes a running game.
type GameConfig struct {
	Mode     string `json:"mode"`
	Rules    string `json:"rules"`
	Party    string `json:"party"`
	Module   string `json:"module,omitempty"`
	Setting  string `json:"setting,omitempty"`
	LLMModel string `json:"llm_model,omitempty"`
	Language string `json:"language,omitempty"`
}

// Valid reports whether rules and party are set and exactly the mode's
// source is set.
func (c GameConfig) Valid() bool {
	if strings.TrimSpace(c.Rules) == "" || strings.TrimSpace(c.Party) == "" {
		return false
	}
	switch c.Mode {
	case ModeModule:
		return c.Module != "" && c.Setting == ""
	case ModeFreestyle:
		return c.Setting != "" && c.Module == ""
	default:
		return false
	}
}

// CampaignState is the stored state of a campaign.
type CampaignState struct {
	GameConfig   GameConfig `json:"game_config"`
	NarrativeLog string     `json:"narrative_log"`
}

// CommandRequest is one gameplay command.
type CommandRequest struct {
	Command string     `json:"command"`
	Config  GameConfig `json:"config"`
}

// CommandResponse carries markdown narrative.
type CommandResponse struct {
	Response string `json:"response"`
}

// GenerateCharacterRequest asks the backend to draft a character.
type GenerateCharacterRequest struct {
	Description string `json:"description"`
	RulesKB     string `json:"rules_kb"`
}

// Review statuses.
const (
	ReviewPending  = "pending"
	ReviewComplete = "complete"
)

// ReviewImage is one extracted image awaiting review.
type ReviewImage struct {
	Filename       string `json:"filename"`
	URL            string `json:"url"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
}

// ReviewListing is the extraction progress. A bare array decodes as a
// complete listing.
type ReviewListing struct {
	Status string        `json:"status"`
	Images []ReviewImage `json:"images"`
}

func (l *ReviewListing) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var images []ReviewImage
		if err := json.Unmarshal(trimmed, &images); err != nil {
			return err
		}
		*l = ReviewListing{Status: ReviewComplete, Images: images}
		return nil
	}
	type plain ReviewListing
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = ReviewComplete
	}
	*l = ReviewListing(p)
	return nil
}

// ReviewUpdate edits one review image.
type ReviewUpdate struct {
	Description    string `json:"description"`
	Classification string `json:"classification"`
}

// SearchHit is one search result.
type SearchHit struct {
	ChunkID      FlexString      `json:"chunk_id"`
	KB           string          `json:"kb"`
	Document     string          `json:"document"`
	Score        float64         `json:"score"`
	SectionTitle string          `json:"section_title,omitempty"`
	PageStart    FlexInt         `json:"page_start"`
	Tags         json.RawMessage `json:"tags,omitempty"`
	KeyTerms     json.RawMessage `json:"key_terms,omitempty"`
	SourceFile   string          `json:"source_file,omitempty"`
}

// SearchResults decodes a bare array or {"results": [...]}.
type SearchResults []SearchHit

func (r *SearchResults) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var hits []SearchHit
		if err := json.Unmarshal(trimmed, &hits); err != nil {
			return err
		}
		*r = hits
		return nil
	}
	var wrapped struct {
		Results []SearchHit `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	*r = wrapped.Results
	return nil
}
