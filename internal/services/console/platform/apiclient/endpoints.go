package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

func seg(value string) string {
	return url.PathEscape(value)
}

// GetSettings loads the settings bag.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var out Settings
	if err := c.Call(ctx, http.MethodGet, "/api/settings/", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Settings{}
	}
	return out, nil
}

// SaveSettings stores the settings bag.
func (c *Client) SaveSettings(ctx context.Context, settings Settings) error {
	return c.Call(ctx, http.MethodPost, "/api/settings/", settings, nil)
}

// ListModels returns the models known to the backend.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out []Model
	err := c.Call(ctx, http.MethodGet, "/api/ollama/models", nil, &out)
	return out, err
}

// ListKnowledgeBases returns every KB summary.
func (c *Client) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error) {
	var out []KnowledgeBase
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/", nil, &out)
	return out, err
}

// Dashboard returns the KB overview.
func (c *Client) Dashboard(ctx context.Context, kb string) (Dashboard, error) {
	var out Dashboard
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/dashboard/"+seg(kb), nil, &out)
	return out, err
}

// Explore returns chunks, summaries and assets of a KB.
func (c *Client) Explore(ctx context.Context, kb string) (Explore, error) {
	var out Explore
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/explore/"+seg(kb), nil, &out)
	return out, err
}

// Entities returns the entity names of a KB.
func (c *Client) Entities(ctx context.Context, kb string) ([]string, error) {
	var out []string
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/entities/"+seg(kb), nil, &out)
	return out, err
}

// Chunk returns one full chunk.
func (c *Client) Chunk(ctx context.Context, kb string, chunkID string) (Chunk, error) {
	var out Chunk
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/chunk/"+seg(kb)+"/"+seg(chunkID), nil, &out)
	return out, err
}

// DeleteKnowledgeBase removes a KB.
func (c *Client) DeleteKnowledgeBase(ctx context.Context, kb string) error {
	return c.Call(ctx, http.MethodDelete, "/api/knowledge/"+seg(kb), nil, nil)
}

// DeleteAsset removes one asset by its thumbnail file name.
func (c *Client) DeleteAsset(ctx context.Context, kb string, thumbFilename string) error {
	return c.Call(ctx, http.MethodDelete, "/api/knowledge/"+seg(kb)+"/asset/"+seg(thumbFilename), nil, nil)
}

// UploadAsset adds an image to a KB.
func (c *Client) UploadAsset(ctx context.Context, kb string, file FormFile) error {
	file.Field = "file"
	return c.Call(ctx, http.MethodPost, "/api/knowledge/"+seg(kb)+"/upload-asset", NewForm().File(file), nil)
}

// ImportText ingests a source document into a new or existing KB.
func (c *Client) ImportText(ctx context.Context, file FormFile, kbName string, metadata KBMetadata) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	file.Field = "file"
	form := NewForm().File(file).Field("kb_name", kbName).Field("metadata", string(meta))
	return c.Call(ctx, http.MethodPost, "/api/knowledge/import-text", form, nil)
}

type kbNameBody struct {
	KBName string `json:"kb_name"`
}

// StartImageExtraction begins extracting images of the last import.
func (c *Client) StartImageExtraction(ctx context.Context, kb string) error {
	return c.Call(ctx, http.MethodPost, "/api/knowledge/start-image-extraction", kbNameBody{KBName: kb}, nil)
}

// ReviewImages returns extraction progress and images.
func (c *Client) ReviewImages(ctx context.Context, kb string) (ReviewListing, error) {
	var out ReviewListing
	err := c.Call(ctx, http.MethodGet, "/api/knowledge/review-images/"+seg(kb), nil, &out)
	return out, err
}

// UpdateReviewImage saves one reviewed image.
func (c *Client) UpdateReviewImage(ctx context.Context, kb string, filename string, update ReviewUpdate) error {
	return c.Call(ctx, http.MethodPut, "/api/knowledge/review-images/"+seg(kb)+"/"+seg(filename), update, nil)
}

// IngestImages finalizes the reviewed images.
func (c *Client) IngestImages(ctx context.Context, kb string) error {
	return c.Call(ctx, http.MethodPost, "/api/knowledge/ingest-images", kbNameBody{KBName: kb}, nil)
}

// ListParties returns every party.
func (c *Client) ListParties(ctx context.Context) ([]Party, error) {
	var out []Party
	err := c.Call(ctx, http.MethodGet, "/api/parties/", nil, &out)
	return out, err
}

// CreateParty adds a party.
func (c *Client) CreateParty(ctx context.Context, name string) (Party, error) {
	var out Party
	err := c.Call(ctx, http.MethodPost, "/api/parties/", map[string]string{"name": name}, &out)
	return out, err
}

// DeleteParty removes a party.
func (c *Client) DeleteParty(ctx context.Context, id string) error {
	return c.Call(ctx, http.MethodDelete, "/api/parties/"+seg(id), nil, nil)
}

// ListCharacters returns the characters of a party.
func (c *Client) ListCharacters(ctx context.Context, partyID string) ([]Character, error) {
	var out []Character
	err := c.Call(ctx, http.MethodGet, "/api/parties/"+seg(partyID)+"/characters", nil, &out)
	return out, err
}

// CreateCharacter adds a character to a party.
func (c *Client) CreateCharacter(ctx context.Context, partyID string, character Character) (Character, error) {
	var out Character
	err := c.Call(ctx, http.MethodPost, "/api/parties/"+seg(partyID)+"/characters", character, &out)
	return out, err
}

// DeleteCharacter removes a character.
func (c *Client) DeleteCharacter(ctx context.Context, id string) error {
	return c.Call(ctx, http.MethodDelete, "/api/characters/"+seg(id), nil, nil)
}

// Command sends one gameplay command.
func (c *Client) Command(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	var out CommandResponse
	err := c.Call(ctx, http.MethodPost, "/api/game/command", req, &out)
	return out, err
}

// GenerateCharacter drafts a character from a description.
func (c *Client) GenerateCharacter(ctx context.Context, req GenerateCharacterRequest) (Character, error) {
	var out Character
	err := c.Call(ctx, http.MethodPost, "/api/game/generate-character", req, &out)
	return out, err
}

// ListCampaigns returns saved campaigns.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	err := c.Call(ctx, http.MethodGet, "/api/campaigns/", nil, &out)
	return out, err
}

// LatestSession returns the newest session, or ErrAbsent when the campaign
// has none.
func (c *Client) LatestSession(ctx context.Context, campaignID string) (Session, error) {
	var out Session
	err := c.Call(ctx, http.MethodGet, "/api/campaigns/"+seg(campaignID)+"/latest-session", nil, &out,
		Optional(http.StatusNotFound))
	if err == nil && out == (Session{}) {
		return out, ErrAbsent
	}
	return out, err
}

// CampaignState returns the stored config and narrative.
func (c *Client) CampaignState(ctx context.Context, campaignID string) (CampaignState, error) {
	var out CampaignState
	err := c.Call(ctx, http.MethodGet, "/api/campaigns/"+seg(campaignID)+"/state", nil, &out)
	return out, err
}

// Search queries all KBs or one.
func (c *Client) Search(ctx context.Context, query string, scope string) (SearchResults, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("scope", scope)
	var out SearchResults
	err := c.Call(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, &out)
	return out, err
}
