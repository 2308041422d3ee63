// Package storygen drafts gossip stories from images using Google's Gemini
// API. It is a one-shot helper for the admin editor: the editor uploads a
// photo, the model answers with a headline, slug, category, and body, and
// the human edits from there.
package storygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModels is the fallback order tried until one succeeds.
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-2.5-pro",
}

// Draft is the model's proposed story. Every field is a suggestion; the
// editor remains free to change all of them before publishing.
type Draft struct {
	Headline string `json:"headline"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Body     string `json:"body"`
}

// Generator wraps a genai client with a model fallback list.
type Generator struct {
	client *genai.Client
	models []string
	site   string
}

// New creates a Generator. With no models given, DefaultModels applies.
func New(ctx context.Context, apiKey string, models ...string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("storygen: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("storygen: create client: %w", err)
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Generator{client: client, models: models, site: "the site"}, nil
}

// SetSiteName names the publication in the prompt so drafts read on-brand.
func (g *Generator) SetSiteName(name string) {
	if name != "" {
		g.site = name
	}
}

func (g *Generator) prompt() string {
	return fmt.Sprintf(`You are a writer for %q, a gossip and entertainment site known for its sassy, tea-spilling tone.
Look at this image and write a sensational, clickbait-style news story about it.

Answer with a JSON object only:
{
  "headline": "the catchy title",
  "slug": "url-friendly-slug",
  "category": "one of: news, gossip, politics, entertainment, reality-tv, opinion",
  "body": "the article body, at least three paragraphs, dramatic"
}`, g.site)
}

// FromImage generates a story draft for the given image. Models are tried
// in order; the last failure is returned when every model errors out.
func (g *Generator) FromImage(ctx context.Context, img []byte, mimeType string) (Draft, error) {
	if len(img) == 0 {
		return Draft{}, errors.New("storygen: empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.prompt()),
			genai.NewPartFromBytes(img, mimeType),
		}, genai.RoleUser),
	}

	var lastErr error
	for _, model := range g.models {
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			lastErr = fmt.Errorf("storygen: model %s: %w", model, err)
			continue
		}
		draft, err := ParseDraft(resp.Text())
		if err != nil {
			lastErr = fmt.Errorf("storygen: model %s: %w", model, err)
			continue
		}
		return draft, nil
	}
	if lastErr == nil {
		lastErr = errors.New("storygen: no models configured")
	}
	return Draft{}, lastErr
}

// ParseDraft decodes a model response into a Draft. Models often wrap JSON
// in markdown code fences despite being told not to, so fences are stripped
// first.
func ParseDraft(text string) (Draft, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var d Draft
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	if d.Headline == "" {
		return Draft{}, errors.New("draft missing headline")
	}
	return d, nil
}
