// Package enhancer optionally rewrites rendered content with Gemini while
// keeping the archetype's voice.
package enhancer

import (
	"context"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/personality"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash-lite"

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(1024)

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Enhancer polishes rendered text. A nil *Enhancer, or one without a
// generator, returns content unchanged.
type Enhancer struct {
	gen    Generator
	logger *zap.Logger
}

func New(gen Generator, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{gen: gen, logger: logger}
}

// Enabled reports whether polishing can change anything.
func (e *Enhancer) Enabled() bool {
	return e != nil && e.gen != nil
}

// Polish returns a copy of r with AI-polished text. Any generation failure
// falls back to the rendered text.
func (e *Enhancer) Polish(ctx context.Context, r *models.Rendered) *models.Rendered {
	if !e.Enabled() || r == nil {
		return r
	}

	profile, err := personality.Select(r.Archetype)
	if err != nil {
		return r
	}

	text, err := e.gen.Generate(ctx, buildPrompt(profile, r))
	text = clean(text)
	if err != nil || text == "" {
		e.logger.Warn("enhancement failed, using rendered text",
			zap.String("archetype", r.Archetype.String()),
			zap.String("language", r.Language),
			zap.Error(err),
		)
		return r
	}

	out := *r
	out.Text = text
	out.Enhanced = true
	return &out
}

func clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`")
	return strings.TrimSpace(text)
}

func buildPrompt(profile personality.Profile, r *models.Rendered) string {
	return fmt.Sprintf(`You are "%s", a comedic persona whose tone is: %s.

Rewrite the text below so it sounds even more like you. Keep the same language (%s), keep every fact, keep it under 120 words.
Return ONLY the rewritten text, without quotes, markdown or commentary.

Text:
%s`, profile.DisplayName, profile.Tone, r.Language, r.Text)
}
