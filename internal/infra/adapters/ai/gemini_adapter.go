package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.LLMAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter generates text through the official Gemini SDK.
type GeminiAdapter struct {
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c}, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, model, systemPrompt, userContent string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(userContent), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
