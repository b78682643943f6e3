package extraction

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Generator is the boundary to the generative model: a prompt in, text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator also accepts an image alongside the prompt.
type ImageGenerator interface {
	Generator
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = errors.New("model returned an empty response")

// contentGenerator is the part of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls a Gemini model and asks for JSON output.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

var _ ImageGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini API client for model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("AI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{models: client.Models, model: model}, nil
}

func (g *GeminiGenerator) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.call(ctx, genai.Text(prompt))
}

func (g *GeminiGenerator) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	return g.call(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

func (g *GeminiGenerator) call(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, contents, g.config())
	if err != nil {
		return "", fmt.Errorf("failed to generate content with %s: %w", g.model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}
