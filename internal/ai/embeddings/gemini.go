package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

// GeminiGenerator creates embeddings with the Gemini API.
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiGenerator creates a generator configured for the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, dimensions int) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	// OpenAI model names are meaningless to Gemini
	if model = strings.TrimSpace(model); model == "" || strings.HasPrefix(model, "text-embedding-3") {
		model = defaultGeminiModel
	}

	return &GeminiGenerator{client: client, model: model, dimensions: dimensions}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

func (g *GeminiGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	out, err := g.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (g *GeminiGenerator) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	texts, err := nonEmpty(texts)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	var cfg *genai.EmbedContentConfig
	if g.dimensions > 0 {
		cfg = &genai.EmbedContentConfig{
			TaskType:             "RETRIEVAL_DOCUMENT",
			OutputDimensionality: genai.Ptr(int32(g.dimensions)),
		}
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
