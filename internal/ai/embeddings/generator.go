package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// EmbeddingsGenerator creates embeddings with the OpenAI API
type EmbeddingsGenerator struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewEmbeddingsGenerator creates a new OpenAI embeddings generator
func NewEmbeddingsGenerator(apiKey, model string, dimensions int, opts ...option.RequestOption) *EmbeddingsGenerator {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	client := openai.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &EmbeddingsGenerator{
		client:     &client,
		model:      model,
		dimensions: dimensions,
	}
}

func (g *EmbeddingsGenerator) Model() string { return g.model }

// GenerateEmbedding creates an embedding vector for text
func (g *EmbeddingsGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	out, err := g.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// GenerateBatchEmbeddings creates embeddings for multiple texts, preserving order
func (g *EmbeddingsGenerator) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	texts, err := nonEmpty(texts)
	if err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(g.model),
	}
	if g.dimensions > 0 {
		params.Dimensions = openai.Int(int64(g.dimensions))
	}

	resp, err := g.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		// API returns float64; storage is float32
		embedding32 := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			embedding32[j] = float32(v)
		}
		embeddings[data.Index] = embedding32
	}

	return embeddings, nil
}
