// Package embeddings produces job-description vectors through an external
// embedding provider.
package embeddings

import (
	"context"
	"fmt"

	"github.com/TryAwesome/CVibe-sub002/internal/config"
)

// Generator turns text into fixed-dimension vectors.
type Generator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// New builds the generator selected by cfg.Provider. The "none" provider
// yields a nil generator and disables backfill.
func New(ctx context.Context, cfg config.EmbeddingConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("embedding.openai_api_key is required for provider %q", cfg.Provider)
		}
		return NewEmbeddingsGenerator(cfg.OpenAIAPIKey, cfg.Model, cfg.Dimension), nil
	case config.ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func nonEmpty(texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}
	return texts, nil
}
