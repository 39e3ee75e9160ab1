package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hyperjump/kioku/internal/models"
)

// LangchainEmbedder embeds through any OpenAI-compatible endpoint via langchaingo.
type LangchainEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

// NewLangchainEmbedder creates an OpenAI-compatible embedder. An empty baseURL uses the OpenAI API.
func NewLangchainEmbedder(baseURL, model, apiKey string) (*LangchainEmbedder, error) {
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithEmbeddingModel(model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: openai client: %v", models.ErrInvalidConfiguration, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: langchain embedder: %v", models.ErrInvalidConfiguration, err)
	}
	return &LangchainEmbedder{embedder: embedder}, nil
}

// Embed converts text into a vector embedding.
func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	return vec, nil
}

// Close is a no-op; the underlying HTTP client holds no resources.
func (e *LangchainEmbedder) Close() error {
	return nil
}
