// Package embedding turns text into vectors through a pluggable backend and batches requests
// through a Gateway.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/models"
)

// Embedder produces a vector embedding for a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// NewEmbedder builds the backend selected by cfg.Provider.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Timeout()), nil
	case "openai":
		return NewLangchainEmbedder(cfg.BaseURL, cfg.Model, cfg.APIKey)
	case "mock":
		if logger != nil {
			logger.Warn("using mock embedder, retrieval quality is lexical only")
		}
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfiguration, cfg.Provider)
	}
}

// unavailable marks err as an embedding backend failure, keeping the cause reachable.
func unavailable(err error) error {
	if err == nil || errors.Is(err, models.ErrEmbeddingUnavailable) || errors.Is(err, models.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
}
