package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kioku/internal/models"
)

// DefaultBatchSize bounds the number of concurrent requests to the backend.
const DefaultBatchSize = 10

// Gateway wraps an Embedder with input validation, error classification and bounded
// concurrent batching.
type Gateway struct {
	embedder  Embedder
	batchSize int
	cache     *EmbeddingCache
	logger    *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithBatchSize sets how many texts are embedded concurrently.
func WithBatchSize(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithCache caches single-text (query) embeddings.
func WithCache(c *EmbeddingCache) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
	}
}

// WithLogger sets the logger for the gateway.
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a gateway over embedder.
func NewGateway(embedder Embedder, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EmbedOne embeds a single non-blank text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", models.ErrInvalidInput)
	}
	if g.cache != nil {
		if vec, ok := g.cache.Get(text); ok {
			return vec, nil
		}
	}
	vec, err := g.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Set(text, vec)
	}
	return vec, nil
}

// EmbedMany embeds texts in order. Texts are processed in sub-batches; every text of a
// sub-batch is embedded concurrently and the whole sub-batch completes before the next starts.
// The first failure fails the call and no partial result is returned.
func (g *Gateway) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", models.ErrInvalidInput, i)
		}
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		grp, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			grp.Go(func() error {
				vec, err := g.embed(gctx, texts[i])
				if err != nil {
					return err
				}
				out[i] = vec
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			g.logger.Warn("batch embedding failed",
				zap.Int("batch_start", start),
				zap.Int("total", len(texts)),
				zap.Error(err))
			return nil, err
		}
		g.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(texts)))
	}
	return out, nil
}

// Ping checks that the backend answers with a non-empty embedding.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.embed(ctx, "ping")
	return err
}

// Close closes the underlying embedder.
func (g *Gateway) Close() error {
	return g.embedder.Close()
}

func (g *Gateway) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: backend returned an empty vector", models.ErrEmbeddingUnavailable)
	}
	return vec, nil
}
