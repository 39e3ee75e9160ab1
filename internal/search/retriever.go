// Package search answers retrieval queries against the vector index.
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/vector"
)

// Retriever embeds a query, searches the index and assembles a context block for a
// downstream model.
type Retriever struct {
	gateway   *embedding.Gateway
	index     vector.Index
	topK      int
	threshold float64
	logger    *zap.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets the retriever's logger.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDefaults sets the top-k and similarity threshold used when a request omits them.
func WithDefaults(topK int, threshold float64) RetrieverOption {
	return func(r *Retriever) {
		if topK > 0 {
			r.topK = topK
		}
		r.threshold = threshold
	}
}

// NewRetriever creates a retriever.
func NewRetriever(gateway *embedding.Gateway, index vector.Index, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		gateway:   gateway,
		index:     index,
		topK:      config.DefaultTopK,
		threshold: config.DefaultSimilarityThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the context and sources for query. It never fails: a blank query or a
// failing backend yields an empty response. topK <= 0 and a nil threshold use the defaults.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold *float64) models.RetrieveResponse {
	empty := models.RetrieveResponse{Sources: []models.Source{}}
	if strings.TrimSpace(query) == "" {
		return empty
	}
	if topK <= 0 {
		topK = r.topK
	}
	minScore := r.threshold
	if threshold != nil {
		minScore = *threshold
	}

	start := time.Now()
	vec, err := r.gateway.EmbedOne(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return empty
	}
	results, err := r.index.Search(ctx, vec, topK, minScore)
	if err != nil {
		r.logger.Warn("vector search failed", zap.Error(err))
		return empty
	}
	r.logger.Debug("retrieved",
		zap.Int("results", len(results)),
		zap.Int("top_k", topK),
		zap.Float64("threshold", minScore),
		zap.Duration("took", time.Since(start)))

	return models.RetrieveResponse{
		Context: BuildContext(results),
		Sources: Sources(results),
	}
}
