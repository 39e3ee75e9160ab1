package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
	"github.com/hyperjump/kioku/pkg/utils"
)

// Components holds the initialized services shared by the server and the local watcher.
type Components struct {
	Store     storage.Store
	Gateway   *embedding.Gateway
	Index     vector.Index
	Pipeline  *indexer.Pipeline
	Retriever *search.Retriever
}

// Close releases every component. Safe on a partially initialized value.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Gateway != nil {
		_ = c.Gateway.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	var err error

	c.Store, err = storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Gateway = embedding.NewGateway(embedder,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithCache(embedding.NewEmbeddingCache(cfg.Embedding.CacheSize)),
		embedding.WithLogger(utils.Component(logger, "embedding")),
	)

	c.Index, err = vector.NewIndex(cfg.Vector.Backend, utils.Component(logger, "vector"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}
	c.Pipeline = indexer.NewPipeline(c.Store, chunker, c.Gateway, c.Index, extract.NewExtractor(),
		indexer.WithLogger(utils.Component(logger, "pipeline")),
		indexer.WithMaxChunks(cfg.Chunking.MaxChunks),
		indexer.WithUploadConfig(cfg.Upload),
	)
	if storage.Durable(cfg.Storage.Driver, cfg.Storage.DatabasePath) {
		if _, err := c.Pipeline.Reconcile(context.Background()); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to reconcile stored documents: %w", err)
		}
	}
	c.Retriever = search.NewRetriever(c.Gateway, c.Index,
		search.WithLogger(utils.Component(logger, "retrieval")),
		search.WithDefaults(cfg.Retrieval.TopK, cfg.Retrieval.ThresholdOrDefault()),
	)

	logger.Info("components initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model))
	return c, nil
}
