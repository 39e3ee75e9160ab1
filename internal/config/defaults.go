package config

const (
	DefaultChunkSize           = 512
	DefaultChunkOverlap        = 50
	DefaultMaxChunks           = 1000
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.7
	DefaultMaxFileSize         = 10 * 1024 * 1024
	DefaultEmbeddingBatchSize  = 10
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "~/.kioku/kioku.db"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 300
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultEmbeddingBatchSize
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 256
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.ChunkOverlap = &o
	}
	if cfg.Chunking.MaxChunks == 0 {
		cfg.Chunking.MaxChunks = DefaultMaxChunks
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Retrieval.Threshold == nil {
		th := DefaultSimilarityThreshold
		cfg.Retrieval.Threshold = &th
	}
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Upload.SupportedTypes == nil {
		cfg.Upload.SupportedTypes = []string{"pdf", "docx", "txt"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
