package models

// Status is the service summary returned by the status endpoint.
type Status struct {
	Documents     int          `json:"documents"`
	Embeddings    int          `json:"embeddings"`
	VectorBackend string       `json:"vector_backend"`
	StorageDriver string       `json:"storage_driver"`
	StorageBytes  *int64       `json:"storage_bytes,omitempty"`
	Config        StatusConfig `json:"config"`
}

// StatusConfig echoes the settings that shape ingestion and retrieval.
type StatusConfig struct {
	EmbeddingProvider   string   `json:"embedding_provider"`
	EmbeddingModel      string   `json:"embedding_model"`
	ChunkSize           int      `json:"chunk_size"`
	ChunkOverlap        int      `json:"chunk_overlap"`
	MaxChunks           int      `json:"max_chunks"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	SupportedTypes      []string `json:"supported_types"`
}
