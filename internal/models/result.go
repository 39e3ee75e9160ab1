package models

// SearchResult pairs an embedding with its similarity to the query, in [-1, 1].
type SearchResult struct {
	Embedding Embedding `json:"embedding"`
	Score     float64   `json:"score"`
}

// Source is a citation for one document that contributed retrieval context.
type Source struct {
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name"`
	Score      float64 `json:"relevance_score"`
}

// RetrieveResponse is the context handed to the completion loop. Both fields may be empty.
type RetrieveResponse struct {
	Context string   `json:"context"`
	Sources []Source `json:"sources"`
}
