// Package models defines core data structures for documents, chunks, embeddings and retrieval results.
package models

import "time"

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s DocumentStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Document is an uploaded file tracked by the document store.
type Document struct {
	ID         string         `json:"id" db:"id"`
	FileName   string         `json:"file_name" db:"file_name"`
	MimeType   string         `json:"mime_type,omitempty" db:"mime_type"`
	FileSize   int64          `json:"file_size" db:"file_size"`
	UploadedAt time.Time      `json:"uploaded_at" db:"uploaded_at"`
	ChunkCount int            `json:"chunk_count" db:"chunk_count"`
	Status     DocumentStatus `json:"status" db:"status"`
	Error      string         `json:"error,omitempty" db:"error"`
}

// Chunk is a window of a document's words. Start and End are word offsets, End exclusive.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Index      int            `json:"chunk_index"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Embedding is an embedded chunk owned by the vector index.
type Embedding struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	ChunkID    string            `json:"chunk_id"`
	Vector     []float32         `json:"-"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Embedding metadata keys set at ingestion time.
const (
	MetaDocumentName = "document_name"
	MetaChunkIndex   = "chunk_index"
	MetaStart        = "start"
	MetaEnd          = "end"
)
