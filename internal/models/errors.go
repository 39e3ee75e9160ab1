package models

import "errors"

var (
	// ErrInvalidConfiguration is returned for malformed settings such as a non-positive chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput is returned for empty text or vectors.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFileType is returned when no extractor handles the file extension.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrExtraction is returned when an extractor cannot read the file.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmbeddingUnavailable is returned when the embedding backend is unreachable or erroring.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
	// ErrDocumentProcessing wraps every ingestion failure.
	ErrDocumentProcessing = errors.New("document processing failed")
	ErrNotFound           = errors.New("not found")
	ErrFileTooLarge       = errors.New("file too large")
)
