package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	// DefaultOllamaModel is the default model used for embeddings.
	DefaultOllamaModel = "nomic-embed-text"
	// DefaultOllamaBaseURL is the default Ollama API URL.
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// OllamaEmbedder calls Ollama's /api/embeddings endpoint, one text per request.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Newer Ollama servers answer with "embeddings"; /api/embeddings still returns "embedding".
type ollamaResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates an embedder for the Ollama server at baseURL. A zero timeout leaves
// request lifetime to the caller's context.
func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed converts text into a vector embedding.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", models.ErrEmbeddingUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", models.ErrEmbeddingUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", models.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", models.ErrEmbeddingUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrEmbeddingUnavailable, err)
	}
	vec := out.Embedding
	if len(vec) == 0 && len(out.Embeddings) > 0 {
		vec = out.Embeddings[0]
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", models.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

// Close releases resources held by the embedder.
func (e *OllamaEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
