package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "hello" {
			t.Errorf("unexpected body %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "", time.Second)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestOllamaEmbedder_EmbeddingsShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[1, 2]]}`))
	}))
	defer srv.Close()
	vec, err := NewOllamaEmbedder(srv.URL, "m", time.Second).Embed(context.Background(), "x")
	if err != nil || len(vec) != 2 {
		t.Errorf("got %v, %v", vec, err)
	}
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"empty embedding", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embedding": []}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewOllamaEmbedder(srv.URL, "m", time.Second).Embed(context.Background(), "x")
			if !errors.Is(err, models.ErrEmbeddingUnavailable) {
				t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
			}
		})
	}
}

func TestOllamaEmbedder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := NewOllamaEmbedder(url, "m", time.Second).Embed(context.Background(), "x")
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}
