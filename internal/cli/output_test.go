package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteRetrieveResponse(t *testing.T) {
	resp := &models.RetrieveResponse{
		Context: "[Relevance: 0.93]\nkubernetes pods\n\n",
		Sources: []models.Source{{DocumentID: "d1", FileName: "k8s.txt", Score: 0.93}},
	}

	var text bytes.Buffer
	if err := WriteRetrieveResponse(&text, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := text.String()
	if !strings.Contains(out, "k8s.txt") || !strings.Contains(out, "[0.93]") || !strings.Contains(out, "kubernetes pods") {
		t.Errorf("text output:\n%s", out)
	}

	var js bytes.Buffer
	if err := WriteRetrieveResponse(&js, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.RetrieveResponse
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, js.String())
	}
	if decoded.Sources[0].Score != 0.93 {
		t.Errorf("decoded = %+v", decoded)
	}

	var empty bytes.Buffer
	_ = WriteRetrieveResponse(&empty, &models.RetrieveResponse{Sources: []models.Source{}}, OutputText)
	if !strings.Contains(empty.String(), "No relevant context") {
		t.Errorf("empty output = %q", empty.String())
	}
}

func TestWriteDocuments(t *testing.T) {
	docs := []models.Document{
		{ID: "d2", FileName: "b.pdf", Status: models.StatusFailed, Error: "no text extracted", UploadedAt: time.Now()},
		{ID: "d1", FileName: "a.txt", Status: models.StatusProcessed, ChunkCount: 4, UploadedAt: time.Now()},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("table:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "failed: no text extracted") {
		t.Errorf("failed row = %q", lines[1])
	}

	buf.Reset()
	_ = WriteDocuments(&buf, nil, OutputJSON)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON = %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	n := int64(4096)
	st := &models.Status{
		Documents: 2, Embeddings: 7, VectorBackend: "memory", StorageDriver: "sqlite", StorageBytes: &n,
		Config: models.StatusConfig{EmbeddingProvider: "ollama", EmbeddingModel: "nomic-embed-text", ChunkSize: 512},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"documents:          2", "embeddings:         7", "storage_bytes:      4096", "ollama/nomic-embed-text"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}
}
