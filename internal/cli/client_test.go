package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestClient_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0600); err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/documents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.txt" || string(data) != "hello world" {
			t.Errorf("got %s = %q", header.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Document{ID: "d1", FileName: header.Filename, Status: models.StatusProcessed})
	})

	doc, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "d1" || doc.Status != models.StatusProcessed {
		t.Errorf("doc = %+v", doc)
	}
}

func TestClient_Retrieve(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.RetrieveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Query != "foo" || req.TopK != 3 || req.Threshold == nil || *req.Threshold != 0.5 {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(models.RetrieveResponse{
			Context: "[Relevance: 1.00]\nfoo\n\n",
			Sources: []models.Source{{DocumentID: "D1", FileName: "a.txt", Score: 1}},
		})
	})
	th := 0.5
	resp, err := c.Retrieve(context.Background(), models.RetrieveRequest{Query: "foo", TopK: 3, Threshold: &th})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].FileName != "a.txt" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
		msg    string
	}{
		{"not found", http.StatusNotFound, `{"error":"not found: document x"}`, models.ErrNotFound, "not found: document x"},
		{"unavailable", http.StatusServiceUnavailable, `{"error":"embedding unavailable"}`, models.ErrEmbeddingUnavailable, "embedding unavailable"},
		{"plain body", http.StatusBadGateway, "upstream broke", nil, "upstream broke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := c.DeleteDocument(context.Background(), "x")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.msg {
				t.Errorf("apiErr = %+v", apiErr)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.is)
			}
		})
	}
}

func TestClient_DeleteAndList(t *testing.T) {
	var deleted string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/v1/documents":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"documents": []models.Document{{ID: "b"}, {ID: "a"}},
				"total":     2,
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	if err := c.DeleteDocument(ctx, "doc 1"); err != nil {
		t.Fatal(err)
	}
	if deleted != "/api/v1/documents/doc 1" {
		t.Errorf("deleted path = %q", deleted)
	}
	docs, err := c.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID != "b" {
		t.Errorf("docs = %+v", docs)
	}
	if _, err := c.Status(ctx); !IsNotFound(err) {
		t.Errorf("status on unknown route: %v", err)
	}
}

func TestClient_WatchDirectories(t *testing.T) {
	dirs := []string{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Path string `json:"path"`
				Sync bool   `json:"sync"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if !body.Sync {
				t.Error("expected sync=true")
			}
			dirs = append(dirs, body.Path)
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			if r.URL.Query().Get("path") == "/tmp/docs" {
				dirs = dirs[:0]
			}
			w.WriteHeader(http.StatusOK)
		default:
			_ = json.NewEncoder(w).Encode(map[string][]string{"directories": dirs})
		}
	})
	ctx := context.Background()
	if err := c.WatchAdd(ctx, "/tmp/docs"); err != nil {
		t.Fatal(err)
	}
	got, err := c.WatchList(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("list = %v, %v", got, err)
	}
	if err := c.WatchRemove(ctx, "/tmp/docs"); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.WatchList(ctx); len(got) != 0 {
		t.Errorf("after remove: %v", got)
	}
}
