// Package cli provides the HTTP client and output helpers behind the kioku command.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes back to domain errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusServiceUnavailable:
		return models.ErrEmbeddingUnavailable
	default:
		return nil
	}
}

// Client talks to a running kioku server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upload sends the file at path to the server for ingestion.
func (c *Client) Upload(ctx context.Context, path string) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var doc models.Document
	if err := c.do(req, http.StatusCreated, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Retrieve asks the server for context relevant to the request's query.
func (c *Client) Retrieve(ctx context.Context, r models.RetrieveRequest) (*models.RetrieveResponse, error) {
	var out models.RetrieveResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/retrieve", r, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments returns all documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var out struct {
		Documents []models.Document `json:"documents"`
	}
	if err := c.sendJSON(ctx, http.MethodGet, "/api/v1/documents", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// GetDocument fetches one document record.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := c.sendJSON(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document and its embeddings.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Status returns the server's document and index summary.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var st models.Status
	if err := c.sendJSON(ctx, http.MethodGet, "/api/v1/status", nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health returns the server and embedding backend health.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.sendJSON(ctx, http.MethodGet, "/health", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchList returns the directories the server watches.
func (c *Client) WatchList(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.sendJSON(ctx, http.MethodGet, "/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// WatchAdd asks the server to watch dir and ingest the files already in it.
func (c *Client) WatchAdd(ctx context.Context, dir string) error {
	body := map[string]any{"path": dir, "sync": true}
	return c.sendJSON(ctx, http.MethodPost, "/api/v1/watch/directories", body, http.StatusCreated, nil)
}

// WatchRemove asks the server to stop watching dir.
func (c *Client) WatchRemove(ctx context.Context, dir string) error {
	path := "/api/v1/watch/directories?path=" + url.QueryEscape(dir)
	return c.sendJSON(ctx, http.MethodDelete, path, nil, http.StatusOK, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, want, out)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
