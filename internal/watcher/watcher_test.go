package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/fileid"
	"github.com/hyperjump/kioku/internal/models"
)

type recordingIngester struct {
	mu       sync.Mutex
	ingested map[string]string // id -> path
	deleted  []string
}

func newRecorder() *recordingIngester {
	return &recordingIngester{ingested: make(map[string]string)}
}

func (r *recordingIngester) IngestFile(ctx context.Context, path, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested[id] = path
	return &models.Document{ID: id, FileName: filepath.Base(path), ChunkCount: 1}, nil
}

func (r *recordingIngester) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ingested[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.ingested, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *recordingIngester) has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ingested[fileid.ForPath(path)]
	return ok
}

func (r *recordingIngester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ingested)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, rec *recordingIngester, roots ...string) *Watcher {
	t.Helper()
	w := NewWatcher(rec, roots, []string{".txt", ".md"}, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_ingestsAndRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, rec, dir)

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.has(path) })

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !rec.has(path) })
	if rec.count() != 0 {
		t.Errorf("unexpected ingestions: %v", rec.ingested)
	}
}

func TestWatcher_debouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	calls := &countingIngester{}
	w := NewWatcher(calls, []string{dir}, nil, WithDebounce(150*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "f.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(600 * time.Millisecond)
	if n := calls.n(); n != 1 {
		t.Errorf("ingest calls = %d, want 1", n)
	}
}

type countingIngester struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIngester) IngestFile(ctx context.Context, path, id string) (*models.Document, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &models.Document{ID: id}, nil
}

func (c *countingIngester) Delete(ctx context.Context, id string) error { return nil }

func (c *countingIngester) n() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWatcher_newDirectoryIsSynced(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, rec, dir)

	staging := filepath.Join(t.TempDir(), "folder")
	if err := os.MkdirAll(staging, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staging, "a.md"), []byte("# a"), 0600); err != nil {
		t.Fatal(err)
	}
	moved := filepath.Join(dir, "folder")
	if err := os.Rename(staging, moved); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.has(filepath.Join(moved, "a.md")) })
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	rec := newRecorder()
	w := startWatcher(t, rec, dir)
	w.SyncExistingFiles()

	if rec.count() != 1 || !rec.has(filepath.Join(dir, "a.txt")) {
		t.Errorf("ingested = %v", rec.ingested)
	}
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	rec := newRecorder()
	w := startWatcher(t, rec)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := w.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	waitFor(t, func() bool { return rec.has(filepath.Join(dir, "a.txt")) })

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, newRecorder(), root)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
}

func TestWatcher_AddDirectoryBeforeStart(t *testing.T) {
	w := NewWatcher(newRecorder(), nil, nil)
	if err := w.AddDirectory(t.TempDir(), false); err == nil {
		t.Error("expected an error when the watcher is not running")
	}
	w.Stop()
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
