// Package watcher ingests files from watched directories as they change.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/fileid"
	"github.com/hyperjump/kioku/internal/models"
)

const defaultDebounce = 500 * time.Millisecond

// Ingester is the part of the ingestion pipeline the watcher drives.
type Ingester interface {
	IngestFile(ctx context.Context, path, documentID string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

// Watcher feeds created and modified files to an Ingester and deletes the documents of
// removed files. Document ids are derived from file paths.
type Watcher struct {
	ingester   Ingester
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	roots     []string
	rootPaths map[string][]string // root -> directories added to fsnotify
	pending   map[string]*time.Timer
	fsw       *fsnotify.Watcher
	ctx       context.Context
	done      chan struct{}
	started   bool
	stopOnce  sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive controls whether subdirectories are watched. Defaults to true.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// NewWatcher creates a watcher over roots. Only files whose extension is in extensions are
// handled; an empty list admits every file.
func NewWatcher(ingester Ingester, roots, extensions []string, opts ...Option) *Watcher {
	w := &Watcher{
		ingester:   ingester,
		extensions: extensions,
		recursive:  true,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		roots:      append([]string(nil), roots...),
		rootPaths:  make(map[string][]string),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. The watcher runs until ctx is cancelled
// or Stop is called; ctx is also used for ingestion calls.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	for i, root := range w.roots {
		abs, err := w.addRootLocked(root)
		if err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		w.roots[i] = abs
	}
	w.ctx = ctx
	w.started = true
	w.logger.Info("watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.matches(path) {
			w.remove(path)
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				w.handleNewDirectory(path)
			}
			return
		}
		if w.matches(path) {
			w.schedule(path)
		}
	}
}

// handleNewDirectory watches a directory created (or moved) under a root and ingests the
// files already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if recursive {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if err := fsw.Add(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fsw.Add(dir); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matches(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule ingests path once it has been quiet for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingestContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) ingest(path string) {
	id := fileid.ForPath(path)
	doc, err := w.ingester.IngestFile(w.ingestContext(), path, id)
	if err != nil {
		w.logger.Warn("watched file ingestion failed", zap.String("path", path), zap.String("document_id", id), zap.Error(err))
		return
	}
	w.logger.Info("watched file ingested", zap.String("path", path), zap.String("document_id", id), zap.Int("chunks", doc.ChunkCount))
}

func (w *Watcher) remove(path string) {
	id := fileid.ForPath(path)
	err := w.ingester.Delete(w.ingestContext(), id)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		w.logger.Warn("watched file removal failed", zap.String("path", path), zap.Error(err))
	default:
		w.logger.Info("watched file removed", zap.String("path", path), zap.String("document_id", id))
	}
}

// AddDirectory starts watching root. When syncExisting is set, files already in it are
// ingested in the background.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return errors.New("watcher is not running")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	if _, err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Info("watch directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

// addRootLocked registers root (and its subdirectories when recursive) with fsnotify and
// returns its cleaned absolute path.
func (w *Watcher) addRootLocked(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}
	var added []string
	if w.recursive {
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.fsw.Add(path); err != nil {
				return err
			}
			added = append(added, path)
			return nil
		})
		if err != nil {
			return "", err
		}
	} else {
		if err := w.fsw.Add(abs); err != nil {
			return "", err
		}
		added = append(added, abs)
	}
	w.rootPaths[abs] = added
	return abs, nil
}

// RemoveDirectory stops watching root. Documents already ingested from it are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.rootPaths[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("watch directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests every matching file already present under the watched roots.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

func (w *Watcher) syncDirectory(root string) {
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	recursive := w.recursive
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.matches(path) {
			w.ingest(path)
		}
		return nil
	})
}

// Stop stops watching and cancels pending ingestions. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	_ = fsw.Close()
}
