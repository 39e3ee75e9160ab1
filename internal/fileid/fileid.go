// Package fileid derives stable document ids for files ingested from watched directories.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// ForPath returns a name-based (version 5) UUID for path. The same cleaned absolute path
// always yields the same id, so re-ingesting a file replaces its previous document.
// Relative paths are resolved against the working directory.
func ForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(filepath.Clean(path)))).String()
}
