package storage

import (
	"errors"
	"io/fs"
	"os"
)

// fileBytes sums the sizes of the given files. Missing files count as zero, which covers
// SQLite sidecars (-wal, -shm) that only exist while the database is open in WAL mode.
func fileBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}
