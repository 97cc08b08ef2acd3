// Package tempfile generates unique paths for recorded and merged media
// under a process-local temporary directory. Callers delete the files once
// nothing references them; nothing here auto-deletes.
package tempfile

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// New returns a fresh path with the given suffix (".mp4", ".mov", ".m4a")
// under dir, falling back to the OS temp directory when dir is empty.
func New(dir, suffix string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, uuid.New().String()+suffix)
}

// Remove deletes the file if it exists; a missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
