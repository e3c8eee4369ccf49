// Package ingest implements the deterministic, idempotent, crash-safe,
// parallel-bounded pipeline that turns a book's raw text into embedded,
// deduplicated chunks in the vector store (spec.md §4.1).
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path via write-temp-then-rename, matching
// original_source/doctrine_ingestion/storage.py's atomic-commit contract:
// a crash mid-write leaves either the old file intact or nothing, never a
// half-written file at path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomic write %s: mkdir: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write %s: create temp: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write %s: write: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write %s: fsync: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomic write %s: close: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic write %s: rename: %w", path, err)
	}
	return nil
}
