// Package infra provides durable storage implementations.
package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"screentime/internal/domain"
)

const snapshotFileName = "usage.json"

// FileStore implements domain.LedgerStore with a JSON snapshot file.
// Writes are atomic (temp file + rename) so a crash mid-save leaves
// the previous snapshot intact.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store in the given data directory.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dataDir, snapshotFileName)}, nil
}

// Path returns the snapshot file path (for tests).
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted ledger. A missing or unparseable snapshot
// is reported as domain.ErrSnapshotNotFound; the engine then starts
// from defaults rather than aborting.
func (s *FileStore) Load() (*domain.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var ledger domain.Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", s.path, domain.ErrSnapshotNotFound)
	}
	return &ledger, nil
}

// Save replaces the snapshot atomically (write + rename).
func (s *FileStore) Save(l *domain.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*FileStore)(nil)
