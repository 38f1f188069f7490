/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BatchStore is the durable storage collaborator for flushed batches.
type BatchStore interface {
	// WriteBatch persists a batch under the given index.
	// A fully written batch must never be partially visible to readers.
	WriteBatch(index int, batch Batch) error

	// ReadBatch reads a previously written batch back.
	ReadBatch(index int) (Batch, error)
}

// FileStore stores batches as JSON files under a path template
// parameterized by the batch index (e.g. "responses_%03d.json").
// Writes go through a temporary file in the target directory followed by a rename,
// so a batch file is either fully present or absent.
type FileStore struct {
	pathTemplate string
}

var _ BatchStore = (*FileStore)(nil)

// NewFileStore creates a file-based batch store with the given path template.
func NewFileStore(pathTemplate string) *FileStore {
	return &FileStore{pathTemplate: pathTemplate}
}

// BatchPath returns the file path for the given batch index.
func (s *FileStore) BatchPath(index int) string {
	return fmt.Sprintf(s.pathTemplate, index)
}

// WriteBatch implements the BatchStore interface.
func (s *FileStore) WriteBatch(index int, batch Batch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch %d: %w", index, err)
	}

	path := s.BatchPath(index)
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp batch file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp batch file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp batch file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp batch file: %w", err)
	}
	return nil
}

// ReadBatch implements the BatchStore interface.
func (s *FileStore) ReadBatch(index int) (Batch, error) {
	data, err := os.ReadFile(s.BatchPath(index))
	if err != nil {
		return nil, fmt.Errorf("read batch %d: %w", index, err)
	}
	var batch Batch
	if err = json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch %d: %w", index, err)
	}
	return batch, nil
}
