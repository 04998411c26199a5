package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// FileStore keeps artifacts as text files in a scratch directory. The file
// path is the artifact reference. File names are random UUIDs, so concurrent
// runs never collide.
type FileStore struct {
	dir string

	mu   sync.Mutex
	runs map[string]map[string]struct{} // runID -> set of paths
}

// NewFileStore returns a store writing to dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &FileStore{dir: dir, runs: make(map[string]map[string]struct{})}, nil
}

// Dir returns the scratch directory.
func (s *FileStore) Dir() string { return s.dir }

// writeFile is replaced in tests to simulate partial writes.
var writeFile = os.WriteFile

// Save writes data to <dir>/<uuid>.txt and returns the file path. A failed
// write leaves no file behind.
func (s *FileStore) Save(runID string, data []byte) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString()+".txt")
	if err := writeFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		s.runs[runID] = make(map[string]struct{})
	}
	s.runs[runID][path] = struct{}{}

	return path, nil
}

// Get reads the artifact at ref. Only artifacts saved for runID are visible.
func (s *FileStore) Get(runID, ref string) ([]byte, error) {
	s.mu.Lock()
	_, owned := s.runs[runID][ref]
	s.mu.Unlock()
	if !owned {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// List returns the sorted references saved for runID.
func (s *FileStore) List(runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, 0, len(s.runs[runID]))
	for ref := range s.runs[runID] {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

// Delete removes the artifact file. A file that is already gone is not an error.
func (s *FileStore) Delete(runID, ref string) error {
	s.mu.Lock()
	if m, ok := s.runs[runID]; ok {
		delete(m, ref)
		if len(m) == 0 {
			delete(s.runs, runID)
		}
	}
	s.mu.Unlock()

	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
