package artifact

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a trivial in-process ArtifactStore useful for tests. Data
// is copied on save and retrieval to avoid accidental external mutation of
// internal buffers.
//
// Layout: runID -> reference -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores a copy of data under a fresh reference.
func (a *InMemoryStore) Save(runID string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[runID]; !exists {
		a.artifacts[runID] = make(map[string][]byte)
	}
	ref := "mem://" + uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[runID][ref] = cp
	return ref, nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(runID, ref string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.artifacts[runID][ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the sorted artifact references stored for the run.
func (a *InMemoryStore) List(runID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	refs := make([]string, 0, len(a.artifacts[runID]))
	for ref := range a.artifacts[runID] {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

// Delete removes an artifact. Missing artifacts are ignored.
func (a *InMemoryStore) Delete(runID, ref string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.artifacts[runID]; ok {
		delete(m, ref)
		if len(m) == 0 {
			delete(a.artifacts, runID)
		}
	}
	return nil
}

// Len returns the number of artifacts held across all runs.
func (a *InMemoryStore) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, m := range a.artifacts {
		n += len(m)
	}
	return n
}
