package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/internal/util"
	"github.com/tathagata1/Pipegent/logging"
)

// FileOptions configure a FileStore.
type FileOptions struct {
	Logger logging.Logger
}

// FileStore is a HistoryStore persisted as a JSON array of {"role","content"}
// objects. The file is the durable projection of the in-memory buffer and may
// be rewritten by other collaborators at any time; RefreshIfStale picks such
// changes up.
//
// Methods are serialized by a mutex. Read-modify-write races with other
// processes writing the same file are not prevented.
type FileStore struct {
	path   string
	logger logging.Logger

	mu       sync.Mutex
	entries  []core.Message
	modTime  time.Time
	size     int64
	recorded bool

	dirty atomic.Bool
}

// NewFileStore returns a store backed by path. The file is not read until
// Load or RefreshIfStale is called.
func NewFileStore(path string, optFns ...func(o *FileOptions)) *FileStore {
	opts := FileOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &FileStore{
		path:   path,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// CreateFileStore creates (or truncates) path with an empty history and
// returns a loaded store for it.
func CreateFileStore(ctx context.Context, path string, optFns ...func(o *FileOptions)) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create context dir: %w", err)
	}
	s := NewFileStore(path, optFns...)
	if err := s.Reset(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load re-reads the file into the buffer. A missing file yields an empty
// history with no recorded timestamp; malformed content or a non-array
// yields an empty history.
func (s *FileStore) Load(_ context.Context) ([]core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return core.CloneMessages(s.entries), nil
}

func (s *FileStore) loadLocked() error {
	s.dirty.Store(false)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = nil
			s.recorded = false
			return nil
		}
		return fmt.Errorf("read context history: %w", err)
	}

	s.entries = decodeEntries(data)
	if len(s.entries) == 0 && len(data) > 0 && !json.Valid(data) {
		s.logger.Warn("history.malformed", "path", s.path)
	}

	s.recordLocked()
	s.logger.Debug("history.loaded", "path", s.path, "entries", len(s.entries))

	return nil
}

// decodeEntries parses a JSON array of role/content objects. Items missing
// either field are dropped and non-string values are stringified.
func decodeEntries(data []byte) []core.Message {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	entries := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, hasRole := obj["role"]
		content, hasContent := obj["content"]
		if !hasRole || !hasContent || role == nil || content == nil {
			continue
		}
		entries = append(entries, core.Message{
			Role:    util.FormatValue(role),
			Content: util.FormatValue(content),
		})
	}
	return entries
}

func (s *FileStore) recordLocked() {
	info, err := os.Stat(s.path)
	if err != nil {
		s.recorded = false
		return
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.recorded = true
}

// Entries returns a snapshot of the buffer.
func (s *FileStore) Entries() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneMessages(s.entries)
}

// RefreshIfStale reloads the buffer when the file changed since it was last
// read or written: a newer modification time, a different size, no recorded
// state, or a change reported by Watch. A deleted file empties the buffer.
func (s *FileStore) RefreshIfStale(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if len(s.entries) > 0 {
				s.logger.Info("history.reset", "path", s.path, "reason", "file removed")
			}
			s.entries = nil
			s.recorded = false
			s.dirty.Store(false)
			return nil
		}
		return fmt.Errorf("stat context history: %w", err)
	}

	stale := !s.recorded ||
		info.ModTime().After(s.modTime) ||
		info.Size() != s.size ||
		s.dirty.Load()
	if !stale {
		return nil
	}

	s.logger.Debug("history.stale", "path", s.path)

	return s.loadLocked()
}

// Append adds entries to the buffer and persists the full buffer.
func (s *FileStore) Append(_ context.Context, entries ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entries...)
	return s.persistLocked()
}

// Reset empties the buffer and writes an empty array to the file.
func (s *FileStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.persistLocked()
}

// persistLocked writes the buffer to a temp file next to the target and
// renames it into place.
func (s *FileStore) persistLocked() error {
	entries := s.entries
	if entries == nil {
		entries = []core.Message{}
	}

	data, err := util.MarshalNoEscape(entries, "  ")
	if err != nil {
		return fmt.Errorf("encode context history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".context-*.tmp")
	if err != nil {
		return fmt.Errorf("persist context history: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist context history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist context history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist context history: %w", err)
	}

	s.recordLocked()
	s.dirty.Store(false)
	s.logger.Debug("history.persisted", "path", s.path, "entries", len(s.entries))

	return nil
}

// Watch starts an fsnotify watch on the file's directory and flags the store
// stale whenever the file is written, created, removed or renamed. The watch
// stops when ctx is cancelled. Watching is optional; the modification time
// and size checks work without it.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.dirty.Store(true)
					s.logger.Debug("history.changed", "path", s.path, "op", event.Op.String())
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("history.watch.error", "path", s.path, "error", err.Error())
			}
		}
	}()

	return nil
}

// Dirty reports whether Watch observed a change not yet reloaded.
func (s *FileStore) Dirty() bool { return s.dirty.Load() }
