package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cameronsjo/berth/internal/fileutil"
	"github.com/cameronsjo/berth/internal/lock"
)

// lockOperation names the lock taken while the file is rewritten.
const lockOperation = "secrets"

// FileStore is a writable store backed by a JSON object of path → value.
// Writes are serialized across processes with a file lock and replace the
// file atomically.
type FileStore struct {
	path string

	mu      sync.RWMutex
	secrets map[string]string
}

// OpenFile loads the JSON store at path. A missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	secrets, err := s.read()
	if err != nil {
		return nil, err
	}
	s.secrets = secrets
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored at path.
func (s *FileStore) Get(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.secrets[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return v, nil
}

// Put stores value at path.
func (s *FileStore) Put(_ context.Context, path, value string) error {
	return s.update(func(secrets map[string]string) bool {
		secrets[path] = value
		return true
	})
}

// DeleteByPrefix removes every secret under prefix.
func (s *FileStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	var removed int
	err := s.update(func(secrets map[string]string) bool {
		for _, p := range matching(secrets, prefix) {
			delete(secrets, p)
			removed++
		}
		return removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// List returns the sorted paths under prefix.
func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matching(s.secrets, prefix), nil
}

// update re-reads the file under the lock and applies fn. The file is
// rewritten only when fn reports a change.
func (s *FileStore) update(fn func(map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lock.WithLock(filepath.Dir(s.path), lockOperation, func() error {
		secrets, err := s.read()
		if err != nil {
			return err
		}

		if fn(secrets) {
			data, err := json.MarshalIndent(secrets, "", "  ")
			if err != nil {
				return fmt.Errorf("encode secrets: %w", err)
			}
			if err := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0600); err != nil {
				return fmt.Errorf("write secrets %s: %w", s.path, err)
			}
		}

		s.secrets = secrets
		return nil
	})
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read secrets %s: %w", s.path, err)
	}

	secrets := map[string]string{}
	if len(data) == 0 {
		return secrets, nil
	}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets %s: %w", s.path, err)
	}
	return secrets, nil
}
