// Package secretstore reads and writes secret values by path.
//
// Service definitions only ever carry secret paths; values live in a store.
// Two backends are provided: a JSON file that supports writes and a
// SOPS-encrypted file that is read-only.
package secretstore

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no secret exists at a path.
	ErrNotFound = errors.New("secret not found")

	// ErrReadOnly is returned by stores that cannot be written.
	ErrReadOnly = errors.New("secret store is read-only")
)

// Store is a secret backend addressed by path.
type Store interface {
	// Get returns the value stored at path.
	Get(ctx context.Context, path string) (string, error)

	// Put stores value at path, creating or replacing it.
	Put(ctx context.Context, path, value string) error

	// DeleteByPrefix removes every secret whose path starts with prefix and
	// returns the number removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// List returns the sorted paths that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open returns the store backing path. Files named *.sops.yaml, *.sops.yml
// or *.sops.json are decrypted with SOPS and opened read-only.
func Open(path string) (Store, error) {
	if IsSOPS(path) {
		return OpenSOPS(path)
	}
	return OpenFile(path)
}

// IsSOPS reports whether path names a SOPS-encrypted file.
func IsSOPS(path string) bool {
	base := filepath.Base(path)
	return strings.Contains(base, ".sops.")
}

func matching(secrets map[string]string, prefix string) []string {
	var paths []string
	for p := range secrets {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
