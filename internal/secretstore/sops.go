package secretstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	"gopkg.in/yaml.v3"
)

// SOPSStore is a read-only store decrypted from a SOPS file. Nested
// mappings are flattened into paths, so
//
//	k8s:
//	  api:
//	    TOKEN: secret
//
// is readable at /k8s/api/TOKEN. Top-level keys that already start with a
// slash are used as paths verbatim.
type SOPSStore struct {
	path    string
	secrets map[string]string
}

// OpenSOPS decrypts the file at path. Decryption keys are located the usual
// SOPS way (age key file, KMS credentials, PGP agent).
func OpenSOPS(path string) (*SOPSStore, error) {
	format := "yaml"
	if filepath.Ext(path) == ".json" {
		format = "json"
	}

	cleartext, err := decrypt.File(path, format)
	if err != nil {
		return nil, fmt.Errorf("sops decrypt %s: %w", path, err)
	}

	secrets, err := parseSecrets(cleartext)
	if err != nil {
		return nil, fmt.Errorf("parse decrypted %s: %w", path, err)
	}
	return &SOPSStore{path: path, secrets: secrets}, nil
}

// Get returns the value stored at path.
func (s *SOPSStore) Get(_ context.Context, path string) (string, error) {
	v, ok := s.secrets[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return v, nil
}

// Put always fails; SOPS files are edited with sops itself.
func (s *SOPSStore) Put(_ context.Context, path, _ string) error {
	return fmt.Errorf("put %s: %w (%s)", path, ErrReadOnly, s.path)
}

// DeleteByPrefix always fails.
func (s *SOPSStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	return 0, fmt.Errorf("delete %s: %w (%s)", prefix, ErrReadOnly, s.path)
}

// List returns the sorted paths under prefix.
func (s *SOPSStore) List(_ context.Context, prefix string) ([]string, error) {
	return matching(s.secrets, prefix), nil
}

// parseSecrets decodes cleartext YAML or JSON and flattens it into paths.
func parseSecrets(data []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	secrets := make(map[string]string)
	for k, v := range doc {
		if k == "sops" {
			continue
		}
		prefix := k
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		flatten(secrets, prefix, v)
	}
	return secrets, nil
}

func flatten(out map[string]string, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(out, prefix+"/"+k, child)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprintf("%v", val)
	}
}
