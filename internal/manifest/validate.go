package manifest

import (
	"errors"
	"fmt"
	"slices"
)

// Validation errors for manifest versioning.
var (
	// ErrUnsupportedAPIVersion indicates an unknown or unsupported API version.
	ErrUnsupportedAPIVersion = errors.New("unsupported API version")

	// ErrInvalidKind indicates an unknown manifest kind.
	ErrInvalidKind = errors.New("invalid manifest kind")

	// ErrKindMismatch indicates the kind doesn't match what was expected.
	ErrKindMismatch = errors.New("kind mismatch")
)

// Meta contains the common metadata fields of a manifest.
type Meta struct {
	APIVersion string
	Kind       string
}

// metaOf reads the metadata fields from a parsed document.
func metaOf(doc map[string]any) Meta {
	var m Meta
	m.APIVersion, _ = doc["apiVersion"].(string)
	m.Kind, _ = doc["kind"].(string)
	return m
}

// ValidateAPIVersion checks if the provided version is supported. An empty
// version is accepted.
func ValidateAPIVersion(version string) error {
	if version == "" || slices.Contains(SupportedAPIVersions, version) {
		return nil
	}
	return fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedAPIVersion, version, SupportedAPIVersions)
}

// ValidateKind checks that kind is known and matches expected. An empty kind
// is accepted.
func ValidateKind(kind, expected string) error {
	if kind == "" {
		return nil
	}
	if !slices.Contains(SupportedKinds, kind) {
		return fmt.Errorf("%w: %s (supported: %v)", ErrInvalidKind, kind, SupportedKinds)
	}
	if kind != expected {
		return fmt.Errorf("%w: got %s, expected %s", ErrKindMismatch, kind, expected)
	}
	return nil
}

// Validate checks the metadata against the expected kind.
func (m Meta) Validate(expected string) error {
	if err := ValidateAPIVersion(m.APIVersion); err != nil {
		return err
	}
	return ValidateKind(m.Kind, expected)
}
