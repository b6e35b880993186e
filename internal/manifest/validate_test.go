package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAPIVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{name: "valid v1 version", version: "berth.io/v1"},
		{name: "empty version", version: ""},
		{name: "unsupported version", version: "berth.io/v999", wantErr: true},
		{name: "invalid format", version: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIVersion(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedAPIVersion)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateKind(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		expected string
		wantErr  error
	}{
		{name: "service", kind: "Service", expected: KindService},
		{name: "include", kind: "Include", expected: KindInclude},
		{name: "empty kind", kind: "", expected: KindService},
		{name: "invalid kind", kind: "Stack", expected: KindService, wantErr: ErrInvalidKind},
		{name: "kind mismatch", kind: "Include", expected: KindService, wantErr: ErrKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKind(tt.kind, tt.expected)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMetaValidate(t *testing.T) {
	meta := metaOf(map[string]any{"apiVersion": "berth.io/v1", "kind": "Service"})
	assert.Equal(t, Meta{APIVersion: APIVersionV1, Kind: KindService}, meta)
	assert.NoError(t, meta.Validate(KindService))
	assert.ErrorIs(t, meta.Validate(KindInclude), ErrKindMismatch)

	assert.ErrorIs(t, metaOf(map[string]any{"apiVersion": "v2"}).Validate(KindService), ErrUnsupportedAPIVersion)
	assert.NoError(t, metaOf(map[string]any{}).Validate(KindService))
}
