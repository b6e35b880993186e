package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		want      string
		wantErr   bool
	}{
		{
			name:      "secret path",
			input:     "/k8s/${name}/TOKEN",
			variables: map[string]any{"name": "api"},
			want:      "/k8s/api/TOKEN",
		},
		{
			name:      "multiple variables",
			input:     "${team}-${name}",
			variables: map[string]any{"team": "core", "name": "api"},
			want:      "core-api",
		},
		{
			name:      "integer variable",
			input:     "port ${port}",
			variables: map[string]any{"port": 8080},
			want:      "port 8080",
		},
		{
			name:      "dollar sign without braces preserved",
			input:     "$name and ${name}",
			variables: map[string]any{"name": "api"},
			want:      "$name and api",
		},
		{
			name:      "template actions untouched",
			input:     "{{ .Env }}-${name}",
			variables: map[string]any{"name": "api"},
			want:      "{{ .Env }}-api",
		},
		{
			name:      "missing variable",
			input:     "${foo} and ${bar}",
			variables: map[string]any{"bar": "present"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.input, tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingVariable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpolate_ReportsAllMissing(t *testing.T) {
	_, err := Interpolate("${a} ${b}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "${a}, ${b}")
}

func TestInterpolateMap(t *testing.T) {
	data := map[string]any{
		"secrets": map[string]any{"TOKEN": "/k8s/${name}/TOKEN"},
		"args":    []any{"--service", "${name}"},
		"port":    3000,
		"env":     map[string]any{"${prefix}_MODE": "on", "UNSET": nil},
	}

	got, err := InterpolateMap(data, map[string]any{"name": "api", "prefix": "API"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"secrets": map[string]any{"TOKEN": "/k8s/api/TOKEN"},
		"args":    []any{"--service", "api"},
		"port":    3000,
		"env":     map[string]any{"API_MODE": "on", "UNSET": nil},
	}, got)
}

func TestInterpolateMap_ErrorPath(t *testing.T) {
	_, err := InterpolateMap(map[string]any{
		"outer": map[string]any{"items": []any{"ok", "${missing}"}},
	}, map[string]any{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "outer"`)
	assert.Contains(t, err.Error(), "index 1")
}

func TestToString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"float", 3.14, "3.14"},
		{"bool", true, "true"},
		{"nil", nil, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toString(tt.input))
		})
	}
}
