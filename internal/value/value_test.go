package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/berth/internal/environment"
)

func testContext(envName string) *Context {
	return NewContext(
		&environment.Config{
			Name:         envName,
			Domain:       "dev01.example.com",
			Region:       "eu-west-1",
			FeatureFlags: []string{"driving-license"},
		},
		map[string]string{"api": "http://api.api.svc.cluster.local"},
	)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		env     string
		want    string
		wantErr error
	}{
		{
			name:  "literal",
			value: Literal("B"),
			env:   "dev",
			want:  "B",
		},
		{
			name:  "zero value is empty literal",
			value: Value{},
			env:   "dev",
			want:  "",
		},
		{
			name:  "per-env entry",
			value: PerEnv(map[string]Value{"dev": Literal("C"), "staging": Missing(), "prod": Literal("D")}),
			env:   "prod",
			want:  "D",
		},
		{
			name:    "per-env missing sentinel",
			value:   PerEnv(map[string]Value{"dev": Literal("C"), "staging": Missing(), "prod": Literal("D")}),
			env:     "staging",
			wantErr: ErrMissing,
		},
		{
			name:    "per-env absent environment",
			value:   PerEnvStrings(map[string]string{"dev": "C"}),
			env:     "prod",
			wantErr: ErrMissing,
		},
		{
			name:    "bare missing",
			value:   Missing(),
			env:     "dev",
			wantErr: ErrMissing,
		},
		{
			name:  "ref",
			value: Ref("api"),
			env:   "dev",
			want:  "http://api.api.svc.cluster.local",
		},
		{
			name:    "unknown ref",
			value:   Ref("nope"),
			env:     "dev",
			wantErr: ErrUnknownService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Resolve(testContext(tt.env))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputed_Idempotent(t *testing.T) {
	v := Computed("upper env", func(ctx *Context) (string, error) {
		return ctx.EnvName() + "-x", nil
	})
	ctx := testContext("staging")

	first, err := v.Resolve(ctx)
	require.NoError(t, err)
	second, err := v.Resolve(ctx)
	require.NoError(t, err)

	assert.Equal(t, "staging-x", first)
	assert.Equal(t, first, second)
}

func TestPerEnv_RejectsComputedEntries(t *testing.T) {
	assert.Panics(t, func() {
		PerEnv(map[string]Value{"dev": Ref("api")})
	})
}

func TestPerEnv_CopiesEntries(t *testing.T) {
	entries := map[string]Value{"dev": Literal("a")}
	v := PerEnv(entries)
	entries["dev"] = Literal("b")

	got, err := v.Resolve(testContext("dev"))
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "environment data", template: "https://{{ .Domain }}/{{ .Env }}", want: "https://dev01.example.com/dev"},
		{name: "ref function", template: `{{ ref "api" }}/graphql`, want: "http://api.api.svc.cluster.local/graphql"},
		{name: "flag function", template: `{{ if flag "driving-license" }}on{{ else }}off{{ end }}`, want: "on"},
		{name: "sprig function", template: `{{ .Region | upper }}`, want: "EU-WEST-1"},
		{name: "feature empty", template: `[{{ feature }}]`, want: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Template(tt.template)
			require.NoError(t, err)
			assert.Equal(t, KindComputed, v.Kind())

			got, err := v.Resolve(testContext("dev"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_Errors(t *testing.T) {
	_, err := Template("{{ .Domain ")
	require.Error(t, err)

	v := MustTemplate(`{{ ref "ghost" }}`)
	_, err = v.Resolve(testContext("dev"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownService))

	assert.Panics(t, func() { MustTemplate("{{ end }}") })
}

func TestString(t *testing.T) {
	assert.Equal(t, `"x"`, Literal("x").String())
	assert.Equal(t, "<missing>", Missing().String())
	assert.Equal(t, "computed(ref api)", Ref("api").String())
	assert.Equal(t, "per-env[dev prod]", PerEnvStrings(map[string]string{"prod": "a", "dev": "b"}).String())
}
