package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/berth/internal/value"
)

func TestNew_Defaults(t *testing.T) {
	def := New("web").Build()

	assert.Equal(t, "web", def.Name)
	assert.Equal(t, "web", def.Namespace)
	assert.Equal(t, DefaultProbe, def.Liveness)
	assert.Equal(t, DefaultProbe, def.Readiness)
	assert.NotNil(t, def.Env)
	assert.NotNil(t, def.Secrets)
	assert.Nil(t, def.Postgres)
}

func TestBuilder_Immutable(t *testing.T) {
	base := New("api").EnvStrings(map[string]string{"A": "1"})
	withB := base.EnvStrings(map[string]string{"B": "2"})

	assert.Len(t, base.Build().Env, 1)
	assert.Len(t, withB.Build().Env, 2)

	// Mutating a built definition must not leak back into the builder.
	built := withB.Build()
	built.Env["C"] = value.Literal("3")
	assert.Len(t, withB.Build().Env, 2)
}

func TestBuilder_DuplicateEnvPanics(t *testing.T) {
	b := New("api").EnvStrings(map[string]string{"A": "1", "B": "2"})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)

		var dup *DuplicateKeyError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "api", dup.Service)
		assert.Equal(t, "env", dup.Field)
		assert.Equal(t, []string{"A", "B"}, dup.Keys)
	}()

	b.EnvStrings(map[string]string{"B": "x", "A": "y", "C": "z"})
}

func TestBuilder_DuplicateSecretsPanics(t *testing.T) {
	b := New("api").Secrets(map[string]string{"TOKEN": "/k8s/api/TOKEN"})

	assert.PanicsWithError(t, "service api: secrets already set for keys: TOKEN", func() {
		b.Secrets(map[string]string{"TOKEN": "/k8s/api/OTHER"})
	})
}

func TestBuilder_EnvAndSecretsAreSeparate(t *testing.T) {
	// Collisions between env and secrets are reported by validation, not here.
	assert.NotPanics(t, func() {
		New("api").
			EnvStrings(map[string]string{"TOKEN": "plain"}).
			Secrets(map[string]string{"TOKEN": "/k8s/api/TOKEN"})
	})
}

func TestBuilder_InterleavedCalls(t *testing.T) {
	def := New("api").
		Image("api-image").
		EnvStrings(map[string]string{"A": "1"}).
		Ingress(map[string]IngressRule{"primary": {Host: value.Literal("api"), Paths: []string{"/"}, Public: true}}).
		Postgres(nil).
		Secrets(map[string]string{"S": "/k8s/api/S"}).
		Resources(Resources{Limits: ResourceSet{CPU: "400m", Memory: "512Mi"}}).
		Replicas(ReplicaPolicy{Min: 2, Max: 10, Default: 2}).
		HPA(10).
		Volumes(Volume{Name: "data", Size: "1Gi", MountPath: "/data"}).
		ServiceAccount("api").
		Command("node").
		Args("main.js").
		Port(3333).
		Extra(map[string]any{"podAnnotations": map[string]any{"a": "b"}}).
		Build()

	assert.Equal(t, "api-image", def.Image)
	assert.Contains(t, def.Env, "A")
	assert.Contains(t, def.Secrets, "S")
	require.NotNil(t, def.Postgres)
	require.NotNil(t, def.Replicas)
	assert.Equal(t, 10, def.Replicas.Max)
	assert.Equal(t, 10, def.RequestsPerSecond)
	assert.Len(t, def.Volumes, 1)
	assert.Equal(t, []string{"node"}, def.Command)
	assert.Equal(t, []string{"main.js"}, def.Args)
	assert.Equal(t, 3333, def.Port)
	assert.Equal(t, "api", def.ServiceAccount)
	assert.Contains(t, def.Extra, "podAnnotations")
}

func TestPostgres_WithDefaults(t *testing.T) {
	pg := (&Postgres{}).WithDefaults("service-portal-api")

	assert.Equal(t, "service_portal_api", pg.Name)
	assert.Equal(t, "service_portal_api", pg.Username)
	assert.Equal(t, "/k8s/service-portal-api/DB_PASSWORD", pg.PasswordSecret)

	explicit := (&Postgres{Name: "db", PasswordSecret: "/k8s/shared/PW"}).WithDefaults("api")
	assert.Equal(t, "db", explicit.Name)
	assert.Equal(t, "db", explicit.Username)
	assert.Equal(t, "/k8s/shared/PW", explicit.PasswordSecret)
}
