package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/berth/internal/config"
)

func names(checks []Check) []string {
	out := make([]string, 0, len(checks))
	for _, c := range checks {
		out = append(out, c.Name)
	}
	return out
}

func newLayout(t *testing.T, dirs ...string) *config.Config {
	t.Helper()
	cfg := config.New(t.TempDir())
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(cfg.InfraDir, d), 0755))
	}
	return cfg
}

func writeEnv(t *testing.T, cfg *config.Config, name string) {
	t.Helper()
	content := "name: " + name + "\ndomain: " + name + ".example.com\ndefaultReplicas: {min: 1, max: 1}\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.EnvironmentsDir(), name+".yaml"), []byte(content), 0644))
}

func TestRun_CompleteProject(t *testing.T) {
	t.Setenv(config.EnvSecretsFile, "")
	cfg := newLayout(t, "environments", "services", "includes", "mocks")
	writeEnv(t, cfg, "dev")
	cfg.DefaultEnvironment = "dev"
	require.NoError(t, os.WriteFile(cfg.SecretsFile(""), []byte("{}"), 0600))

	report := Run(cfg, "")

	assert.True(t, report.OK())
	assert.Empty(t, report.Errors)
	assert.Subset(t, names(report.Passed), []string{"environments", "default environment", "services", "includes", "mocks", "secrets"})
	// The temp dir is not a git repository.
	assert.Equal(t, []string{"git"}, names(report.Warnings))
}

func TestRun_MissingPieces(t *testing.T) {
	t.Setenv(config.EnvSecretsFile, "")
	cfg := newLayout(t, "environments")

	report := Run(cfg, "")

	assert.False(t, report.OK())
	assert.ElementsMatch(t, []string{"environments", "services"}, names(report.Errors))
	assert.Subset(t, names(report.Warnings), []string{"includes", "mocks", "secrets"})
}

func TestRun_UnknownDefaultEnvironment(t *testing.T) {
	cfg := newLayout(t, "environments", "services")
	writeEnv(t, cfg, "dev")
	cfg.DefaultEnvironment = "prod"

	report := Run(cfg, "")

	assert.Contains(t, names(report.Errors), "default environment")
}

func TestRun_NoDefaultEnvironment(t *testing.T) {
	cfg := newLayout(t, "environments", "services")
	writeEnv(t, cfg, "dev")

	report := Run(cfg, "")

	assert.True(t, report.OK())
	assert.Contains(t, names(report.Warnings), "default environment")
}

func TestCheckSecrets_SOPS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.sops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x: y\n"), 0600))

	t.Run("no key", func(t *testing.T) {
		t.Setenv(EnvAgeKey, "")
		t.Setenv(EnvAgeKeyFile, filepath.Join(dir, "missing.txt"))

		r := &Report{}
		checkSecrets(r, path)
		assert.Equal(t, []string{"secrets"}, names(r.Warnings))
	})

	t.Run("key in environment", func(t *testing.T) {
		t.Setenv(EnvAgeKey, "AGE-SECRET-KEY-1")

		r := &Report{}
		checkSecrets(r, path)
		assert.Empty(t, r.Warnings)
		assert.Contains(t, r.Passed[0].Message, EnvAgeKey)
	})

	t.Run("key file", func(t *testing.T) {
		keyFile := filepath.Join(dir, "keys.txt")
		require.NoError(t, os.WriteFile(keyFile, []byte("AGE-SECRET-KEY-1\n"), 0600))
		t.Setenv(EnvAgeKey, "")
		t.Setenv(EnvAgeKeyFile, keyFile)

		r := &Report{}
		checkSecrets(r, path)
		assert.Empty(t, r.Warnings)
		assert.Contains(t, r.Passed[0].Message, keyFile)
	})
}
