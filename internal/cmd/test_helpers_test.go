package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/berth/internal/config"
)

// resetFlags restores every flag of cmd and its subcommands to its default so
// cobra state doesn't leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCmd executes the root command with the given args and returns the output.
// This handles proper state reset between test executions.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	// Important: Set args BEFORE setting output buffers
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// newProject writes files (relative path to content) under a temporary
// project root and points BERTH_ROOT at it.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "infra", "environments"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "infra", "services"), 0755))
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	t.Setenv(config.EnvRoot, root)
	t.Setenv(config.EnvSecretsFile, "")
	return root
}

const devEnvironment = `name: dev
type: dev
domain: dev.example.com
dbHost: db.dev.internal
accountId: "123456789012"
region: us-east-1
defaultReplicas:
  min: 1
  max: 3
featureFlags: [beta]
allowMocks: true
`

const prodEnvironment = `name: prod
type: prod
domain: example.com
dbHost: db.prod.internal
accountId: "210987654321"
region: us-east-1
defaultReplicas:
  min: 2
  max: 6
`

const apiService = `apiVersion: berth.io/v1
kind: Service
name: api
port: 3000
resources:
  limits:
    memory: 512Mi
`

const webService = `apiVersion: berth.io/v1
kind: Service
name: web
port: 8080
healthCheck:
  liveness:
    path: /health
env:
  LOG_LEVEL: info
  API_URL: {ref: api}
secrets:
  TOKEN: /k8s/web/TOKEN
ingress:
  public:
    host: www
    paths: [/]
    public: true
`

// sampleProject is a dev/prod project with api and web services.
func sampleProject(t *testing.T) string {
	t.Helper()
	return newProject(t, map[string]string{
		"infra/environments/dev.yaml":  devEnvironment,
		"infra/environments/prod.yaml": prodEnvironment,
		"infra/services/api.yaml":      apiService,
		"infra/services/web.yaml":      webService,
	})
}
