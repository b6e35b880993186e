package cmd

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/cameronsjo/berth/internal/render"
)

var update = flag.Bool("update", false, "update golden files")

// renderJSON runs render and decodes the batch result.
func renderJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	output, err := executeCmd(t, append([]string{"render"}, args...)...)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result), output)
	return result
}

func manifestOf(t *testing.T, result map[string]any, name string) map[string]any {
	t.Helper()
	defs, ok := result["serviceDef"].(map[string]any)
	require.True(t, ok, "serviceDef missing")
	m, ok := defs[name].(map[string]any)
	require.True(t, ok, "no manifest for %s", name)
	return m
}

func TestRenderCmd_Golden(t *testing.T) {
	sampleProject(t)

	output, err := executeCmd(t, "render", "-e", "dev")
	require.NoError(t, err)

	golden := filepath.Join("testdata", "render_dev.golden.json")
	if *update {
		require.NoError(t, os.WriteFile(golden, []byte(output), 0644))
	}

	want, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), output)
}

func TestRenderCmd_DefaultEnvironment(t *testing.T) {
	root := sampleProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "berth.yaml"), []byte("defaultEnvironment: prod\n"), 0644))

	result := renderJSON(t)
	api := manifestOf(t, result, "api")
	assert.Equal(t, "210987654321.dkr.ecr.us-east-1.amazonaws.com/api", api["image"].(map[string]any)["repository"])
}

func TestRenderCmd_NoEnvironment(t *testing.T) {
	sampleProject(t)

	_, err := executeCmd(t, "render")
	assert.ErrorIs(t, err, errNoEnvironment)
}

func TestRenderCmd_SelectedServices(t *testing.T) {
	sampleProject(t)

	result := renderJSON(t, "-e", "dev", "-s", "api")
	defs := result["serviceDef"].(map[string]any)
	assert.Len(t, defs, 1)
	assert.Contains(t, defs, "api")
}

func TestRenderCmd_Feature(t *testing.T) {
	sampleProject(t)

	result := renderJSON(t, "-e", "dev", "--feature", "checkout")
	web := manifestOf(t, result, "web")

	assert.Equal(t, "feature-checkout", web["namespace"])
	hosts := web["ingress"].(map[string]any)["public"].(map[string]any)["hosts"].([]any)
	assert.Equal(t, "checkout-www.dev.example.com", hosts[0].(map[string]any)["host"])
	assert.Equal(t, "http://api.feature-checkout.svc.cluster.local", web["env"].(map[string]any)["API_URL"])

	replicas := web["replicaCount"].(map[string]any)
	assert.EqualValues(t, 1, replicas["min"])
	assert.EqualValues(t, 2, replicas["max"])
}

func TestRenderCmd_FeatureFromGit(t *testing.T) {
	root := sampleProject(t)

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("infra")
	require.NoError(t, err)
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("feature/PAY-12_cart"),
		Create: true,
	}))

	result := renderJSON(t, "-e", "dev", "--feature-from-git")
	assert.Equal(t, "feature-pay-12-cart", manifestOf(t, result, "api")["namespace"])

	_, err = executeCmd(t, "render", "-e", "dev", "--feature-from-git", "--feature", "x")
	assert.Error(t, err)
}

func TestRenderCmd_InvalidFeature(t *testing.T) {
	sampleProject(t)

	_, err := executeCmd(t, "render", "-e", "dev", "--feature", "Not_Valid")
	assert.Error(t, err)
}

func TestRenderCmd_Mock(t *testing.T) {
	sampleProject(t)

	result := renderJSON(t, "-e", "dev", "-s", "web", "--mock", "api")
	web := manifestOf(t, result, "web")
	assert.Equal(t, "http://mock-api.mocks.svc.cluster.local", web["env"].(map[string]any)["API_URL"])

	mock := manifestOf(t, result, render.MockName("api"))
	assert.Equal(t, "mocks", mock["namespace"])

	_, err := executeCmd(t, "render", "-e", "prod", "-s", "web", "--mock", "api")
	assert.ErrorIs(t, err, render.ErrMocksNotAllowed)
}

func TestRenderCmd_Values(t *testing.T) {
	root := sampleProject(t)
	values := filepath.Join(root, "values.yaml")
	require.NoError(t, os.WriteFile(values, []byte("web:\n  region: eu\n  tags: [a, b]\n"), 0644))

	result := renderJSON(t, "-e", "dev", "--values", values)
	extra := manifestOf(t, result, "web")["extra"].(map[string]any)
	assert.Equal(t, "eu", extra["region"])
	assert.Equal(t, []any{"a", "b"}, extra["tags"])
	assert.NotContains(t, manifestOf(t, result, "api"), "extra")

	_, err := executeCmd(t, "render", "-e", "dev", "--values", filepath.Join(root, "missing.yaml"))
	assert.Error(t, err)
}

func TestRenderCmd_Failure(t *testing.T) {
	newProject(t, map[string]string{
		"infra/environments/dev.yaml": devEnvironment,
		"infra/services/web.yaml": `name: web
env:
  KEY: {prod: x}
`,
	})

	output, err := executeCmd(t, "render", "-e", "dev")
	assert.ErrorIs(t, err, errReported)
	assert.Empty(t, output)
}

func TestRenderCmd_YAML(t *testing.T) {
	sampleProject(t)

	output, err := executeCmd(t, "render", "-e", "dev", "-s", "api", "-o", "yaml")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &result))
	assert.Equal(t, "success", result["type"])
	assert.Contains(t, output, "targetPort: 3000")
}

func TestRenderCmd_UnknownOutput(t *testing.T) {
	sampleProject(t)

	_, err := executeCmd(t, "render", "-e", "dev", "-o", "toml")
	assert.Error(t, err)
}

func TestRenderCmd_OutFile(t *testing.T) {
	root := sampleProject(t)
	out := filepath.Join(root, "values.json")

	output, err := executeCmd(t, "render", "-e", "dev", "--out", out)
	require.NoError(t, err)
	assert.Empty(t, output)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "render_dev.golden.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(data))
}

func TestRenderCmd_UnknownEnvironment(t *testing.T) {
	sampleProject(t)

	_, err := executeCmd(t, "render", "-e", "staging")
	assert.Error(t, err)
}

func TestURLsCmd(t *testing.T) {
	sampleProject(t)

	output, err := executeCmd(t, "urls", "-e", "dev")
	require.NoError(t, err)
	assert.Equal(t, "web\thttps://www.dev.example.com/\n", output)

	output, err = executeCmd(t, "urls", "-e", "prod", "--feature", "cart")
	require.NoError(t, err)
	assert.Equal(t, "web\thttps://cart-www.example.com/\n", output)
}

func TestLintCmd(t *testing.T) {
	sampleProject(t)

	_, err := executeCmd(t, "lint")
	assert.NoError(t, err)

	_, err = executeCmd(t, "lint", "-e", "dev", "--feature", "check")
	assert.NoError(t, err)

	_, err = executeCmd(t, "lint", "-e", "qa")
	assert.Error(t, err)
}

func TestLintCmd_Failure(t *testing.T) {
	newProject(t, map[string]string{
		"infra/environments/dev.yaml":  devEnvironment,
		"infra/environments/prod.yaml": prodEnvironment,
		"infra/services/web.yaml": `name: web
env:
  KEY: {dev: x}
`,
	})

	_, err := executeCmd(t, "lint", "-e", "dev")
	assert.NoError(t, err)

	_, err = executeCmd(t, "lint")
	assert.ErrorIs(t, err, errReported)
}
