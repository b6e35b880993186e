package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Execute(t *testing.T) {
	t.Run("root command shows help", func(t *testing.T) {
		_, err := executeCmd(t)
		assert.NoError(t, err)
	})

	t.Run("help flag", func(t *testing.T) {
		output, err := executeCmd(t, "--help")
		assert.NoError(t, err)
		assert.Contains(t, output, "berth")
		assert.Contains(t, output, "render")
	})

	t.Run("version flag", func(t *testing.T) {
		output, err := executeCmd(t, "--version")
		assert.NoError(t, err)
		assert.Contains(t, output, "berth version "+version)
	})

	t.Run("invalid log level", func(t *testing.T) {
		sampleProject(t)
		_, err := executeCmd(t, "--log-level", "loud", "lint")
		assert.Error(t, err)
	})
}

func TestRootCmd_Structure(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{"render", "urls", "lint", "secrets", "init", "create", "includes", "doctor"} {
		assert.Contains(t, commandNames, name)
	}

	secretNames := make([]string, 0)
	for _, cmd := range secretsCmd.Commands() {
		secretNames = append(secretNames, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"get", "put", "list", "delete-prefix", "clean-feature", "check"}, secretNames)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"root", "log-level", "log-format", "no-color"} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}
