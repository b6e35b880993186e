package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCompleteTemplateNames(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		toComplete string
		want       []string
	}{
		{
			name:       "empty prefix returns all templates",
			toComplete: "",
			want:       []string{"api", "web", "worker"},
		},
		{
			name:       "w prefix returns web and worker",
			toComplete: "w",
			want:       []string{"web", "worker"},
		},
		{
			name:       "already has arg returns nothing",
			args:       []string{"web"},
			toComplete: "",
			want:       nil,
		},
		{
			name:       "no match returns empty",
			toComplete: "xyz",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotDir := completeTemplateNames(nil, tt.args, tt.toComplete)
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, gotDir)
		})
	}
}

func TestCompleteProjectNames(t *testing.T) {
	sampleProject(t)

	got, dir := completeEnvironmentNames(nil, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, dir)
	assert.ElementsMatch(t, []string{"dev", "prod"}, got)

	got, _ = completeEnvironmentNames(nil, nil, "p")
	assert.Equal(t, []string{"prod"}, got)

	got, _ = completeServiceNames(nil, nil, "")
	assert.ElementsMatch(t, []string{"api", "web"}, got)
}

func TestCompleteProjectNames_NoProject(t *testing.T) {
	t.Setenv("BERTH_ROOT", t.TempDir())

	_, dir := completeServiceNames(nil, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveError, dir)
}

func TestRegisterCompletions(t *testing.T) {
	assert.NotPanics(t, func() {
		registerCompletions()
		registerCompletions()
	})

	assert.NotNil(t, createCmd.ValidArgsFunction)
}
