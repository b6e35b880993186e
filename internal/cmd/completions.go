package cmd

import (
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/config"
)

// completeFileNames completes the YAML file names in the directory chosen by
// dir, without their extension.
func completeFileNames(dir func(*config.Config) string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := config.Load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		entries, err := os.ReadDir(dir(cfg))
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".yaml") {
				continue
			}
			name = strings.TrimSuffix(name, ".yml")
			name = strings.TrimSuffix(name, ".yaml")
			if strings.HasPrefix(name, toComplete) {
				names = append(names, name)
			}
		}

		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

var (
	completeEnvironmentNames = completeFileNames((*config.Config).EnvironmentsDir)
	completeServiceNames     = completeFileNames((*config.Config).ServicesDir)
)

// completeTemplateNames completes create template names.
func completeTemplateNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Don't complete if we already have a template argument
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, t := range templateNames() {
		if strings.HasPrefix(t, toComplete) {
			names = append(names, t)
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

var registerOnce sync.Once

// registerCompletions registers all dynamic completions for commands.
func registerCompletions() {
	registerOnce.Do(func() {
		createCmd.ValidArgsFunction = completeTemplateNames

		for _, c := range []*cobra.Command{renderCmd, urlsCmd, lintCmd, secretsCheckCmd} {
			_ = c.RegisterFlagCompletionFunc("env", completeEnvironmentNames)
		}
		for _, c := range []*cobra.Command{renderCmd, urlsCmd, secretsCheckCmd} {
			_ = c.RegisterFlagCompletionFunc("service", completeServiceNames)
			_ = c.RegisterFlagCompletionFunc("mock", completeServiceNames)
		}
	})
}

func init() {
	// Flags are registered in other init functions; defer until execution.
	cobra.OnInitialize(registerCompletions)
}
