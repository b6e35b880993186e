package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/preflight"
	"github.com/cameronsjo/berth/internal/ui"
)

var doctorSecrets string

// doctorCmd checks the project layout.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the project layout before rendering",
	Long: `Check that environments, service declarations, the secret store and the
git checkout are where berth expects them. Errors block rendering; warnings
only disable optional features.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorSecrets, "secrets", "", "Secret store file to check")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ui.Header("Checking %s", cfg.Root)
	report := preflight.Run(cfg, doctorSecrets)

	for _, c := range report.Passed {
		ui.Success("%s: %s", c.Name, c.Message)
	}
	for _, c := range report.Warnings {
		ui.Warning("%s: %s", c.Name, c.Message)
	}
	for _, c := range report.Errors {
		ui.Error("%s: %s", c.Name, c.Message)
	}

	if !report.OK() {
		return errReported
	}
	return nil
}
