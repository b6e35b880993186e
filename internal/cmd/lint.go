package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/pipeline"
	"github.com/cameronsjo/berth/internal/ui"
)

var (
	lintEnvs    []string
	lintFeature string
)

// lintCmd renders every service in every environment.
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate every service in every environment",
	Long: `Render every service declaration against every environment and report
all resolution and validation errors. Nothing is written.

Examples:
  berth lint                     # All environments
  berth lint -e dev -e prod      # Selected environments
  berth lint --feature check     # Also check the feature overlay`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringSliceVarP(&lintEnvs, "env", "e", nil, "Environment to lint (repeatable, default all)")
	lintCmd.Flags().StringVar(&lintFeature, "feature", "", "Lint as a feature deployment")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	envs := lintEnvs
	if len(envs) == 0 {
		envs = p.envs.Names()
	}

	ui.Header("Linting %d services in %d environments", len(p.defs), len(envs))
	fmt.Println()

	failed := 0
	for i, name := range envs {
		env, err := p.envs.Get(name)
		if err != nil {
			return err
		}

		ui.Step(i+1, "%s", name)
		result, err := pipeline.Run(cmd.Context(), env, p.defs, pipeline.Options{
			Feature: lintFeature,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("lint %s: %w", name, err)
		}

		if result.OK() {
			ui.Success("%s: %d services", name, len(result.ServiceDef))
			continue
		}
		failed++
		for _, e := range result.Errors {
			ui.Error("%s/%s", name, e)
		}
	}

	fmt.Println()
	if failed > 0 {
		ui.Error("%d of %d environments have errors", failed, len(envs))
		return errReported
	}
	ui.Success("All environments are valid")
	return nil
}
