// Package cmd provides the CLI commands for berth.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/logging"
	"github.com/cameronsjo/berth/internal/ui"
)

const version = "0.1.0"

var (
	rootDir   string
	logLevel  string
	logFormat string
	noColor   bool

	// logger is configured before any command runs.
	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "Render deployment values for every environment",
	Long: `berth - deployment values from typed service declarations

Service declarations under infra/services are resolved against an environment
under infra/environments and rendered into the values a Helm-style chart
consumes. Feature branches render into their own isolated namespace.

SETUP
  init [dir]              Create the infra/ project layout
  create <tmpl> <name>    Scaffold a new service declaration

RENDER
  render                  Render services for an environment
    --env, -e <name>      Environment (default from berth.yaml)
    --feature <name>      Render as a feature deployment
    --feature-from-git    Derive the feature from the current branch
    --mock <service>      Replace a service with an HTTP stub
    --values <file>       Merge per-service extra values
  urls                    List the public URLs of rendered services
  lint                    Render every service in every environment
  includes                List reusable declaration fragments
  doctor                  Check the project layout

SECRETS
  secrets get <path>
  secrets put <path> [value]
  secrets list [prefix]
  secrets delete-prefix <prefix>
  secrets check           Verify every referenced secret exists
  secrets clean-feature <feature>`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Configure(noColor)

		if rootDir != "" {
			if err := os.Setenv(config.EnvRoot, rootDir); err != nil {
				return err
			}
		}

		l, err := logging.New(logging.Options{Level: logLevel, Format: logFormat})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			ui.Red.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: search upward for infra/environments, or $BERTH_ROOT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $BERTH_LOG_LEVEL or warn)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format: console or json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate("berth version {{.Version}}\n")
}
