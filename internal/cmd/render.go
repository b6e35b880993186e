package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/cameronsjo/berth/internal/fileutil"
	"github.com/cameronsjo/berth/internal/pipeline"
	"github.com/cameronsjo/berth/internal/ui"
)

// Output formats for rendered values.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	renderFlags  batchFlags
	renderOutput string
	renderFile   string
)

// renderCmd renders services into deployment values.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render services for an environment",
	Long: `Resolve, validate and render service declarations for one environment.

The batch result is written as JSON (or YAML with -o yaml). When any service
fails, every error is printed and nothing is written.

Examples:
  berth render -e dev                       # All services for dev
  berth render -e dev -s api -s web         # Only api and web
  berth render -e dev --feature checkout    # Feature deployment
  berth render -e dev --feature-from-git    # Feature from the current branch
  berth render -e dev -s web --mock api     # Stub out api
  berth render -e prod --values prod.yaml   # Merge extra values
  berth render -e prod -o yaml --out values.yaml`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", outputJSON, "Output format: json or yaml")
	renderCmd.Flags().StringVar(&renderFile, "out", "", "Write to file instead of stdout")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderOutput != outputJSON && renderOutput != outputYAML {
		return fmt.Errorf("unknown output format %q (want %s or %s)", renderOutput, outputJSON, outputYAML)
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	warnMissingMocks(p, renderFlags.mocks)

	result, err := renderFlags.run(cmd.Context(), p)
	if err != nil {
		return err
	}

	data, err := encodeResult(result, renderOutput)
	if err != nil {
		return err
	}

	if renderFile == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := fileutil.WriteFileAtomic(renderFile, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", renderFile, err)
	}
	ui.Success("Rendered %d services to %s", len(result.ServiceDef), renderFile)
	return nil
}

// encodeResult serializes the batch result in the requested format.
func encodeResult(result *pipeline.Result, format string) ([]byte, error) {
	if format == outputYAML {
		data, err := yaml.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// warnMissingMocks flags mocked services without a stub definition under
// infra/mocks. The stub still renders; it just has nothing to serve.
func warnMissingMocks(p *project, mocks []string) {
	for _, name := range mocks {
		path := filepath.Join(p.cfg.MocksDir(), name+".json")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			ui.Warning("No mock definition for %s (%s)", name, path)
		}
	}
}

// writeLines prints one line per entry.
func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
