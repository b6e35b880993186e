package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/render"
)

var urlsFlags batchFlags

// urlsCmd lists the URLs of rendered services.
var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "List the public URLs of rendered services",
	Long: `Render services and print every ingress URL, one per line, prefixed with
the service name.

Examples:
  berth urls -e qa
  berth urls -e qa --feature checkout -s web`,
	Args: cobra.NoArgs,
	RunE: runURLs,
}

func init() {
	urlsFlags.register(urlsCmd)
	rootCmd.AddCommand(urlsCmd)
}

func runURLs(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	result, err := urlsFlags.run(cmd.Context(), p)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(result.ServiceDef))
	for name := range result.ServiceDef {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		for _, u := range render.URLs(result.ServiceDef[name]) {
			lines = append(lines, name+"\t"+u)
		}
	}
	return writeLines(cmd.OutOrStdout(), lines)
}
