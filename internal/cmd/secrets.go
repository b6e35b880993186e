package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cameronsjo/berth/internal/overlay"
	"github.com/cameronsjo/berth/internal/pipeline"
	"github.com/cameronsjo/berth/internal/secretstore"
	"github.com/cameronsjo/berth/internal/service"
	"github.com/cameronsjo/berth/internal/ui"
)

var (
	secretsFile  string
	secretsYes   bool
	secretsCheck batchFlags
)

// secretsCmd groups the secret store commands.
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Read and write the secret store",
	Long: `Manage the values behind the secret paths service declarations reference.

The store is infra/secrets.json unless --secrets or BERTH_SECRETS_FILE point
elsewhere. Files named *.sops.yaml or *.sops.json are decrypted with SOPS
and are read-only.`,
}

var secretsGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print a secret value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSecretStore(func(store secretstore.Store) error {
			v, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		})
	},
}

var secretsPutCmd = &cobra.Command{
	Use:   "put <path> [value]",
	Short: "Store a secret value",
	Long: `Store a secret value. Without a value argument the value is read from
stdin, without echo when stdin is a terminal.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("secret path must be absolute: %s", path)
		}

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			v, err := readSecretValue(cmd.InOrStdin())
			if err != nil {
				return err
			}
			value = v
		}

		return withSecretStore(func(store secretstore.Store) error {
			if err := store.Put(cmd.Context(), path, value); err != nil {
				return fmt.Errorf("put %s: %w", path, err)
			}
			ui.Success("Stored %s", path)
			return nil
		})
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List secret paths",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withSecretStore(func(store secretstore.Store) error {
			paths, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			return writeLines(cmd.OutOrStdout(), paths)
		})
	},
}

var secretsDeletePrefixCmd = &cobra.Command{
	Use:   "delete-prefix <prefix>",
	Short: "Delete every secret under a path prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deletePrefix(cmd.Context(), args[0])
	},
}

var secretsCleanFeatureCmd = &cobra.Command{
	Use:   "clean-feature <feature>",
	Short: "Delete the secrets of a feature deployment",
	Long: `Delete every secret a feature deployment owns, i.e. every path under
/k8s/feature-<feature>-. Run this when the feature branch is merged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deletePrefix(cmd.Context(), featureSecretPrefix(args[0]))
	},
}

var secretsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every referenced secret exists",
	Long: `Render services and look up every secret path the rendered values
reference, including init container secrets. Missing paths are listed and the
command fails.

Examples:
  berth secrets check -e prod
  berth secrets check -e dev --feature checkout`,
	Args: cobra.NoArgs,
	RunE: runSecretsCheck,
}

func init() {
	secretsCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "Secret store file (default $BERTH_SECRETS_FILE or infra/secrets.json)")
	secretsDeletePrefixCmd.Flags().BoolVarP(&secretsYes, "yes", "y", false, "Do not ask for confirmation")
	secretsCleanFeatureCmd.Flags().BoolVarP(&secretsYes, "yes", "y", false, "Do not ask for confirmation")
	secretsCheck.register(secretsCheckCmd)

	secretsCmd.AddCommand(secretsGetCmd)
	secretsCmd.AddCommand(secretsPutCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsDeletePrefixCmd)
	secretsCmd.AddCommand(secretsCleanFeatureCmd)
	secretsCmd.AddCommand(secretsCheckCmd)
	rootCmd.AddCommand(secretsCmd)
}

// withSecretStore opens the project's secret store and runs fn with it.
func withSecretStore(fn func(secretstore.Store) error) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	store, err := p.secrets(secretsFile)
	if err != nil {
		return err
	}
	return fn(store)
}

// featureSecretPrefix returns the path prefix shared by a feature's secrets.
func featureSecretPrefix(feature string) string {
	return overlay.SecretPath(feature, service.SecretPrefix)
}

func deletePrefix(ctx context.Context, prefix string) error {
	if !strings.HasPrefix(prefix, "/") || prefix == "/" || prefix == service.SecretPrefix {
		return fmt.Errorf("refusing to delete broad prefix %q", prefix)
	}

	return withSecretStore(func(store secretstore.Store) error {
		paths, err := store.List(ctx, prefix)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			ui.Info("No secrets under %s", prefix)
			return nil
		}

		if !secretsYes {
			ok, err := promptYesNo(fmt.Sprintf("Delete %d secrets under %s?", len(paths), prefix))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		n, err := store.DeleteByPrefix(ctx, prefix)
		if err != nil {
			return fmt.Errorf("delete %s: %w", prefix, err)
		}
		logger.Info().Str("prefix", prefix).Int("deleted", n).Msg("Deleted secrets")
		ui.Success("Deleted %d secrets under %s", n, prefix)
		return nil
	})
}

func runSecretsCheck(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	result, err := secretsCheck.run(cmd.Context(), p)
	if err != nil {
		return err
	}

	store, err := p.secrets(secretsFile)
	if err != nil {
		return err
	}

	refs := secretRefs(result)
	missing := 0
	for _, path := range sortedKeys(refs) {
		_, err := store.Get(cmd.Context(), path)
		switch {
		case errors.Is(err, secretstore.ErrNotFound):
			missing++
			ui.Error("%s (used by %s)", path, strings.Join(refs[path], ", "))
		case err != nil:
			return fmt.Errorf("get %s: %w", path, err)
		}
	}

	if missing > 0 {
		ui.Error("%d of %d secrets missing", missing, len(refs))
		return errReported
	}
	ui.Success("All %d secrets present", len(refs))
	return nil
}

// secretRefs maps each referenced secret path to the services using it.
func secretRefs(result *pipeline.Result) map[string][]string {
	refs := make(map[string][]string)
	add := func(name string, secrets map[string]string) {
		for _, path := range secrets {
			if len(refs[path]) == 0 || refs[path][len(refs[path])-1] != name {
				refs[path] = append(refs[path], name)
			}
		}
	}

	for _, name := range sortedKeys(result.ServiceDef) {
		m := result.ServiceDef[name]
		add(name, m.Secrets)
		if m.InitContainer != nil {
			add(name, m.InitContainer.Secrets)
		}
	}
	return refs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readSecretValue reads a single value from in, without echo on a terminal.
func readSecretValue(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Value: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read value: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptYesNo asks the user a yes/no question.
func promptYesNo(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("cannot prompt for input: stdin is not a TTY. Use --yes to skip the prompt")
	}

	fmt.Printf("%s [y/N] ", question)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
