package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/fileutil"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/ui"
)

// initCmd creates the project layout.
var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create the infra/ project layout",
	Long: `Initialize a berth project with the required directory structure and
starter files.

This creates:
  - berth.yaml                    Project settings
  - infra/environments/dev.yaml   A first environment
  - infra/services/               Service declarations
  - infra/includes/               Reusable declaration fragments
  - infra/mocks/                  Stub definitions for mocked services
  - .gitignore                    Keeps infra/secrets.json out of git

If no directory is specified, the current directory is used. Existing files
are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// createCmd scaffolds a service declaration.
var createCmd = &cobra.Command{
	Use:   "create <template> <name>",
	Short: "Scaffold a new service declaration",
	Long: `Create a new service declaration from a template.

Available templates:
  web       HTTP service with public ingress
  api       Internal HTTP service with a database
  worker    Background worker without a port`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

// includesCmd lists reusable fragments.
var includesCmd = &cobra.Command{
	Use:   "includes",
	Short: "List reusable declaration fragments",
	Args:  cobra.NoArgs,
	RunE:  runListIncludes,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(includesCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	ui.Info("Creating project structure...")
	layout := config.New(absDir)
	for _, dir := range []string{
		layout.EnvironmentsDir(),
		layout.ServicesDir(),
		layout.IncludesDir(),
		layout.MocksDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(absDir, config.ProjectFile), starterProjectFile},
		{filepath.Join(layout.EnvironmentsDir(), "dev.yaml"), starterEnvironment},
		{filepath.Join(absDir, ".gitignore"), starterGitignore},
	}
	for _, f := range files {
		if err := createFileIfNotExists(f.path, f.content); err != nil {
			return err
		}
	}

	fmt.Println()
	ui.Success("Project ready in %s", absDir)
	fmt.Println("Next: berth create web frontend && berth render -e dev")
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	template, name := args[0], args[1]

	content, ok := serviceTemplates[template]
	if !ok {
		return fmt.Errorf("unknown template: %s (available: %v)", template, templateNames())
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	servicePath := filepath.Join(cfg.ServicesDir(), name+".yaml")
	if _, err := os.Stat(servicePath); err == nil {
		return fmt.Errorf("service already exists: %s", servicePath)
	}

	if err := os.MkdirAll(cfg.ServicesDir(), 0755); err != nil {
		return fmt.Errorf("create services directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(servicePath, []byte(fmt.Sprintf(content, name)), 0644); err != nil {
		return fmt.Errorf("write service file: %w", err)
	}

	ui.Success("Created service: %s", servicePath)
	fmt.Printf("Edit the file and run 'berth render -s %s' to check it\n", name)
	return nil
}

func runListIncludes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loader := &manifest.Loader{IncludesDir: cfg.IncludesDir()}
	includes, err := loader.ListIncludes()
	if err != nil {
		return fmt.Errorf("list includes: %w", err)
	}

	if len(includes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No includes found")
		return nil
	}
	return writeLines(cmd.OutOrStdout(), includes)
}

// createFileIfNotExists creates a file with the given content if it doesn't exist.
func createFileIfNotExists(filename, content string) error {
	if _, err := os.Stat(filename); err == nil {
		ui.Warning("%s already exists, skipping", filepath.Base(filename))
		return nil
	}

	if err := fileutil.WriteFileAtomic(filename, []byte(content), 0644); err != nil {
		return err
	}

	ui.Success("Created %s", filepath.Base(filename))
	return nil
}

func templateNames() []string {
	names := make([]string, 0, len(serviceTemplates))
	for name := range serviceTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// serviceTemplates are declarations with a single %[1]s for the service name.
var serviceTemplates = map[string]string{
	"web": `apiVersion: berth.io/v1
kind: Service
name: %[1]s
port: 8080
healthCheck:
  liveness:
    path: /health
  readiness:
    path: /ready
ingress:
  public:
    host: %[1]s
    paths: [/]
    public: true
`,
	"api": `apiVersion: berth.io/v1
kind: Service
name: %[1]s
port: 8080
healthCheck:
  liveness:
    path: /health
  readiness:
    path: /ready
postgres: {}
secrets:
  API_TOKEN: /k8s/%[1]s/API_TOKEN
`,
	"worker": `apiVersion: berth.io/v1
kind: Service
name: %[1]s
command: [node, worker.js]
replicas:
  min: 1
  max: 1
`,
}

const starterProjectFile = `# berth project settings
defaultEnvironment: dev

# Variables interpolated into every service declaration as ${name}.
vars: {}
`

const starterEnvironment = `name: dev
type: dev
domain: dev.example.com
dbHost: postgres.dev.internal
redisHost: redis.dev.internal
accountId: "000000000000"
region: us-east-1
defaultReplicas:
  min: 1
  max: 2
allowMocks: true
`

const starterGitignore = `# Plain-text secret store
infra/secrets.json
.berth/
`
