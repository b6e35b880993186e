package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/environment"
	"github.com/cameronsjo/berth/internal/gitinfo"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/pipeline"
	"github.com/cameronsjo/berth/internal/secretstore"
	"github.com/cameronsjo/berth/internal/service"
	"github.com/cameronsjo/berth/internal/ui"
)

// errReported is returned once the failures have been printed.
var errReported = errors.New("failures reported above")

// errNoEnvironment is returned when neither --env nor defaultEnvironment is set.
var errNoEnvironment = errors.New("no environment given (use --env or set defaultEnvironment in berth.yaml)")

// project is everything loaded from the infra directory.
type project struct {
	cfg  *config.Config
	envs environment.Set
	defs []*service.Definition
}

// loadProject discovers the project root and loads environments and services.
func loadProject() (*project, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	envs, err := environment.LoadDir(cfg.EnvironmentsDir())
	if err != nil {
		return nil, fmt.Errorf("load environments: %w", err)
	}

	loader := &manifest.Loader{IncludesDir: cfg.IncludesDir(), Vars: cfg.Vars}
	defs, err := loader.LoadDir(cfg.ServicesDir())
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}

	logger.Debug().
		Str("root", cfg.Root).
		Int("environments", len(envs)).
		Int("services", len(defs)).
		Msg("Loaded project")

	return &project{cfg: cfg, envs: envs, defs: defs}, nil
}

// environment returns the named environment, falling back to the project default.
func (p *project) environment(name string) (*environment.Config, error) {
	if name == "" {
		name = p.cfg.DefaultEnvironment
	}
	if name == "" {
		return nil, errNoEnvironment
	}
	return p.envs.Get(name)
}

// secrets opens the project's secret store.
func (p *project) secrets(flag string) (secretstore.Store, error) {
	path := p.cfg.SecretsFile(flag)
	store, err := secretstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}
	logger.Debug().Str("path", path).Bool("sops", secretstore.IsSOPS(path)).Msg("Opened secret store")
	return store, nil
}

// batchFlags are shared by every command that runs the pipeline.
type batchFlags struct {
	env            string
	feature        string
	featureFromGit bool
	mocks          []string
	services       []string
	values         string
	concurrency    int
}

// register adds the batch flags to cmd.
func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.env, "env", "e", "", "Environment to render for")
	cmd.Flags().StringVar(&f.feature, "feature", "", "Render as a feature deployment")
	cmd.Flags().BoolVar(&f.featureFromGit, "feature-from-git", false, "Derive the feature from the current git branch")
	cmd.Flags().StringSliceVar(&f.mocks, "mock", nil, "Replace a referenced service with an HTTP stub (repeatable)")
	cmd.Flags().StringSliceVarP(&f.services, "service", "s", nil, "Service to render (repeatable, default all)")
	cmd.Flags().StringVar(&f.values, "values", "", "YAML file of extra values keyed by service name")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", pipeline.DefaultConcurrency, "Services rendered in parallel")
}

// options turns the flags into pipeline options.
func (f *batchFlags) options(p *project) (pipeline.Options, error) {
	opts := pipeline.Options{
		Services:    f.services,
		Feature:     f.feature,
		Mocks:       f.mocks,
		Concurrency: f.concurrency,
		Logger:      logger,
	}

	if f.featureFromGit {
		if f.feature != "" {
			return opts, fmt.Errorf("--feature and --feature-from-git are mutually exclusive")
		}
		feature, err := gitinfo.Feature(p.cfg.Root)
		if err != nil {
			return opts, fmt.Errorf("derive feature from git: %w", err)
		}
		logger.Info().Str("feature", feature).Msg("Using feature from current branch")
		opts.Feature = feature
	}

	if f.values != "" {
		values, err := loadValues(f.values)
		if err != nil {
			return opts, err
		}
		opts.Values = values
	}

	return opts, nil
}

// run renders the batch described by the flags. Per-service failures are
// printed and reported as errReported.
func (f *batchFlags) run(ctx context.Context, p *project) (*pipeline.Result, error) {
	env, err := p.environment(f.env)
	if err != nil {
		return nil, err
	}

	opts, err := f.options(p)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Run(ctx, env, p.defs, opts)
	if err != nil {
		return nil, err
	}

	if !result.OK() {
		ui.Errors(result.Errors)
		return result, errReported
	}
	return result, nil
}

// loadValues reads a values overlay file keyed by service name.
func loadValues(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	var values map[string]map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}
