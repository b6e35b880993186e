// Package preflight checks that a project is laid out the way the loaders
// expect before anything is rendered.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/environment"
	"github.com/cameronsjo/berth/internal/gitinfo"
	"github.com/cameronsjo/berth/internal/secretstore"
)

// SOPS age key locations, in lookup order.
const (
	EnvAgeKey     = "SOPS_AGE_KEY"
	EnvAgeKeyFile = "SOPS_AGE_KEY_FILE"
)

// Check is one named result.
type Check struct {
	Name    string
	Message string
}

// Report collects check results. Errors block rendering, warnings only
// disable optional features.
type Report struct {
	Passed   []Check
	Warnings []Check
	Errors   []Check
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) pass(name, format string, args ...any) {
	r.Passed = append(r.Passed, Check{Name: name, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warn(name, format string, args ...any) {
	r.Warnings = append(r.Warnings, Check{Name: name, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) fail(name, format string, args ...any) {
	r.Errors = append(r.Errors, Check{Name: name, Message: fmt.Sprintf(format, args...)})
}

// Run checks the project at cfg. secretsFlag is the --secrets value, if any.
func Run(cfg *config.Config, secretsFlag string) *Report {
	r := &Report{}

	checkEnvironments(r, cfg)
	checkDir(r, "services", cfg.ServicesDir(), true)
	checkDir(r, "includes", cfg.IncludesDir(), false)
	checkDir(r, "mocks", cfg.MocksDir(), false)
	checkSecrets(r, cfg.SecretsFile(secretsFlag))
	checkGit(r, cfg.Root)

	return r
}

func checkEnvironments(r *Report, cfg *config.Config) {
	envs, err := environment.LoadDir(cfg.EnvironmentsDir())
	if err != nil {
		r.fail("environments", "%v", err)
		return
	}
	if len(envs) == 0 {
		r.fail("environments", "no environments in %s", cfg.EnvironmentsDir())
		return
	}
	r.pass("environments", "%v", envs.Names())

	if cfg.DefaultEnvironment == "" {
		r.warn("default environment", "not set in %s; every command needs --env", config.ProjectFile)
		return
	}
	if !slices.Contains(envs.Names(), cfg.DefaultEnvironment) {
		r.fail("default environment", "%q is not one of %v", cfg.DefaultEnvironment, envs.Names())
		return
	}
	r.pass("default environment", "%s", cfg.DefaultEnvironment)
}

func checkDir(r *Report, name, path string, required bool) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		r.pass(name, "%s", path)
	case required:
		r.fail(name, "directory not found: %s", path)
	default:
		r.warn(name, "directory not found: %s", path)
	}
}

func checkSecrets(r *Report, path string) {
	if _, err := os.Stat(path); err != nil {
		r.warn("secrets", "no secret store at %s", path)
		return
	}
	if !secretstore.IsSOPS(path) {
		r.pass("secrets", "%s", path)
		return
	}

	if key, ok := ageKey(); ok {
		r.pass("secrets", "%s (age key from %s)", path, key)
		return
	}
	r.warn("secrets", "%s is SOPS encrypted but no age key was found (set %s or %s)", path, EnvAgeKey, EnvAgeKeyFile)
}

// ageKey reports where SOPS will find an age identity.
func ageKey() (string, bool) {
	if os.Getenv(EnvAgeKey) != "" {
		return EnvAgeKey, true
	}
	if file := os.Getenv(EnvAgeKeyFile); file != "" {
		if _, err := os.Stat(file); err == nil {
			return file, true
		}
		return "", false
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	file := filepath.Join(dir, "sops", "age", "keys.txt")
	if _, err := os.Stat(file); err == nil {
		return file, true
	}
	return "", false
}

func checkGit(r *Report, root string) {
	branch, err := gitinfo.CurrentBranch(root)
	if err != nil {
		r.warn("git", "--feature-from-git unavailable: %v", err)
		return
	}
	feature, err := gitinfo.FeatureName(branch)
	switch {
	case errors.Is(err, gitinfo.ErrMainBranch):
		r.pass("git", "on %s", branch)
	case err != nil:
		r.warn("git", "branch %s has no usable feature name: %v", branch, err)
	default:
		r.pass("git", "on %s (feature %s)", branch, feature)
	}
}
