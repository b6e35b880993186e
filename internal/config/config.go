// Package config handles project discovery and configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional project settings file at the root.
const ProjectFile = "berth.yaml"

// Environment variables that override discovery.
const (
	EnvRoot        = "BERTH_ROOT"
	EnvSecretsFile = "BERTH_SECRETS_FILE"
)

// ErrRootNotFound is returned when no project root can be located.
var ErrRootNotFound = errors.New("project root not found (no infra/environments directory)")

// Config holds the berth project layout.
type Config struct {
	// Root is the project root directory (contains infra/environments).
	Root string `yaml:"-"`

	// InfraDir is the path to the infra directory.
	InfraDir string `yaml:"-"`

	// DefaultEnvironment is used when no environment is given.
	DefaultEnvironment string `yaml:"defaultEnvironment"`

	// Vars are interpolated into every service declaration.
	Vars map[string]any `yaml:"vars"`
}

// FindRoot returns BERTH_ROOT when set, otherwise searches upward from the
// current directory for a directory containing infra/environments.
func FindRoot() (string, error) {
	if root := os.Getenv(EnvRoot); root != "" {
		if !isDir(filepath.Join(root, "infra", "environments")) {
			return "", fmt.Errorf("%s=%s: %w", EnvRoot, root, ErrRootNotFound)
		}
		return filepath.Abs(root)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if isDir(filepath.Join(dir, "infra", "environments")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrRootNotFound
}

// Load finds the project root and returns a Config.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	cfg := New(root)
	if err := cfg.loadProjectFile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProjectFile reads berth.yaml when present.
func (c *Config) loadProjectFile() error {
	path := filepath.Join(c.Root, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// New returns the layout rooted at root.
func New(root string) *Config {
	return &Config{
		Root:     root,
		InfraDir: filepath.Join(root, "infra"),
	}
}

// EnvironmentsDir returns the path to the environment configs.
func (c *Config) EnvironmentsDir() string {
	return filepath.Join(c.InfraDir, "environments")
}

// ServicesDir returns the path to the service declarations.
func (c *Config) ServicesDir() string {
	return filepath.Join(c.InfraDir, "services")
}

// IncludesDir returns the path to the reusable declaration fragments.
func (c *Config) IncludesDir() string {
	return filepath.Join(c.InfraDir, "includes")
}

// MocksDir returns the path to the mock definitions.
func (c *Config) MocksDir() string {
	return filepath.Join(c.InfraDir, "mocks")
}

// SecretsFile returns the secret store file. An explicit flag value wins,
// then BERTH_SECRETS_FILE, then infra/secrets.json.
func (c *Config) SecretsFile(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvSecretsFile); env != "" {
		return env
	}
	return filepath.Join(c.InfraDir, "secrets.json")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
