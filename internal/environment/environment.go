// Package environment describes the named deployment targets services are
// rendered for.
package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment types.
const (
	TypeDev     = "dev"
	TypeStaging = "staging"
	TypeProd    = "prod"
	TypeLocal   = "local"
)

// Default ingress classes used when an environment does not configure its own.
const (
	DefaultPublicIngressClass   = "nginx-external-alb"
	DefaultInternalIngressClass = "nginx-internal-alb"
)

var (
	// ErrMissingName indicates an environment without a name.
	ErrMissingName = errors.New("missing environment name")

	// ErrMissingDomain indicates an environment without a domain suffix.
	ErrMissingDomain = errors.New("missing environment domain")

	// ErrInvalidReplicas indicates default replica bounds with min > max.
	ErrInvalidReplicas = errors.New("invalid default replicas")

	// ErrUnknownEnvironment indicates a lookup for an environment that was not loaded.
	ErrUnknownEnvironment = errors.New("unknown environment")
)

// Replicas bounds the number of pods for a service.
type Replicas struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// IngressClass names the routing class for each ingress visibility.
type IngressClass struct {
	Public   string `yaml:"public,omitempty"`
	Internal string `yaml:"internal,omitempty"`
}

// Config holds everything the resolver and renderer need to know about a
// deployment target.
type Config struct {
	// Name is the key per-environment values are selected by (e.g. "dev").
	Name string `yaml:"name"`

	// Type is one of dev, staging, prod or local.
	Type string `yaml:"type,omitempty"`

	// Domain is the suffix appended to short ingress hosts.
	Domain string `yaml:"domain"`

	// DBHost is the primary (writer) database endpoint.
	DBHost string `yaml:"dbHost,omitempty"`

	// DBReplicaHost is the reader endpoint. Falls back to DBHost when empty.
	DBReplicaHost string `yaml:"dbReplicaHost,omitempty"`

	// RedisHost is the default cache endpoint.
	RedisHost string `yaml:"redisHost,omitempty"`

	AccountID string `yaml:"accountId,omitempty"`
	Region    string `yaml:"region,omitempty"`

	// ImageRegistry overrides the registry derived from AccountID and Region.
	ImageRegistry string `yaml:"imageRegistry,omitempty"`

	DefaultReplicas Replicas `yaml:"defaultReplicas"`

	// FeatureFlags lists server-side features enabled in this environment.
	FeatureFlags []string `yaml:"featureFlags,omitempty"`

	// Feature is the active feature-branch name; empty for permanent environments.
	Feature string `yaml:"feature,omitempty"`

	// AllowMocks permits rendering stub services in place of real ones.
	AllowMocks bool `yaml:"allowMocks,omitempty"`

	IngressClass IngressClass `yaml:"ingressClass,omitempty"`
}

// Validate checks the fields every render depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, ErrMissingName)
	}
	if c.Domain == "" {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDomain, c.Name))
	}
	if c.DefaultReplicas.Min < 0 || c.DefaultReplicas.Min > c.DefaultReplicas.Max {
		errs = append(errs, fmt.Errorf("%w: min %d, max %d", ErrInvalidReplicas, c.DefaultReplicas.Min, c.DefaultReplicas.Max))
	}
	return errors.Join(errs...)
}

// Registry returns the image registry host for this environment.
func (c *Config) Registry() string {
	if c.ImageRegistry != "" {
		return c.ImageRegistry
	}
	if c.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", c.AccountID, c.Region)
}

// ReplicaHost returns the reader database endpoint.
func (c *Config) ReplicaHost() string {
	if c.DBReplicaHost != "" {
		return c.DBReplicaHost
	}
	return c.DBHost
}

// PublicIngressClass returns the routing class for public ingress.
func (c *Config) PublicIngressClass() string {
	if c.IngressClass.Public != "" {
		return c.IngressClass.Public
	}
	return DefaultPublicIngressClass
}

// InternalIngressClass returns the routing class for internal ingress.
func (c *Config) InternalIngressClass() string {
	if c.IngressClass.Internal != "" {
		return c.IngressClass.Internal
	}
	return DefaultInternalIngressClass
}

// FeatureEnabled reports whether a server-side feature flag is on.
func (c *Config) FeatureEnabled(flag string) bool {
	return slices.Contains(c.FeatureFlags, flag)
}

// IsFeature reports whether this config targets a feature deployment.
func (c *Config) IsFeature() bool {
	return c.Feature != ""
}

// WithFeature returns a copy of the config targeting the given feature branch.
func (c Config) WithFeature(feature string) *Config {
	c.Feature = feature
	c.FeatureFlags = slices.Clone(c.FeatureFlags)
	return &c
}

// Load reads and validates a single environment file.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse environment %s: %w", path, err)
	}

	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate environment %s: %w", path, err)
	}

	return &cfg, nil
}

// Set is a collection of environments keyed by name.
type Set map[string]*Config

// LoadDir loads every *.yml and *.yaml file in dir.
func LoadDir(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read environments directory: %w", err)
	}

	set := make(Set)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}

		cfg, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := set[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate environment %q in %s", cfg.Name, dir)
		}
		set[cfg.Name] = cfg
	}

	return set, nil
}

// Get returns the named environment.
func (s Set) Get(name string) (*Config, error) {
	cfg, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownEnvironment, name, s.Names())
	}
	return cfg, nil
}

// Names returns the environment names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
